package journal

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"gitjournal/internal/chatlog"
	"gitjournal/internal/gitctx"
)

// The relevance filter narrows an unbounded conversation history to a
// window aligned with the current commit. It never reasons about elapsed
// time: the scan is bounded by message count and by a lexical reference to
// the previous commit, and inclusion is biased by keyword overlap with the
// diff.

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{3,}`)

// Words too generic to signal relevance when they appear in a diff hunk.
var keywordStopwords = map[string]bool{
	"func": true, "return": true, "import": true, "package": true,
	"const": true, "type": true, "interface": true, "struct": true,
	"class": true, "self": true, "this": true, "none": true, "null": true,
	"true": true, "false": true, "string": true, "error": true,
	"else": true, "nil": true,
}

// DiffKeywords extracts the lexical cues of a commit: changed file names,
// their path tokens, and the leading identifier of each changed hunk line.
func DiffKeywords(c *gitctx.Commit) []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(word string) {
		word = strings.ToLower(strings.TrimSpace(word))
		if len(word) < 3 || keywordStopwords[word] || seen[word] {
			return
		}
		seen[word] = true
		keywords = append(keywords, word)
	}

	for _, f := range c.Files {
		add(path.Base(f.Path))
		base := path.Base(f.Path)
		if dot := strings.LastIndexByte(base, '.'); dot > 0 {
			add(base[:dot])
		}
		for _, tok := range strings.Split(path.Dir(f.Path), "/") {
			add(tok)
		}
	}

	for _, line := range strings.Split(c.Patch, "\n") {
		if len(line) == 0 {
			continue
		}
		if line[0] != '+' && line[0] != '-' {
			continue
		}
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if id := identifierRe.FindString(line[1:]); id != "" {
			add(id)
		}
		if len(keywords) >= 60 {
			break
		}
	}

	return keywords
}

// score counts how many keywords a record's text mentions.
func score(r chatlog.Record, keywords []string) int {
	text := strings.ToLower(r.Text)
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

// mentionsCommit reports whether a record references the given commit by
// short hash or by its subject line. This is the scan boundary signal: the
// previous commit showing up in conversation means everything older belongs
// to earlier work.
func mentionsCommit(r chatlog.Record, c *gitctx.Commit) bool {
	if c == nil {
		return false
	}
	if c.ShortHash != "" && strings.Contains(r.Text, c.ShortHash) {
		return true
	}
	subject := c.Subject()
	return len(subject) >= 12 && strings.Contains(r.Text, subject)
}

// RelevantWindow scans records backward from the newest toward either a
// detected reference to prev or the scanCap, whichever comes first, then
// keeps at most windowMax of the scanned records — the highest keyword
// scorers, recency breaking ties, the boundary record always included.
// The returned window is ordered oldest first and never exceeds windowMax.
func RelevantWindow(records []chatlog.Record, prev *gitctx.Commit, keywords []string, scanCap, windowMax int) []chatlog.Record {
	if len(records) == 0 || scanCap <= 0 || windowMax <= 0 {
		return nil
	}

	// Backward scan: find where this commit's conversation begins.
	start := len(records)
	scanned := 0
	for i := len(records) - 1; i >= 0; i-- {
		scanned++
		start = i
		if mentionsCommit(records[i], prev) {
			break
		}
		if scanned >= scanCap {
			break
		}
	}

	window := records[start:]
	if len(window) <= windowMax {
		return window
	}

	// Too much talk: keep the best-scoring messages. The boundary record is
	// a hard stop, not a score threshold, so it survives selection.
	type scored struct {
		idx int
		s   int
	}
	ranked := make([]scored, len(window))
	for i, r := range window {
		ranked[i] = scored{idx: i, s: score(r, keywords)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].s != ranked[b].s {
			return ranked[a].s > ranked[b].s
		}
		return ranked[a].idx > ranked[b].idx
	})

	keep := map[int]bool{0: true}
	for _, sc := range ranked {
		if len(keep) >= windowMax {
			break
		}
		keep[sc.idx] = true
	}

	out := make([]chatlog.Record, 0, len(keep))
	for i, r := range window {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}
