package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gitjournal/internal/gitctx"
)

// Entry is the assembled document for one commit: the non-empty sections in
// canonical order, commit-details block last.
type Entry struct {
	Commit   *gitctx.Commit
	Sections []SectionResult
}

// Assemble orders results canonically and drops every section equal to its
// kind's empty value. Input order does not matter.
func Assemble(commit *gitctx.Commit, results []SectionResult) *Entry {
	byKind := make(map[SectionKind]SectionResult, len(results))
	for _, r := range results {
		byKind[r.Kind] = r
	}

	var sections []SectionResult
	for _, spec := range registry {
		r, ok := byKind[spec.Kind]
		if !ok || r.Empty() {
			continue
		}
		sections = append(sections, r)
	}
	return &Entry{Commit: commit, Sections: sections}
}

// Render produces the markdown block appended to the per-day document.
func (e *Entry) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s — commit %s\n\n", e.Commit.Date.Format("15:04"), e.Commit.ShortHash)

	for _, s := range e.Sections {
		fmt.Fprintf(&sb, "### %s\n\n", titleFor(s.Kind))
		renderSection(&sb, s)
		sb.WriteString("\n")
	}
	return sb.String()
}

func titleFor(kind SectionKind) string {
	for _, spec := range registry {
		if spec.Kind == kind {
			return spec.Title
		}
	}
	return kind.String()
}

func renderSection(sb *strings.Builder, s SectionResult) {
	switch s.Kind {
	case SectionSummary, SectionTechnical:
		sb.WriteString(s.Text)
		sb.WriteString("\n")
	case SectionAccomplishments, SectionChallenges, SectionDialogue:
		for _, item := range s.Items {
			fmt.Fprintf(sb, "- %s\n", item)
		}
	case SectionMood:
		fmt.Fprintf(sb, "%s\n", s.Mood)
		if s.Indicators != "" {
			fmt.Fprintf(sb, "> %s\n", s.Indicators)
		}
	case SectionMetadata:
		for _, key := range orderedFieldKeys(s.Fields) {
			fmt.Fprintf(sb, "%s: %s\n", key, s.Fields[key])
		}
	}
}

// orderedFieldKeys keeps the known metadata keys in render order and sorts
// anything unexpected after them, so output is deterministic.
func orderedFieldKeys(fields map[string]string) []string {
	var keys []string
	known := make(map[string]bool)
	for _, k := range metadataKeys {
		known[k] = true
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}

	var rest []string
	for k := range fields {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Writer appends entries and reflections to per-day documents under the
// journal root. Appends are rendered fully in memory and written with a
// single write on an O_APPEND descriptor, with a lock sidecar serializing
// concurrent runs, so a reader can never observe a half-written section.
type Writer struct {
	Root string
}

// EntryPath returns the document path for a calendar date.
func (w *Writer) EntryPath(date time.Time) string {
	return filepath.Join(w.Root, "entries", date.Format("2006-01"), date.Format("2006-01-02")+".md")
}

// AppendEntry persists an assembled entry to the day file matching the
// commit date and returns the file path.
func (w *Writer) AppendEntry(e *Entry) (string, error) {
	return w.append(e.Commit.Date, e.Render())
}

// AppendReflection appends user-authored text verbatim to today's file.
// Reflections never pass through parsing or validation.
func (w *Writer) AppendReflection(text string, now time.Time) (string, error) {
	block := fmt.Sprintf("### Reflection — %s\n\n%s\n", now.Format("15:04"), strings.TrimRight(text, "\n"))
	return w.append(now, block)
}

func (w *Writer) append(date time.Time, block string) (string, error) {
	path := w.EntryPath(date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}

	unlock, err := acquireLock(path)
	if err != nil {
		return "", err
	}
	defer unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(block + "\n"); err != nil {
		return "", fmt.Errorf("append journal entry: %w", err)
	}
	return path, nil
}

const (
	lockRetry = 50 * time.Millisecond
	lockTries = 100
	lockStale = 30 * time.Second
)

// acquireLock takes the day file's .lock sidecar. A lock older than
// lockStale is treated as left behind by a dead run and taken over.
func acquireLock(path string) (func(), error) {
	lockPath := path + ".lock"
	for i := 0; i < lockTries; i++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStale {
			os.Remove(lockPath)
			continue
		}
		time.Sleep(lockRetry)
	}
	return nil, fmt.Errorf("journal file locked: %s", lockPath)
}
