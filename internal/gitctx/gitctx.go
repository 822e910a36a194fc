package gitctx

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const fieldSep = "|||"

// FileChange is one changed file in a commit, at line-count granularity.
// Binary files carry no counts and are flagged instead of diffed.
type FileChange struct {
	Path       string
	Insertions int
	Deletions  int
	Binary     bool
}

// Commit holds everything the pipeline reads from version control for one
// commit: identity, metadata, and a line-count-level diff summary.
type Commit struct {
	Hash      string
	ShortHash string
	Author    string
	Email     string
	Date      time.Time
	Message   string
	Files     []FileChange

	// Patch is the unified diff body (added/removed lines only), used for
	// keyword extraction. It is capped, never persisted.
	Patch string
}

func (c *Commit) Subject() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return strings.TrimSpace(c.Message[:i])
	}
	return strings.TrimSpace(c.Message)
}

func (c *Commit) Insertions() int {
	n := 0
	for _, f := range c.Files {
		n += f.Insertions
	}
	return n
}

func (c *Commit) Deletions() int {
	n := 0
	for _, f := range c.Files {
		n += f.Deletions
	}
	return n
}

// TouchesOnly reports whether every changed path sits under one of the
// given prefixes. Used to skip commits that modify only journal output.
func (c *Commit) TouchesOnly(prefixes ...string) bool {
	if len(c.Files) == 0 {
		return false
	}
	for _, f := range c.Files {
		under := false
		for _, p := range prefixes {
			if f.Path == p || strings.HasPrefix(f.Path, strings.TrimSuffix(p, "/")+"/") {
				under = true
				break
			}
		}
		if !under {
			return false
		}
	}
	return true
}

// Repo reads commits from a git working copy by shelling out to git.
type Repo struct {
	Dir string

	// patchCap bounds how much diff body is kept for keyword extraction.
	patchCap int
}

func Open(dir string) *Repo {
	return &Repo{Dir: dir, patchCap: 64 * 1024}
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// Read resolves ref and returns the full Commit. Any failure here is fatal
// to the pipeline run: without the commit there is nothing to journal.
func (r *Repo) Read(ctx context.Context, ref string) (*Commit, error) {
	out, err := r.git(ctx, "show", "-s",
		"--format=%H"+fieldSep+"%h"+fieldSep+"%an"+fieldSep+"%ae"+fieldSep+"%aI"+fieldSep+"%B", ref)
	if err != nil {
		return nil, err
	}

	c, err := parseCommitLine(strings.TrimSpace(out))
	if err != nil {
		return nil, fmt.Errorf("parse commit %q: %w", ref, err)
	}

	stat, err := r.git(ctx, "show", "--numstat", "--format=", c.Hash)
	if err != nil {
		return nil, err
	}
	c.Files = parseNumstat(stat)

	limit := r.patchCap
	if limit <= 0 {
		limit = 64 * 1024
	}
	patch, err := r.git(ctx, "show", "--format=", "--unified=0", c.Hash)
	if err != nil {
		// The numstat summary is enough to journal; keyword quality degrades.
		log.Warn().Err(err).Str("commit", c.ShortHash).Msg("diff body unavailable")
	} else if len(patch) > limit {
		c.Patch = patch[:limit]
	} else {
		c.Patch = patch
	}

	return c, nil
}

// Previous returns the first parent of hash, or nil for a root commit.
func (r *Repo) Previous(ctx context.Context, hash string) (*Commit, error) {
	out, err := r.git(ctx, "rev-parse", "--verify", "--quiet", hash+"^")
	if err != nil {
		return nil, nil
	}
	parent := strings.TrimSpace(out)
	if parent == "" {
		return nil, nil
	}
	return r.Read(ctx, parent)
}

func parseCommitLine(line string) (*Commit, error) {
	parts := strings.SplitN(line, fieldSep, 6)
	if len(parts) < 6 {
		return nil, fmt.Errorf("malformed commit record")
	}

	date, err := time.Parse(time.RFC3339, parts[4])
	if err != nil {
		return nil, fmt.Errorf("commit date: %w", err)
	}

	return &Commit{
		Hash:      parts[0],
		ShortHash: parts[1],
		Author:    parts[2],
		Email:     parts[3],
		Date:      date,
		Message:   strings.TrimSpace(parts[5]),
	}, nil
}

// parseNumstat reads `git show --numstat` output. Binary files show "-" in
// both count columns.
func parseNumstat(out string) []FileChange {
	var files []FileChange
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}

		fc := FileChange{Path: parts[2]}
		if parts[0] == "-" || parts[1] == "-" {
			fc.Binary = true
		} else {
			fc.Insertions, _ = strconv.Atoi(parts[0])
			fc.Deletions, _ = strconv.Atoi(parts[1])
		}
		files = append(files, fc)
	}
	return files
}
