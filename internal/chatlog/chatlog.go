// Package chatlog reads AI-assistant conversation transcripts owned by a
// separate host application. Files are opened read-only, one short read per
// query, and never held across pipeline stages.
package chatlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Role distinguishes the two speakers the pipeline cares about.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Record is one conversation message from the external log.
type Record struct {
	Role      Role
	Text      string
	Timestamp time.Time
	SessionID string
}

// transcriptLine matches one JSONL line of a session file. Content arrives
// either as a bare string or as a list of typed blocks.
type transcriptLine struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Store locates session transcripts for one project directory.
type Store struct {
	dir string
}

// Open resolves the transcript directory for projectDir. An explicit
// override wins; otherwise the host application's per-project layout is
// derived from the project path.
func Open(projectDir, override string) (*Store, error) {
	if override != "" {
		return &Store{dir: override}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	return &Store{dir: filepath.Join(home, ".claude", "projects", mungePath(projectDir))}, nil
}

// mungePath mirrors how the host application names per-project transcript
// directories: every path separator and dot becomes a dash.
func mungePath(projectDir string) string {
	s := strings.ReplaceAll(projectDir, "/", "-")
	return strings.ReplaceAll(s, ".", "-")
}

// Records returns up to limit messages, oldest first, across all session
// files in the transcript directory. A missing directory yields an empty
// result: the conversation store is optional context, not a requirement.
func (s *Store) Records(ctx context.Context, limit int) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("dir", s.dir).Msg("no transcript directory")
			return nil, nil
		}
		return nil, fmt.Errorf("read transcript dir: %w", err)
	}

	type sessionFile struct {
		path  string
		mtime time.Time
	}
	var files []sessionFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, sessionFile{filepath.Join(s.dir, e.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })

	var records []Record
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, err := readSession(f.path)
		if err != nil {
			log.Warn().Err(err).Str("file", filepath.Base(f.path)).Msg("skipping unreadable transcript")
			continue
		}
		records = append(records, rs...)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

func readSession(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	var records []Record
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var tl transcriptLine
		if err := json.Unmarshal(line, &tl); err != nil {
			continue
		}

		r, ok := recordFromLine(tl)
		if !ok {
			continue
		}
		records = append(records, r)
	}
	return records, scanner.Err()
}

func recordFromLine(tl transcriptLine) (Record, bool) {
	var role Role
	switch tl.Type {
	case "user":
		role = RoleHuman
	case "assistant":
		role = RoleAssistant
	default:
		return Record{}, false
	}

	text := extractText(tl.Message.Content)
	if strings.TrimSpace(text) == "" {
		return Record{}, false
	}

	r := Record{Role: role, Text: strings.TrimSpace(text), SessionID: tl.SessionID}
	if tl.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, tl.Timestamp); err == nil {
			r.Timestamp = ts
		}
	}
	return r, true
}

// extractText accepts both content encodings: a plain string, or a list of
// blocks from which only text blocks are kept. Tool calls and their results
// are noise for journaling purposes.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
