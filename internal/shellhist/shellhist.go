// Package shellhist reads recent terminal commands from the user's shell
// history file. History is optional context: any read failure degrades to
// an empty result.
package shellhist

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Command is one executed shell command. Timestamp is zero when the history
// format carries none.
type Command struct {
	Line      string
	Timestamp time.Time
}

// Source reads one history file.
type Source struct {
	path string
}

// Locate picks the history file: an explicit path, then $HISTFILE, then the
// common zsh and bash locations.
func Locate(explicit string) *Source {
	if explicit != "" {
		return &Source{path: explicit}
	}
	if hf := os.Getenv("HISTFILE"); hf != "" {
		return &Source{path: hf}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return &Source{}
	}
	for _, name := range []string{".zsh_history", ".bash_history"} {
		p := filepath.Join(home, name)
		if _, err := os.Stat(p); err == nil {
			return &Source{path: p}
		}
	}
	return &Source{}
}

// Commands returns up to limit commands executed at or after since, oldest
// first. Plain history files have no timestamps; for those the bound cannot
// apply and the newest limit lines are returned instead.
func (s *Source) Commands(ctx context.Context, since time.Time, limit int) ([]Command, error) {
	if s.path == "" {
		return nil, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var cmds []Command
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmds = append(cmds, parseLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !since.IsZero() {
		var bounded []Command
		for _, c := range cmds {
			if c.Timestamp.IsZero() || !c.Timestamp.Before(since) {
				bounded = append(bounded, c)
			}
		}
		cmds = bounded
	}

	if limit > 0 && len(cmds) > limit {
		cmds = cmds[len(cmds)-limit:]
	}
	return cmds, nil
}

// parseLine understands zsh extended history (": <epoch>:<dur>;<cmd>") and
// falls back to the raw line for plain formats.
func parseLine(line string) Command {
	if strings.HasPrefix(line, ": ") {
		rest := line[2:]
		if semi := strings.IndexByte(rest, ';'); semi > 0 {
			meta := rest[:semi]
			if colon := strings.IndexByte(meta, ':'); colon > 0 {
				if epoch, err := strconv.ParseInt(meta[:colon], 10, 64); err == nil {
					return Command{
						Line:      strings.TrimSpace(rest[semi+1:]),
						Timestamp: time.Unix(epoch, 0).UTC(),
					}
				}
			}
		}
	}
	return Command{Line: strings.TrimSpace(line)}
}
