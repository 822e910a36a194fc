package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"gitjournal/internal/chatlog"
	"gitjournal/internal/gitctx"
	"gitjournal/internal/shellhist"
	"gitjournal/internal/store"
)

// CommitSource reads commits from version control. Implemented by
// gitctx.Repo.
type CommitSource interface {
	Read(ctx context.Context, ref string) (*gitctx.Commit, error)
	Previous(ctx context.Context, hash string) (*gitctx.Commit, error)
}

// ConversationSource queries the external conversation log, newest last.
// Implemented by chatlog.Store.
type ConversationSource interface {
	Records(ctx context.Context, limit int) ([]chatlog.Record, error)
}

// CommandSource reads recent shell commands. Implemented by
// shellhist.Source.
type CommandSource interface {
	Commands(ctx context.Context, since time.Time, limit int) ([]shellhist.Command, error)
}

// Ledger is the run/skip bookkeeping slice of the local store.
type Ledger interface {
	BeginRun(commitHash string) (*store.Run, error)
	SetState(runID string, state store.RunState) error
	FinishRun(runID string, state store.RunState, softFailures, entryPath string) error
	IsJournaled(commitHash string) (bool, error)
	MarkJournaled(commitHash, runID string) error
}

// Options tunes one pipeline instance.
type Options struct {
	MessageCap   int    // hard bound on the conversation scan
	WindowMax    int    // messages kept after relevance scoring
	TokenCap     int    // serialized-window budget per prompt
	HistoryLimit int    // shell commands kept
	JournalDir   string // output root, also the anti-recursion prefix
	Force        bool   // regenerate even when already journaled
}

// Report is the outcome of one run.
type Report struct {
	RunID     string
	Commit    string
	State     store.RunState
	Soft      []SoftFailure
	EntryPath string
	Skipped   bool
}

// Degraded reports whether the run persisted with any soft failure.
func (r *Report) Degraded() bool {
	return len(r.Soft) > 0
}

// Pipeline wires the collaborators into one run-per-commit flow. A failure
// reading the commit aborts the run; every other collaborator failing
// degrades its own unit and the run still persists what it has.
type Pipeline struct {
	Repo   CommitSource
	Chat   ConversationSource
	Shell  CommandSource
	Model  Completer
	Ledger Ledger
	Writer *Writer
	Opts   Options
}

// Run executes the full pipeline for one commit reference.
func (p *Pipeline) Run(ctx context.Context, ref string) (*Report, error) {
	commit, err := p.Repo.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read commit %q: %w", ref, err)
	}

	report := &Report{Commit: commit.Hash}

	// A commit touching only journal output must never produce an entry,
	// or every generated entry would trigger another.
	if commit.TouchesOnly(p.Opts.JournalDir, ".gitjournal") {
		log.Info().Str("commit", commit.ShortHash).Msg("journal-only commit, skipping")
		report.State = store.StateSkipped
		report.Skipped = true
		return report, nil
	}

	if !p.Opts.Force {
		done, err := p.Ledger.IsJournaled(commit.Hash)
		if err != nil {
			return nil, fmt.Errorf("check ledger: %w", err)
		}
		if done {
			log.Info().Str("commit", commit.ShortHash).Msg("already journaled, skipping")
			report.State = store.StateSkipped
			report.Skipped = true
			return report, nil
		}
	}

	run, err := p.Ledger.BeginRun(commit.Hash)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	report.RunID = run.ID

	// Aggregating: the two optional context sources fail soft.
	prev, err := p.Repo.Previous(ctx, commit.Hash)
	if err != nil {
		report.Soft = append(report.Soft, SoftFailure{Unit: "aggregate/previous-commit", Err: err})
		prev = nil
	}

	records, err := p.Chat.Records(ctx, p.Opts.MessageCap)
	if err != nil {
		log.Warn().Err(err).Msg("conversation store unavailable")
		report.Soft = append(report.Soft, SoftFailure{Unit: "aggregate/conversation", Err: err})
		records = nil
	}

	var since time.Time
	if prev != nil {
		since = prev.Date
	}
	commands, err := p.Shell.Commands(ctx, since, p.Opts.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Msg("shell history unavailable")
		report.Soft = append(report.Soft, SoftFailure{Unit: "aggregate/shell-history", Err: err})
		commands = nil
	}

	p.setState(run.ID, store.StateFiltering)
	window := RelevantWindow(records, prev, DiffKeywords(commit), p.Opts.MessageCap, p.Opts.WindowMax)

	p.setState(run.ID, store.StateDispatching)
	dispatcher := &Dispatcher{Model: p.Model, TokenCap: p.Opts.TokenCap}
	raw := dispatcher.Dispatch(ctx, &PromptContext{
		Commit:   commit,
		Window:   window,
		Commands: commands,
	})

	p.setState(run.ID, store.StateParsing)
	results, soft := raw.Parse()
	report.Soft = append(report.Soft, soft...)

	p.setState(run.ID, store.StateAssembling)
	entry := Assemble(commit, results)

	path, err := p.Writer.AppendEntry(entry)
	if err != nil {
		// An unwritable document is fatal: nothing was persisted.
		p.finish(run.ID, store.StateAborted, report, "")
		return nil, fmt.Errorf("persist entry: %w", err)
	}
	report.EntryPath = path

	if err := p.Ledger.MarkJournaled(commit.Hash, run.ID); err != nil {
		report.Soft = append(report.Soft, SoftFailure{Unit: "ledger/mark-journaled", Err: err})
	}

	report.State = store.StatePersisted
	p.finish(run.ID, store.StatePersisted, report, path)

	log.Info().
		Str("commit", commit.ShortHash).
		Str("entry", path).
		Int("sections", len(entry.Sections)).
		Int("soft_failures", len(report.Soft)).
		Msg("journal entry persisted")
	return report, nil
}

func (p *Pipeline) setState(runID string, state store.RunState) {
	if err := p.Ledger.SetState(runID, state); err != nil {
		log.Warn().Err(err).Str("state", string(state)).Msg("ledger state update failed")
	}
}

func (p *Pipeline) finish(runID string, state store.RunState, report *Report, path string) {
	notes := make([]string, len(report.Soft))
	for i, f := range report.Soft {
		notes[i] = f.String()
	}
	if err := p.Ledger.FinishRun(runID, state, strings.Join(notes, "; "), path); err != nil {
		log.Warn().Err(err).Msg("ledger finish failed")
	}
}
