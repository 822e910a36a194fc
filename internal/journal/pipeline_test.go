package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitjournal/internal/chatlog"
	"gitjournal/internal/gitctx"
	"gitjournal/internal/shellhist"
	"gitjournal/internal/store"
)

// --- fakes -----------------------------------------------------------------

type fakeRepo struct {
	commit  *gitctx.Commit
	prev    *gitctx.Commit
	readErr error
}

func (f *fakeRepo) Read(ctx context.Context, ref string) (*gitctx.Commit, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.commit, nil
}

func (f *fakeRepo) Previous(ctx context.Context, hash string) (*gitctx.Commit, error) {
	return f.prev, nil
}

type fakeChat struct {
	records []chatlog.Record
	err     error
}

func (f *fakeChat) Records(ctx context.Context, limit int) ([]chatlog.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.records) > limit {
		return f.records[len(f.records)-limit:], nil
	}
	return f.records, nil
}

type fakeShell struct {
	commands []shellhist.Command
}

func (f *fakeShell) Commands(ctx context.Context, since time.Time, limit int) ([]shellhist.Command, error) {
	return f.commands, nil
}

// fakeModel keys canned responses off section template fragments, so the
// same context always produces the same sections.
type fakeModel struct {
	failOn string // template fragment whose section call fails
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return "", context.DeadlineExceeded
	}
	switch {
	case strings.Contains(prompt, "first-person narrative"):
		return "Spent the afternoon on the token refresh path.", nil
	case strings.Contains(prompt, "technical substance"):
		return "Expiry comparison moved to UTC in internal/auth.", nil
	case strings.Contains(prompt, "one accomplishment per line"):
		return "Fixed refresh path\nAdded regression test", nil
	case strings.Contains(prompt, "difficulties or roadblocks"):
		return "", nil
	case strings.Contains(prompt, "describe their mood"):
		return "mood: relieved\nindicators: \"finally green\"", nil
	case strings.Contains(prompt, "decision-carrying exchanges"):
		return "Human: why is auth.py broken?\nAssistant: local-time comparison", nil
	}
	return "", fmt.Errorf("unexpected prompt")
}

type fakeLedger struct {
	journaled map[string]bool
	states    []store.RunState
	finished  store.RunState
	soft      string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{journaled: make(map[string]bool)}
}

func (f *fakeLedger) BeginRun(hash string) (*store.Run, error) {
	return &store.Run{ID: "run-1", CommitHash: hash, State: store.StateAggregating}, nil
}

func (f *fakeLedger) SetState(runID string, state store.RunState) error {
	f.states = append(f.states, state)
	return nil
}

func (f *fakeLedger) FinishRun(runID string, state store.RunState, softFailures, entryPath string) error {
	f.finished = state
	f.soft = softFailures
	return nil
}

func (f *fakeLedger) IsJournaled(hash string) (bool, error) { return f.journaled[hash], nil }

func (f *fakeLedger) MarkJournaled(hash, runID string) error {
	f.journaled[hash] = true
	return nil
}

func testPipeline(t *testing.T, repo *fakeRepo, chat *fakeChat, model Completer) (*Pipeline, *fakeLedger) {
	t.Helper()
	ledger := newFakeLedger()
	return &Pipeline{
		Repo:   repo,
		Chat:   chat,
		Shell:  &fakeShell{},
		Model:  model,
		Ledger: ledger,
		Writer: &Writer{Root: t.TempDir()},
		Opts: Options{
			MessageCap:   150,
			WindowMax:    40,
			TokenCap:     8000,
			HistoryLimit: 50,
			JournalDir:   "journal",
		},
	}, ledger
}

func conversation() []chatlog.Record {
	return []chatlog.Record{
		{Role: chatlog.RoleHuman, Text: "why is auth.py rejecting fresh tokens?"},
		{Role: chatlog.RoleAssistant, Text: "the expiry comparison runs in local time"},
	}
}

// --- tests -----------------------------------------------------------------

func TestRunPersistsFullEntry(t *testing.T) {
	p, ledger := testPipeline(t, &fakeRepo{commit: testCommit()}, &fakeChat{records: conversation()}, &fakeModel{})

	report, err := p.Run(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, store.StatePersisted, report.State)
	assert.Empty(t, report.Soft)
	assert.Equal(t, store.StatePersisted, ledger.finished)
	assert.True(t, ledger.journaled[testCommit().Hash])

	data, err := os.ReadFile(report.EntryPath)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "### Summary")
	assert.Contains(t, out, "### Technical Synopsis")
	assert.Contains(t, out, "### Mood")
	assert.Contains(t, out, "### Discussion Notes")
	assert.Contains(t, out, "### Commit Details")
	// The challenges response was empty, so the section is absent.
	assert.NotContains(t, out, "### Challenges")
	// Metadata last.
	assert.Less(t, strings.Index(out, "### Discussion Notes"), strings.Index(out, "### Commit Details"))
}

func TestRunWithoutConversationOmitsEvidencelessSections(t *testing.T) {
	p, _ := testPipeline(t, &fakeRepo{commit: testCommit()}, &fakeChat{}, &fakeModel{})

	report, err := p.Run(context.Background(), "HEAD")
	require.NoError(t, err)

	data, err := os.ReadFile(report.EntryPath)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "### Technical Synopsis")
	assert.Contains(t, out, "### Commit Details")
	assert.NotContains(t, out, "### Mood")
	assert.NotContains(t, out, "### Discussion Notes")
}

func TestRunOneSectionTimeoutIsSoftFailure(t *testing.T) {
	model := &fakeModel{failOn: "first-person narrative"}
	p, ledger := testPipeline(t, &fakeRepo{commit: testCommit()}, &fakeChat{records: conversation()}, model)

	report, err := p.Run(context.Background(), "HEAD")
	require.NoError(t, err, "a single section timing out must not abort the run")
	assert.True(t, report.Degraded())
	require.Len(t, report.Soft, 1)
	assert.Equal(t, "section/summary", report.Soft[0].Unit)
	assert.Contains(t, ledger.soft, "section/summary")

	data, err := os.ReadFile(report.EntryPath)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "### Summary")
	assert.Contains(t, out, "### Technical Synopsis")
	assert.Contains(t, out, "### Mood")
}

func TestRunConversationStoreDownStillPersists(t *testing.T) {
	chat := &fakeChat{err: errors.New("database is locked")}
	p, _ := testPipeline(t, &fakeRepo{commit: testCommit()}, chat, &fakeModel{})

	report, err := p.Run(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.True(t, report.Degraded())
	assert.NotEmpty(t, report.EntryPath)
}

func TestRunJournalOnlyCommitSkips(t *testing.T) {
	commit := testCommit()
	commit.Files = []gitctx.FileChange{
		{Path: "journal/entries/2026-08/2026-08-27.md", Insertions: 40},
	}
	p, _ := testPipeline(t, &fakeRepo{commit: commit}, &fakeChat{}, &fakeModel{})

	report, err := p.Run(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, store.StateSkipped, report.State)
	assert.Empty(t, report.EntryPath)
}

func TestRunAlreadyJournaledSkipsUnlessForced(t *testing.T) {
	p, ledger := testPipeline(t, &fakeRepo{commit: testCommit()}, &fakeChat{records: conversation()}, &fakeModel{})
	ledger.journaled[testCommit().Hash] = true

	report, err := p.Run(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	p.Opts.Force = true
	report, err = p.Run(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.NotEmpty(t, report.EntryPath)
}

func TestRunUnreadableCommitIsHardFailure(t *testing.T) {
	p, _ := testPipeline(t, &fakeRepo{readErr: errors.New("bad object")}, &fakeChat{}, &fakeModel{})

	_, err := p.Run(context.Background(), "HEAD")
	require.Error(t, err)
}

func TestRunDeterministicResults(t *testing.T) {
	run := func() string {
		p, _ := testPipeline(t, &fakeRepo{commit: testCommit()}, &fakeChat{records: conversation()}, &fakeModel{})
		report, err := p.Run(context.Background(), "HEAD")
		require.NoError(t, err)
		data, err := os.ReadFile(report.EntryPath)
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, run(), run(), "identical context must yield structurally identical entries")
}
