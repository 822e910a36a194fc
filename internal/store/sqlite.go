package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the local run ledger, kept under .gitjournal/ next to the
// repository. It exists for two jobs: remembering which commits are already
// journaled, and keeping a short run history for `gitjournal history`.
type Store struct {
	db *sql.DB
}

func New(projectDir string) (*Store, error) {
	stateDir := filepath.Join(projectDir, ".gitjournal")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create .gitjournal dir: %w", err)
	}

	dbPath := filepath.Join(stateDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		commit_hash   TEXT NOT NULL,
		state         TEXT NOT NULL,
		soft_failures TEXT NOT NULL DEFAULT '',
		entry_path    TEXT NOT NULL DEFAULT '',
		started_at    DATETIME NOT NULL,
		finished_at   DATETIME
	);

	CREATE TABLE IF NOT EXISTS journaled_commits (
		commit_hash  TEXT PRIMARY KEY,
		run_id       TEXT NOT NULL REFERENCES runs(id),
		journaled_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_commit ON runs(commit_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records a new pipeline run and returns it in its initial state.
func (s *Store) BeginRun(commitHash string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		CommitHash: commitHash,
		State:      StateAggregating,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		"INSERT INTO runs (id, commit_hash, state, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.CommitHash, string(run.State), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// SetState updates a run's state as the pipeline advances.
func (s *Store) SetState(runID string, state RunState) error {
	_, err := s.db.Exec("UPDATE runs SET state = ? WHERE id = ?", string(state), runID)
	return err
}

// FinishRun records the terminal state of a run.
func (s *Store) FinishRun(runID string, state RunState, softFailures, entryPath string) error {
	_, err := s.db.Exec(
		"UPDATE runs SET state = ?, soft_failures = ?, entry_path = ?, finished_at = ? WHERE id = ?",
		string(state), softFailures, entryPath, time.Now().UTC(), runID,
	)
	return err
}

// IsJournaled reports whether a commit already has a persisted entry.
func (s *Store) IsJournaled(commitHash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM journaled_commits WHERE commit_hash = ?", commitHash,
	).Scan(&count)
	return count > 0, err
}

// MarkJournaled records that a commit's entry has been persisted.
func (s *Store) MarkJournaled(commitHash, runID string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO journaled_commits (commit_hash, run_id, journaled_at) VALUES (?, ?, ?)",
		commitHash, runID, time.Now().UTC(),
	)
	return err
}

// RecentRuns lists runs newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, commit_hash, state, soft_failures, entry_path, started_at, COALESCE(finished_at, started_at)
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var state string
		if err := rows.Scan(&r.ID, &r.CommitHash, &state, &r.SoftFailures, &r.EntryPath, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.State = RunState(state)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
