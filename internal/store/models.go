package store

import "time"

// RunState tracks how far a pipeline run got.
type RunState string

const (
	StateAggregating RunState = "aggregating"
	StateFiltering   RunState = "filtering"
	StateDispatching RunState = "dispatching"
	StateParsing     RunState = "parsing"
	StateAssembling  RunState = "assembling"
	StatePersisted   RunState = "persisted"
	StateAborted     RunState = "aborted"
	StateSkipped     RunState = "skipped"
)

// Run is one pipeline execution recorded in the local ledger.
type Run struct {
	ID           string
	CommitHash   string
	State        RunState
	SoftFailures string // semicolon-joined degradation notes, empty when clean
	EntryPath    string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// JournaledCommit marks a commit that already has a persisted entry, so
// repeated triggers for the same commit skip instead of duplicating.
type JournaledCommit struct {
	CommitHash  string
	RunID       string
	JournaledAt time.Time
}
