package core

import "time"

// Store defines the interface for run bookkeeping.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error
	GetMigrationVersion() (int64, error)

	// Run operations
	CreateRun(phase string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Table run operations
	RecordTableRun(tr *TableRun) error
	GetTableRunsForRun(runID string) ([]*TableRun, error)
	GetLatestTableRun(table string) (*TableRun, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// RunStatus values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TableRunStatus represents the outcome of writing one table.
type TableRunStatus string

// TableRunStatus values.
const (
	TableRunStatusSuccess TableRunStatus = "success"
	TableRunStatusFailed  TableRunStatus = "failed"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID          string
	Phase       string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// TableRun records what a run did to one output table.
type TableRun struct {
	ID          string
	RunID       string
	Stage       string
	Table       string
	Path        string
	Status      TableRunStatus
	Rows        int64
	Fingerprint string
	ExecutionMS int64
	Error       string
	CreatedAt   time.Time
}
