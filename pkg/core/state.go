package core

import "time"

// Store records generation runs.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(recipe string, seed uint64) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, rows int64, errMsg string) error
	ListRuns(limit int) ([]*Run, error)
}

// RunStatus is the lifecycle state stored with a Run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is the stored record of one recipe execution.
type Run struct {
	ID          string
	Recipe      string
	Seed        uint64
	Status      RunStatus
	Rows        int64
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}
