package pipeline

import (
	"context"
	"time"

	"github.com/teranos/measure/errors"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// WorkerRange assigns a disjoint id range to a named worker
type WorkerRange struct {
	Worker string `json:"worker"`
	Range  Range  `json:"range"`
}

// RunInfo describes a run. Resuming requires the same source and page size.
type RunInfo struct {
	RunID     string
	Source    string
	PageSize  int
	Output    string
	Ranges    []WorkerRange
	Status    RunStatus
	StartedAt time.Time
}

// PageRecord is the checkpoint committed after a page is durably written
type PageRecord struct {
	RunID   string
	Worker  string
	Page    int
	FirstID int64
	LastID  int64
	Records int
	Rows    int
	File    string
}

// CheckpointStore persists run progress. The last committed page of each
// worker is the only resume state.
type CheckpointStore interface {
	// Begin registers a run, or returns the stored info when it exists.
	// A stored run with a different source or page size fails with
	// errors.ErrCheckpointMismatch.
	Begin(ctx context.Context, info RunInfo) (RunInfo, error)
	// Last returns the worker's last committed page; ok is false when the
	// worker has not committed any page yet
	Last(ctx context.Context, runID, worker string) (PageRecord, bool, error)
	Commit(ctx context.Context, page PageRecord) error
	Finish(ctx context.Context, runID string, status RunStatus) error
}

// CheckResume rejects resuming stored with a differently configured run
func CheckResume(stored, next RunInfo) error {
	if stored.Source != next.Source {
		return errors.Wrapf(errors.ErrCheckpointMismatch,
			"run %s was started on source %q, not %q", stored.RunID, stored.Source, next.Source)
	}
	if stored.PageSize != next.PageSize {
		return errors.Wrapf(errors.ErrCheckpointMismatch,
			"run %s was started with page size %d, not %d", stored.RunID, stored.PageSize, next.PageSize)
	}
	return nil
}
