// Package history persists run results so successive profiles of the same
// file can be compared over time. Concrete database backends live in
// subpackages; this package defines the record shapes and the repository
// contract they implement.
package history

import (
	"context"
	"time"

	"flatprof/internal/pipeline"
)

// RunRecord is one completed (or failed) profiling run, flattened for
// storage. Column details ride along as stats snapshots and are written to a
// child table by the backends.
type RunRecord struct {
	Job       string
	Path      string
	StartedAt time.Time
	Elapsed   time.Duration

	State            string
	RowsSeen         int64
	RowsMalformed    int64
	RowsDecodeErrors int64
	Batches          int64
	PeakRSSBytes     int64

	ErrKind   string
	FailedRow int64

	Summary *pipeline.Summary
}

// Repository stores run records. Implementations must be safe to call from a
// single goroutine per run; cross-run concurrency is the database's problem.
type Repository interface {
	// SaveRun writes the run and its column profiles, returning the run ID.
	SaveRun(ctx context.Context, rec RunRecord) (int64, error)
	// Close releases the underlying connections.
	Close() error
}

// FromSummary builds a RunRecord from a finished run summary.
func FromSummary(s *pipeline.Summary, path string, startedAt time.Time) RunRecord {
	return RunRecord{
		Job:              s.Job,
		Path:             path,
		StartedAt:        startedAt,
		Elapsed:          s.Elapsed,
		State:            s.State.String(),
		RowsSeen:         s.RowsSeen,
		RowsMalformed:    s.RowsMalformed,
		RowsDecodeErrors: s.RowsDecodeErrors,
		Batches:          s.Batches,
		PeakRSSBytes:     s.PeakRSSBytes,
		ErrKind:          string(s.ErrKind),
		FailedRow:        s.FailedRow,
		Summary:          s,
	}
}
