// Package jobs defines the background job queue the import pipeline publishes
// to. Delivery is at-least-once: a handler may see the same import id more
// than once and must tolerate it.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportJob asks a worker to publish one import.
type ImportJob struct {
	ID        uuid.UUID `json:"id"`
	ImportID  uuid.UUID `json:"import_id"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
}

// Handler processes one job. Returning an error requeues the job until its
// retry budget is spent.
type Handler func(ctx context.Context, job ImportJob) error

// Consumer runs handlers against queued jobs.
type Consumer interface {
	// Start launches the worker pool. Workers stop when ctx is cancelled.
	Start(ctx context.Context, handler Handler) error
	// Stop drains in-flight jobs, waiting no longer than ctx allows.
	Stop(ctx context.Context) error
}
