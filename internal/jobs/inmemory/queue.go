// Package inmemory provides a channel-backed job queue suitable for
// single-instance deployments and tests. For multi-instance deployments,
// replace it with a durable broker behind the same interfaces.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cashfolio/cashfolio/internal/jobs"
)

// Options tunes the queue. Zero values fall back to the defaults.
type Options struct {
	BufferSize int           // queued jobs before PublishImport blocks (default 64)
	Workers    int           // concurrent workers (default 2)
	MaxRetries int           // re-deliveries after a handler error (default 3)
	JobTimeout time.Duration // per-job deadline so a stuck job frees its worker (default 5m)
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 5 * time.Minute
	}
	return o
}

// Queue is an in-memory at-least-once job queue with a worker pool, bounded
// retry with linear backoff, and a per-job timeout.
type Queue struct {
	opts      Options
	jobChan   chan jobs.ImportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
}

// New creates an in-memory queue.
func New(opts Options) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		opts:      opts,
		jobChan:   make(chan jobs.ImportJob, opts.BufferSize),
		closeChan: make(chan struct{}),
	}
}

// PublishImport enqueues a publish job for the import. It implements
// importer.Publisher.
func (q *Queue) PublishImport(ctx context.Context, importID uuid.UUID) error {
	return q.enqueue(ctx, jobs.ImportJob{
		ID:        uuid.New(),
		ImportID:  importID,
		CreatedAt: time.Now().UTC(),
	})
}

func (q *Queue) enqueue(ctx context.Context, job jobs.ImportJob) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return fmt.Errorf("queue is closed")
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start launches the worker pool. It implements jobs.Consumer.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.process(ctx, job, handler)
		}
	}
}

// process runs one job under the per-job timeout and requeues it with backoff
// while the retry budget lasts.
func (q *Queue) process(ctx context.Context, job jobs.ImportJob, handler jobs.Handler) {
	jobCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
	defer cancel()

	err := handler(jobCtx, job)
	if err == nil {
		return
	}

	log := slog.Default().With("job_id", job.ID, "import_id", job.ImportID)
	if job.Attempts >= q.opts.MaxRetries {
		log.Error("job failed, retries exhausted", "error", err, "attempts", job.Attempts)
		return
	}

	job.Attempts++
	log.Warn("job failed, retrying", "error", err, "attempt", job.Attempts)

	backoff := time.Duration(job.Attempts) * time.Second
	time.AfterFunc(backoff, func() {
		if err := q.enqueue(context.Background(), job); err != nil {
			log.Error("could not requeue job", "error", err)
		}
	})
}

// Stop drains the workers. It implements jobs.Consumer.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ jobs.Consumer = (*Queue)(nil)
