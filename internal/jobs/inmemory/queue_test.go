package inmemory

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cashfolio/cashfolio/internal/jobs"
)

func TestQueueDeliversJobs(t *testing.T) {
	q := New(Options{Workers: 1})
	defer q.Stop(context.Background())

	done := make(chan jobs.ImportJob, 1)
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.ImportJob) error {
		done <- job
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	importID := uuid.New()
	if err := q.PublishImport(context.Background(), importID); err != nil {
		t.Fatalf("PublishImport() error: %v", err)
	}

	select {
	case job := <-done:
		if job.ImportID != importID {
			t.Errorf("handler got import %s, want %s", job.ImportID, importID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was never delivered")
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	q := New(Options{Workers: 1, MaxRetries: 3})
	defer q.Stop(context.Background())

	var calls atomic.Int32
	done := make(chan struct{})
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.ImportJob) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := q.PublishImport(context.Background(), uuid.New()); err != nil {
		t.Fatalf("PublishImport() error: %v", err)
	}

	// Two failures with 1s and 2s backoff, then success.
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("handler never succeeded; calls = %d", calls.Load())
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler ran %d times, want 3", got)
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := New(Options{Workers: 1, MaxRetries: 1})
	defer q.Stop(context.Background())

	var calls atomic.Int32
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.ImportJob) error {
		calls.Add(1)
		return fmt.Errorf("permanent failure")
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := q.PublishImport(context.Background(), uuid.New()); err != nil {
		t.Fatalf("PublishImport() error: %v", err)
	}

	// First attempt plus one retry after ~1s backoff, then nothing.
	time.Sleep(3 * time.Second)
	if got := calls.Load(); got != 2 {
		t.Errorf("handler ran %d times, want 2", got)
	}
}

func TestQueueHandlerTimeout(t *testing.T) {
	q := New(Options{Workers: 1, MaxRetries: 1, JobTimeout: 50 * time.Millisecond})
	defer q.Stop(context.Background())

	timedOut := make(chan struct{}, 4)
	err := q.Start(context.Background(), func(ctx context.Context, job jobs.ImportJob) error {
		<-ctx.Done()
		timedOut <- struct{}{}
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := q.PublishImport(context.Background(), uuid.New()); err != nil {
		t.Fatalf("PublishImport() error: %v", err)
	}

	select {
	case <-timedOut:
	case <-time.After(2 * time.Second):
		t.Fatal("handler context never expired")
	}
}

func TestStoppedQueueRejectsPublish(t *testing.T) {
	q := New(Options{Workers: 1})
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	if err := q.PublishImport(context.Background(), uuid.New()); err == nil {
		t.Error("PublishImport() succeeded on a stopped queue")
	}

	// Stop is idempotent.
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error: %v", err)
	}
}
