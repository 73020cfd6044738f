// Package jobs provides the bounded in-memory job queue, its worker
// pool, and the periodic scheduler that feeds it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadflow/internal/pkg/logger"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("jobs: queue full")

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("jobs: queue stopped")

const (
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
)

// Job is one unit of work. Fn is retried on error with exponential
// backoff; after Retries attempts it lands in the dead-letter list.
type Job struct {
	ID      string
	Name    string
	Fn      func(ctx context.Context) error
	Retries int
	Backoff time.Duration
}

// DeadJob is a job that exhausted its retries.
type DeadJob struct {
	JobID string
	Name  string
	Err   string
}

// Queue is a bounded FIFO with N worker goroutines.
type Queue struct {
	jobs    chan Job
	workers int

	mu      sync.Mutex
	dead    []DeadJob
	stopped bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewQueue sizes the queue and its worker pool. workers < 1 falls back
// to 2, matching the daemon default.
func NewQueue(capacity, workers int) *Queue {
	if capacity < 1 {
		capacity = 64
	}
	if workers < 1 {
		workers = 2
	}
	return &Queue{
		jobs:    make(chan Job, capacity),
		workers: workers,
		stop:    make(chan struct{}),
	}
}

// Start launches the workers.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	logger.Info("workers started", "count", q.workers)
}

// Stop signals termination and waits for in-flight jobs to complete.
// Queued but unstarted jobs are abandoned.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.stop)
	q.wg.Wait()
	logger.Info("workers stopped")
}

// Enqueue submits a job without blocking. Zero Retries/Backoff get the
// defaults.
func (q *Queue) Enqueue(j Job) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	q.mu.Unlock()

	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Retries == 0 {
		j.Retries = defaultRetries
	}
	if j.Backoff == 0 {
		j.Backoff = defaultBackoff
	}
	select {
	case q.jobs <- j:
		logger.Debug("job enqueued", "job_id", j.ID, "job", j.Name)
		return nil
	default:
		return ErrQueueFull
	}
}

// DeadLetter returns a copy of the dead-letter list.
func (q *Queue) DeadLetter() []DeadJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadJob, len(q.dead))
	copy(out, q.dead)
	return out
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.run(ctx, j)
		}
	}
}

// attempt runs Fn once, converting a panic into an error so a bad job
// cannot take down the worker.
func attempt(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (q *Queue) run(ctx context.Context, j Job) {
	var lastErr error
	for n := 1; n <= j.Retries+1; n++ {
		if lastErr = attempt(ctx, j.Fn); lastErr == nil {
			return
		}
		logger.Warn("job attempt failed",
			"job_id", j.ID, "job", j.Name, "attempt", n, "error", lastErr.Error())
		if n > j.Retries {
			break
		}
		delay := j.Backoff * (1 << (n - 1))
		select {
		case <-q.stop:
			// in-flight jobs finish their current attempt but do not
			// wait out further backoff
			q.bury(j, lastErr)
			return
		case <-ctx.Done():
			q.bury(j, ctx.Err())
			return
		case <-time.After(delay):
		}
	}
	q.bury(j, lastErr)
}

func (q *Queue) bury(j Job, err error) {
	q.mu.Lock()
	q.dead = append(q.dead, DeadJob{JobID: j.ID, Name: j.Name, Err: err.Error()})
	q.mu.Unlock()
	logger.Error("job failed", "job_id", j.ID, "job", j.Name, "error", err.Error())
}
