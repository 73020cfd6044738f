package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/ignite/leadflow/internal/pkg/logger"
)

// Scheduler enqueues a job on every tick of each registered interval.
// Ticks are never skipped because a prior cycle still runs; overlap
// control is left to conservative intervals.
type Scheduler struct {
	queue *Queue

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(queue *Queue) *Scheduler {
	return &Scheduler{queue: queue, stop: make(chan struct{})}
}

// Every registers a periodic job. The first enqueue happens after one
// full interval.
func (s *Scheduler) Every(interval time.Duration, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.queue.Enqueue(job); err != nil {
					if errors.Is(err, ErrStopped) {
						return
					}
					logger.Warn("scheduled enqueue failed", "job", job.Name, "error", err.Error())
				}
			}
		}
	}()
}

// Stop halts all tickers; no further jobs are enqueued.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stop)
	s.wg.Wait()
}

// RunNow bypasses the tickers and enqueues immediately.
func (s *Scheduler) RunNow(job Job) error {
	return s.queue.Enqueue(job)
}
