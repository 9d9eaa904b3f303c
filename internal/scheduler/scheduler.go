package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateJob means a job with the same identity is already queued
	// or running.
	ErrDuplicateJob = errors.New("job already in flight")

	// ErrQueueFull means the submission queue is saturated; the caller
	// should retry on its next tick.
	ErrQueueFull = errors.New("job queue full")
)

type job struct {
	id string
	fn func(ctx context.Context) error
}

// Scheduler runs submitted jobs on a fixed pool of workers. Job identity is
// the dedupe key: a second Submit with the same id is rejected until the
// first finishes, which is what protects accounts from overlapping syncs.
type Scheduler struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	queue    chan job
	workers  int
	wg       sync.WaitGroup
	logger   *zap.Logger
}

func New(workers int, logger *zap.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		inFlight: make(map[string]struct{}),
		queue:    make(chan job, workers*16),
		workers:  workers,
		logger:   logger,
	}
}

// Start launches the worker pool. Workers drain the queue until Stop closes
// it; ctx cancels the jobs themselves.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	close(s.queue)
	s.wg.Wait()
}

// Submit enqueues fn under the given identity. Returns ErrDuplicateJob while
// an identical id is queued or running, ErrQueueFull when the queue cannot
// take more.
func (s *Scheduler) Submit(id string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if _, exists := s.inFlight[id]; exists {
		s.mu.Unlock()
		return ErrDuplicateJob
	}
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()

	select {
	case s.queue <- job{id: id, fn: fn}:
		return nil
	default:
		s.release(id)
		return ErrQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for j := range s.queue {
		s.run(ctx, j)
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	defer s.release(j.id)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job_id", j.id),
				zap.Any("panic", r))
		}
	}()

	if err := j.fn(ctx); err != nil {
		s.logger.Error("job failed",
			zap.String("job_id", j.id),
			zap.Error(err))
	}
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// UpdateJobID builds the dedupe key for an account sync job.
func UpdateJobID(accountID string) string {
	return fmt.Sprintf("account-update-%s", accountID)
}

// InitializeJobID builds the dedupe key for an account initialization job.
func InitializeJobID(accountID string) string {
	return fmt.Sprintf("account-initialize-%s", accountID)
}

// PriceJobID builds the dedupe key for a price recalculation job.
func PriceJobID(accountID string) string {
	return fmt.Sprintf("price-change-%s", accountID)
}
