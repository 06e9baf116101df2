// Package delayed runs cancellable one-shot tasks after a delay. Pending tasks
// can be enumerated, flushed or dropped deterministically at shutdown.
package delayed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTaskTimeout = 10 * time.Second

type ID string

type Task func(ctx context.Context) error

type entry struct {
	timer *time.Timer
	fn    Task
}

type Scheduler struct {
	logger      *slog.Logger
	taskTimeout time.Duration

	mu      sync.Mutex
	pending map[ID]*entry
	closed  bool
	running sync.WaitGroup
}

func New(logger *slog.Logger, taskTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}
	return &Scheduler{
		logger:      logger,
		taskTimeout: taskTimeout,
		pending:     make(map[ID]*entry),
	}
}

// Schedule runs fn once after delay. It returns an empty ID when the
// scheduler is closed.
func (s *Scheduler) Schedule(delay time.Duration, fn Task) ID {
	if fn == nil {
		return ""
	}
	id := ID(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	e := &entry{fn: fn}
	e.timer = time.AfterFunc(delay, func() { s.fire(id) })
	s.pending[id] = e
	return id
}

// Cancel drops a pending task. It reports false when the task already ran,
// is running, or was never scheduled.
func (s *Scheduler) Cancel(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	e.timer.Stop()
	return true
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs every pending task now and waits for them until ctx is done.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := make([]*entry, 0, len(s.pending))
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
		batch = append(batch, e)
	}
	var wg sync.WaitGroup
	wg.Add(len(batch))
	s.running.Add(len(batch))
	s.mu.Unlock()

	for _, e := range batch {
		go func(fn Task) {
			defer wg.Done()
			s.run(fn)
		}(e.fn)
	}
	return wait(ctx, &wg)
}

// Close drops all pending tasks and waits for running ones until ctx is done.
// It returns the number of dropped tasks.
func (s *Scheduler) Close(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, nil
	}
	s.closed = true
	dropped := len(s.pending)
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	return dropped, wait(ctx, &s.running)
}

func (s *Scheduler) fire(id ID) {
	s.mu.Lock()
	e, ok := s.pending[id]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.running.Add(1)
	s.mu.Unlock()
	s.run(e.fn)
}

// run executes fn and balances the running counter taken by its caller.
func (s *Scheduler) run(fn Task) {
	defer s.running.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Debug("delayed_task_failed", "error", err.Error())
	}
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
