package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"fileconverter/internal/infra"
)

// ErrQueueFull is returned when the task queue cannot accept more work.
var ErrQueueFull = errors.New("task queue full")

// Task is a background unit of work that outlives the request spawning it.
type Task func(ctx context.Context)

// Dispatcher runs background tasks on a bounded worker pool. Enqueue never
// blocks: a full queue is an error the caller turns into a failed job.
type Dispatcher struct {
	tasks   chan Task
	workers int
	logger  infra.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewDispatcher creates a dispatcher with the given worker count and queue depth.
func NewDispatcher(workers, depth int, logger infra.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 16
	}
	return &Dispatcher{
		tasks:   make(chan Task, depth),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info().Int("workers", d.workers).Int("depth", cap(d.tasks)).Msg("dispatcher started")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-d.tasks:
			if !ok {
				return
			}
			task(ctx)
		}
	}
}

// Enqueue submits a task without blocking.
func (d *Dispatcher) Enqueue(task Task) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrQueueFull
	}

	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels the workers and waits up to timeout for them to drain.
func (d *Dispatcher) Stop(timeout time.Duration) {
	d.mu.Lock()
	if d.closed || !d.started {
		d.closed = true
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("dispatcher stopped")
	case <-time.After(timeout):
		d.logger.Warn().Msg("dispatcher stop timeout, abandoning workers")
	}
}
