package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room
var ErrQueueFull = goerrors.New("work queue is full", goerrors.CategoryOperation)

// ErrQueueClosed is returned by Enqueue after Stop
var ErrQueueClosed = goerrors.New("work queue is closed", goerrors.CategoryOperation)

// Task is a unit of background work
type Task func(ctx context.Context) error

// TaskObserver is called after every task with its name, run time and result
type TaskObserver func(name string, elapsed time.Duration, err error)

type job struct {
	name string
	task Task
}

// WorkQueue runs tasks on a fixed pool of workers. Task failures are logged
// and never reach the code that enqueued them.
type WorkQueue struct {
	tasks    chan job
	workers  int
	timeout  time.Duration
	logger   Logger
	observer TaskObserver

	mu      sync.RWMutex
	closed  bool
	started bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// WorkQueueOption configures a WorkQueue
type WorkQueueOption func(*WorkQueue)

// WithWorkers sets the number of workers, default 2
func WithWorkers(n int) WorkQueueOption {
	return func(q *WorkQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets the buffer size, default 100
func WithQueueSize(n int) WorkQueueOption {
	return func(q *WorkQueue) {
		if n > 0 {
			q.tasks = make(chan job, n)
		}
	}
}

// WithTaskTimeout bounds every task run, default 30s
func WithTaskTimeout(d time.Duration) WorkQueueOption {
	return func(q *WorkQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithQueueLogger sets the logger
func WithQueueLogger(logger Logger) WorkQueueOption {
	return func(q *WorkQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithTaskObserver registers a callback run after each task
func WithTaskObserver(observer TaskObserver) WorkQueueOption {
	return func(q *WorkQueue) {
		q.observer = observer
	}
}

// NewWorkQueue creates a stopped queue. Tasks enqueued before Start are
// buffered.
func NewWorkQueue(opts ...WorkQueueOption) *WorkQueue {
	q := &WorkQueue{
		tasks:   make(chan job, 100),
		workers: 2,
		timeout: 30 * time.Second,
		logger:  defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// Start launches the workers. Cancelling ctx aborts running tasks.
func (q *WorkQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < q.workers; i++ {
		q.group.Go(func() error {
			q.work(ctx)
			return nil
		})
	}

	q.logger.Debug("work queue started", "workers", q.workers, "size", cap(q.tasks))
}

// Enqueue hands a task to the workers without blocking
func (q *WorkQueue) Enqueue(name string, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- job{name: name, task: task}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for buffered ones to finish. If ctx ends
// first, running tasks are cancelled and ctx.Err() is returned.
func (q *WorkQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	started := q.started
	q.mu.Unlock()

	if !started {
		dropped := make([]string, 0, len(q.tasks))
		for j := range q.tasks {
			dropped = append(dropped, j.name)
		}
		if len(dropped) > 0 {
			q.logger.Warn("work queue stopped before start, tasks discarded", "count", len(dropped), "tasks", dropped)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- q.group.Wait()
	}()

	select {
	case err := <-done:
		q.cancel()
		return err
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *WorkQueue) work(ctx context.Context) {
	for j := range q.tasks {
		q.run(ctx, j)
	}
}

func (q *WorkQueue) run(ctx context.Context, j job) {
	taskCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	start := time.Now()
	err := q.safeRun(taskCtx, j)
	elapsed := time.Since(start)

	if err != nil {
		q.logger.Error("background task failed", "task", j.name, "error", err, "elapsed", elapsed)
	} else {
		q.logger.Debug("background task done", "task", j.name, "elapsed", elapsed)
	}

	if q.observer != nil {
		q.observer(j.name, elapsed, err)
	}
}

func (q *WorkQueue) safeRun(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", j.name, r)
		}
	}()
	return j.task(ctx)
}
