// Package tasks runs fire-and-forget work decoupled from the request that
// triggered it. Delivery is at-least-once: a failing task is retried with
// capped backoff before being dropped with an error log.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Func is one unit of asynchronous work. It must be safe to run more than
// once.
type Func func(ctx context.Context) error

type task struct {
	name string
	fn   Func
}

type Executor struct {
	lg         *zap.SugaredLogger
	queue      chan task
	wg         sync.WaitGroup
	maxRetries int
	baseDelay  time.Duration

	mu     sync.Mutex
	closed bool
}

// Option tweaks executor behavior, mainly for tests.
type Option func(*Executor)

// WithRetry overrides the retry count and the base backoff delay.
func WithRetry(retries int, base time.Duration) Option {
	return func(e *Executor) {
		e.maxRetries = retries
		e.baseDelay = base
	}
}

// NewExecutor starts workers goroutines draining the queue.
func NewExecutor(lg *zap.SugaredLogger, workers int, opts ...Option) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		lg:         lg,
		queue:      make(chan task, 256),
		maxRetries: 5,
		baseDelay:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

// Enqueue schedules fn for execution. It never reports the outcome back;
// failures are retried and ultimately logged.
func (e *Executor) Enqueue(name string, fn Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.lg.Errorw("task dropped, executor closed", "task", name)
		return
	}
	e.queue <- task{name: name, fn: fn}
}

// Close stops accepting tasks, drains the queue and waits for workers.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for t := range e.queue {
		e.run(t)
	}
}

func (e *Executor) run(t task) {
	delay := e.baseDelay
	for attempt := 0; ; attempt++ {
		err := t.fn(context.Background())
		if err == nil {
			return
		}
		if attempt >= e.maxRetries {
			e.lg.Errorw("task failed permanently", "task", t.name, "attempts", attempt+1, "error", err)
			return
		}
		e.lg.Warnw("task failed, retrying", "task", t.name, "attempt", attempt+1, "error", err)
		time.Sleep(delay)
		if delay < 5*time.Second {
			delay *= 2
		}
	}
}
