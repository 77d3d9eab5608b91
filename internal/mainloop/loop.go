// Package mainloop provides the single execution context that owns all
// window system calls. Producers on other goroutines hand work to it with
// Post or Do; the loop never blocks on timers itself.
package mainloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Do once the loop has shut down.
var ErrStopped = errors.New("main loop stopped")

const defaultQueueSize = 256

// Loop runs posted closures one at a time on the goroutine that called Run.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// New creates a loop with a bounded task queue.
func New(queueSize int, logger *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at shutdown
// are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	l.logger.Debug("main loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("main loop stopped")
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

// Post queues fn. It blocks only while the queue is full and returns false
// once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to return. Calling Do from inside a
// task deadlocks; tasks call their work directly instead.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.tasks <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run(fn func()) {
	// Recover from panics so one bad task cannot take the daemon down.
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("main loop task panic recovered", "error", err)
		}
	}()
	fn()
}
