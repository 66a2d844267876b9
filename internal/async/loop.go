// Package async runs closures one at a time on a single goroutine. Anything
// that mutates shared state is posted here so there is exactly one writer.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrClosed = errors.New("loop is shutting down")

// Task runs on the loop goroutine.
type Task func(ctx context.Context)

// Executor is what the loop offers its callers.
type Executor interface {
	Post(ctx context.Context, task Task) error
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	Shutdown(ctx context.Context)
}

type Loop struct {
	logger  *slog.Logger
	timeout time.Duration

	ch   chan Task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Loop)

func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.ch = make(chan Task, n)
		}
	}
}

// WithTaskTimeout bounds each task's context.
func WithTaskTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func NewLoop(logger *slog.Logger, opts ...Option) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		logger:  logger,
		timeout: 30 * time.Second,
		ch:      make(chan Task, 64),
	}
	for _, o := range opts {
		o(l)
	}
	l.start()
	return l
}

func (l *Loop) start() {
	l.once.Do(func() {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.logger.Debug("loop started")
			for task := range l.ch {
				l.run(task)
			}
			l.logger.Debug("loop stopped")
		}()
	})
}

func (l *Loop) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", "panic", r)
		}
	}()
	task(ctx)
}

// Post queues task and returns without waiting for it. When the queue is
// full it blocks until there is room or ctx is done.
func (l *Loop) Post(ctx context.Context, task Task) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.logger.Warn("cannot post: loop is shutting down")
		return ErrClosed
	}
	select {
	case l.ch <- task:
		return nil
	default:
	}
	l.logger.Warn("loop queue full, applying backpressure")
	select {
	case l.ch <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop and waits for its error. fn's context ends with
// the task timeout or with ctx, whichever comes first. If ctx ends first
// the caller stops waiting; fn still runs. Never call Do from a task.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	err := l.Post(ctx, func(tctx context.Context) {
		var ferr error
		defer func() {
			if r := recover(); r != nil {
				ferr = fmt.Errorf("loop task panicked: %v", r)
			}
			done <- ferr
		}()
		fctx, stop := context.WithCancel(tctx)
		defer stop()
		defer context.AfterFunc(ctx, stop)()
		ferr = fn(fctx)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for the queued ones to finish.
func (l *Loop) Shutdown(ctx context.Context) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); l.wg.Wait() }()

	select {
	case <-ctx.Done():
		l.logger.Warn("shutdown interrupted by context")
	case <-done:
		l.logger.Info("loop drained, shutdown complete")
	}
}
