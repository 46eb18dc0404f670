package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/ripple/internal/errors"
)

// ErrLoopClosed is returned when work is submitted to a closed Loop.
var ErrLoopClosed = errors.New("R005")

// defaultLoopBuffer is the capacity of the task channel.
const defaultLoopBuffer = 256

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the loop's logger.
func WithLoopLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithLoopBuffer sets how many submitted tasks may wait before Submit blocks.
func WithLoopBuffer(n int) LoopOption {
	return func(lp *Loop) {
		if n > 0 {
			lp.buffer = n
		}
	}
}

// Loop runs tasks one at a time on a single goroutine and drains its
// microtask queue after every task. It is the Host for a Scheduler whose
// reactive state is touched from more than one goroutine: callers Submit or
// Do their mutations, and the resulting flush runs before the next task.
//
// Defer must only be called from the loop goroutine, which is where the
// scheduler calls it.
type Loop struct {
	logger *slog.Logger
	buffer int

	tasks chan func()
	micro Microtasks

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool
	closed    atomic.Bool
}

// NewLoop creates a Loop. Call Run to start it.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		buffer: defaultLoopBuffer,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default().With("component", "loop")
	}
	l.tasks = make(chan func(), l.buffer)
	return l
}

// Run processes tasks until ctx is cancelled or Close is called. It returns
// ctx.Err() on cancellation and nil after Close.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return errors.Newf(errors.CategoryRuntime, "loop is already running")
	}
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case <-l.quit:
			return nil
		case task := <-l.tasks:
			l.runTask(task)
		}
	}
}

func (l *Loop) runTask(task func()) {
	if r := safeCall(task); r != nil {
		l.logger.Error("task panicked", "panic", r)
	}
	l.drain()
}

func (l *Loop) drain() {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("microtask panicked", "panic", r)
			l.drain()
		}
	}()
	l.micro.Drain()
}

// Defer queues fn to run after the current task. Loop goroutine only.
func (l *Loop) Defer(fn func()) {
	l.micro.Defer(fn)
}

// Submit queues fn to run on the loop goroutine. It blocks while the task
// buffer is full.
func (l *Loop) Submit(fn func()) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.quit:
		return ErrLoopClosed
	}
}

// Do runs fn on the loop goroutine and waits until it and every microtask it
// caused (including a scheduler flush) have finished. Do must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	err := l.Submit(func() {
		defer close(finished)
		defer l.drain()
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Close stops the loop. Tasks not yet started are dropped. Close waits for
// a running task to finish. It must not be called from the loop goroutine.
func (l *Loop) Close() error {
	l.shutdown()
	if l.running.Load() {
		<-l.done
	}
	return nil
}

func (l *Loop) shutdown() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.quit)
	})
}
