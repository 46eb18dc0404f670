package reactive

import (
	"log/slog"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/scheduler"
)

// Option configures a Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	sched      *scheduler.Scheduler
	host       scheduler.Host
	logger     *slog.Logger
	onError    func(error)
	observers  []scheduler.Observer
	maxUpdates int
}

// WithScheduler uses an existing scheduler. Host, observer and update limit
// options are ignored when it is set.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(c *runtimeConfig) { c.sched = s }
}

// WithHost sets the host the runtime's scheduler defers flushes on.
func WithHost(h scheduler.Host) Option {
	return func(c *runtimeConfig) { c.host = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *runtimeConfig) { c.logger = l }
}

// WithErrorHandler sets the single channel all isolated failures go to:
// watcher failures during a flush, failures of a watcher's first run and of
// lazy evaluation, and next-tick callback panics.
func WithErrorHandler(fn func(error)) Option {
	return func(c *runtimeConfig) { c.onError = fn }
}

// WithObserver adds a scheduler observer.
func WithObserver(o scheduler.Observer) Option {
	return func(c *runtimeConfig) { c.observers = append(c.observers, o) }
}

// WithMaxUpdateCount sets the scheduler's per-flush run limit per watcher.
func WithMaxUpdateCount(n int) Option {
	return func(c *runtimeConfig) { c.maxUpdates = n }
}

// Runtime is one independent reactive graph.
type Runtime struct {
	// stack holds running watchers. A nil entry suspends tracking.
	stack []*Watcher

	sched    *scheduler.Scheduler
	registry map[identity]any
	logger   *slog.Logger
	onError  func(error)
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	cfg := runtimeConfig{maxUpdates: scheduler.DefaultMaxUpdateCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := &Runtime{
		registry: make(map[identity]any),
		logger:   cfg.logger,
		onError:  cfg.onError,
	}
	if rt.logger == nil {
		rt.logger = slog.Default().With("component", "reactive")
	}

	rt.sched = cfg.sched
	if rt.sched == nil {
		sopts := []scheduler.Option{
			scheduler.WithHost(cfg.host),
			scheduler.WithLogger(rt.logger.With("component", "scheduler")),
			scheduler.WithMaxUpdateCount(cfg.maxUpdates),
		}
		if rt.onError != nil {
			sopts = append(sopts, scheduler.WithErrorHandler(rt.onError))
		}
		for _, o := range cfg.observers {
			sopts = append(sopts, scheduler.WithObserver(o))
		}
		rt.sched = scheduler.New(sopts...)
	}
	return rt
}

// Scheduler returns the scheduler eager watchers are queued on.
func (rt *Runtime) Scheduler() *scheduler.Scheduler {
	return rt.sched
}

// Target returns the watcher that Dep reads are currently attributed to.
func (rt *Runtime) Target() *Watcher {
	if len(rt.stack) == 0 {
		return nil
	}
	return rt.stack[len(rt.stack)-1]
}

// Depth returns the size of the running-watcher stack.
func (rt *Runtime) Depth() int {
	return len(rt.stack)
}

func (rt *Runtime) pushTarget(w *Watcher) {
	rt.stack = append(rt.stack, w)
}

func (rt *Runtime) popTarget() {
	rt.stack[len(rt.stack)-1] = nil
	rt.stack = rt.stack[:len(rt.stack)-1]
}

// Untracked runs fn without attributing reads to the current watcher.
func (rt *Runtime) Untracked(fn func()) {
	rt.pushTarget(nil)
	defer rt.popTarget()
	fn()
}

// NextTick runs fn after the pending flush, if any, has finished.
func (rt *Runtime) NextTick(fn func()) {
	rt.sched.NextTick(fn)
}

// report sends an isolated failure to the error handler.
func (rt *Runtime) report(err *errors.Error) {
	rt.logger.Error(err.Message, "code", err.Code, "detail", err.Detail, "error", err.Wrapped)
	if rt.onError != nil {
		rt.onError(err)
	}
}
