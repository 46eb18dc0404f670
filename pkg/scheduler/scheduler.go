package scheduler

import (
	"cmp"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/vango-dev/ripple/internal/errors"
)

// DefaultMaxUpdateCount is how many times a single job may run within one
// flush before it is treated as an update loop.
const DefaultMaxUpdateCount = 100

// Job is a unit of work the scheduler can run. IDs order jobs within a flush
// and identify them for deduplication; they must be unique and stable.
type Job interface {
	ID() uint64
	Run() error
}

// Named is implemented by jobs that carry a human readable name for logs and
// metrics.
type Named interface {
	Name() string
}

// Host defers fn until the current synchronous turn has finished.
type Host interface {
	Defer(fn func())
}

// State is the scheduler's position in its flush cycle.
type State uint8

const (
	// Idle means no flush is requested.
	Idle State = iota
	// Collecting means a flush is requested but has not started.
	Collecting
	// Flushing means the queue is being drained.
	Flushing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Flushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// ErrorHandler receives every failure the scheduler isolates.
type ErrorHandler func(err error)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHost sets the host used to defer flushes.
func WithHost(h Host) Option {
	return func(s *Scheduler) {
		if h != nil {
			s.host = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithErrorHandler sets the handler that receives isolated failures.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// WithObserver adds a flush observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithMaxUpdateCount sets the per-flush run limit for a single job.
// Zero or a negative value disables the check.
func WithMaxUpdateCount(n int) Option {
	return func(s *Scheduler) {
		s.maxUpdates = n
	}
}

// Scheduler collects jobs and runs them in batched, ID-ordered flushes.
type Scheduler struct {
	host      Host
	logger    *slog.Logger
	onError   ErrorHandler
	observers Observers

	maxUpdates int

	// queue holds pending jobs. It is sorted once at the start of a flush and
	// kept sorted by Enqueue while flushing.
	queue []Job
	has   map[uint64]struct{}

	// runs counts executions per job ID within the current flush.
	runs map[uint64]int

	flushing bool

	// waiting is set while a flush is requested and not yet finished.
	waiting bool

	// pending is set while a callback drain is deferred on the host.
	pending   bool
	callbacks []func()
}

// New creates a Scheduler. Without WithHost, deferred work goes to a private
// Microtasks queue reachable through Host.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		has:        make(map[uint64]struct{}),
		runs:       make(map[uint64]int),
		maxUpdates: DefaultMaxUpdateCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == nil {
		s.host = &Microtasks{}
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "scheduler")
	}
	return s
}

// Host returns the host flushes are deferred on.
func (s *Scheduler) Host() Host {
	return s.host
}

// State reports where the scheduler is in its cycle.
func (s *Scheduler) State() State {
	switch {
	case s.flushing:
		return Flushing
	case s.waiting:
		return Collecting
	default:
		return Idle
	}
}

// Pending returns the number of queued jobs.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Enqueue adds job to the pending set. A job that is already pending is
// ignored. While a flush is running the job is inserted after the last
// pending job with a smaller ID, so it runs later in the same flush.
func (s *Scheduler) Enqueue(job Job) {
	id := job.ID()
	if _, ok := s.has[id]; ok {
		return
	}
	s.has[id] = struct{}{}

	if !s.flushing {
		s.queue = append(s.queue, job)
	} else {
		i := len(s.queue) - 1
		for i >= 0 && s.queue[i].ID() > id {
			i--
		}
		s.queue = slices.Insert(s.queue, i+1, job)
	}

	if !s.waiting {
		s.waiting = true
		s.NextTick(s.flush)
	}
}

// NextTick defers fn until after the current turn. Callbacks queued before a
// pending flush runs are executed after it, in the order they were queued.
// Callbacks queued while callbacks are draining run on the following tick.
func (s *Scheduler) NextTick(fn func()) {
	s.callbacks = append(s.callbacks, fn)
	if !s.pending {
		s.pending = true
		s.host.Defer(s.flushCallbacks)
	}
}

func (s *Scheduler) flushCallbacks() {
	s.pending = false
	callbacks := s.callbacks
	s.callbacks = nil
	for _, cb := range callbacks {
		if err := safeCall(cb); err != nil {
			s.report(errors.FromPanic(err, "R004"))
		}
	}
}

// safeCall runs fn and returns the recovered panic value, if any.
func safeCall(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}

// flush drains the queue. It keeps going until the queue is empty because
// running a job may enqueue more jobs.
func (s *Scheduler) flush() {
	s.flushing = true
	defer s.endFlush()
	start := time.Now()

	slices.SortFunc(s.queue, func(a, b Job) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	pending := len(s.queue)
	s.notify(func(o Observer) { o.FlushStarted(pending) })
	s.logger.Debug("flush started", "pending", pending)

	ran := 0
	for len(s.queue) > 0 {
		job := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		id := job.ID()
		delete(s.has, id)

		if s.maxUpdates > 0 {
			s.runs[id]++
			if n := s.runs[id]; n > s.maxUpdates {
				if n == s.maxUpdates+1 {
					s.report(errors.New("R003").
						WithDetailf("%s ran more than %d times in one flush", jobName(job), s.maxUpdates))
				}
				continue
			}
		}

		s.runJob(job)
		ran++
	}
	s.endFlush()

	elapsed := time.Since(start)
	s.logger.Debug("flush finished", "ran", ran, "duration", elapsed)
	s.notify(func(o Observer) { o.FlushFinished(ran, elapsed) })
}

// endFlush returns the scheduler to idle. Jobs still queued, which only
// happens when a flush was cut short, get a flush of their own.
func (s *Scheduler) endFlush() {
	if !s.flushing {
		return
	}
	clear(s.runs)
	s.flushing = false
	s.waiting = false
	if len(s.queue) > 0 {
		s.waiting = true
		s.NextTick(s.flush)
	}
}

func (s *Scheduler) runJob(job Job) {
	start := time.Now()
	err := runSafely(job)
	elapsed := time.Since(start)
	if err != nil {
		rerr := errors.FromError(err, "R001")
		if rerr.Detail == "" {
			// The job may have returned a shared value.
			cp := *rerr
			rerr = cp.WithDetail(jobName(job))
		}
		err = rerr
		s.report(rerr)
	}
	s.notify(func(o Observer) { o.JobFinished(job, elapsed, err) })
}

func runSafely(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(r, "R001")
		}
	}()
	return job.Run()
}

// notify calls fn for every observer. A panicking observer is logged and
// does not stop the flush or the other observers.
func (s *Scheduler) notify(fn func(Observer)) {
	for _, o := range s.observers {
		if r := safeCall(func() { fn(o) }); r != nil {
			s.logger.Error("flush observer panicked", "panic", r)
		}
	}
}

func (s *Scheduler) report(err *errors.Error) {
	s.logger.Error(err.Message, "code", err.Code, "detail", err.Detail, "error", err.Wrapped)
	if s.onError == nil {
		return
	}
	if r := safeCall(func() { s.onError(err) }); r != nil {
		s.logger.Error("error handler panicked", "code", err.Code, "panic", r)
	}
}

func jobName(job Job) string {
	if n, ok := job.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return "job #" + strconv.FormatUint(job.ID(), 10)
}
