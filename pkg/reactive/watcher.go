package reactive

import (
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vango-dev/ripple/internal/errors"
)

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// Lazy makes the watcher compute only when its value is read while dirty.
func Lazy() WatchOption {
	return func(w *Watcher) { w.lazy = true }
}

// Named sets the name used in logs, errors and metrics.
func Named(name string) WatchOption {
	return func(w *Watcher) { w.name = name }
}

// OwnedBy registers the watcher with o so that disposing o tears it down.
func OwnedBy(o *Owner) WatchOption {
	return func(w *Watcher) { w.owner = o }
}

// Watcher is a computation unit: a closure whose Dep reads are recorded
// while it runs, and which is invalidated when any of them change.
type Watcher struct {
	rt    *Runtime
	id    uint64
	name  string
	owner *Owner

	fn    func() any
	value any
	err   error

	lazy   bool
	dirty  bool
	active bool

	// deps are the deps read during the last completed run; newDeps collects
	// the deps of the run in progress.
	deps    mapset.Set[*Dep]
	newDeps mapset.Set[*Dep]
}

// Watch creates a watcher for fn. An eager watcher runs immediately; a lazy
// one waits until its value is first read.
func (rt *Runtime) Watch(fn func() any, opts ...WatchOption) *Watcher {
	w := &Watcher{
		rt:      rt,
		id:      nextID(),
		fn:      fn,
		active:  true,
		deps:    mapset.NewThreadUnsafeSet[*Dep](),
		newDeps: mapset.NewThreadUnsafeSet[*Dep](),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.dirty = w.lazy
	if w.owner != nil {
		w.owner.addWatcher(w)
	}
	if !w.lazy {
		if err := w.Run(); err != nil {
			rt.report(errors.FromError(err, "R001"))
		}
	}
	return w
}

// Effect creates an eager watcher for a closure with no result.
func (rt *Runtime) Effect(fn func(), opts ...WatchOption) *Watcher {
	return rt.Watch(func() any {
		fn()
		return nil
	}, opts...)
}

// ID returns the watcher's creation sequence number.
func (w *Watcher) ID() uint64 {
	return w.id
}

// Name returns the watcher's name, or a generated one.
func (w *Watcher) Name() string {
	if w.name != "" {
		return w.name
	}
	return "watcher #" + strconv.FormatUint(w.id, 10)
}

// Lazy reports whether the watcher is lazy.
func (w *Watcher) Lazy() bool {
	return w.lazy
}

// Dirty reports whether a lazy watcher's cached value is stale.
func (w *Watcher) Dirty() bool {
	return w.dirty
}

// Active reports whether the watcher has not been torn down.
func (w *Watcher) Active() bool {
	return w.active
}

// Err returns the error of the most recent run, if it failed.
func (w *Watcher) Err() error {
	return w.err
}

// DepCount returns the number of deps read during the last run.
func (w *Watcher) DepCount() int {
	return w.deps.Cardinality()
}

// get runs the closure with w on top of the stack and swaps in the deps it
// read. The stack is restored even if the closure panics.
func (w *Watcher) get() (value any, err error) {
	w.rt.pushTarget(w)
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(r, "R001").WithDetail(w.Name())
		}
		w.rt.popTarget()
		w.cleanupDeps()
	}()
	return w.fn(), nil
}

func (w *Watcher) addDep(d *Dep) {
	if w.newDeps.Contains(d) {
		return
	}
	w.newDeps.Add(d)
	if !w.deps.Contains(d) {
		d.Subscribe(w)
	}
}

// cleanupDeps unsubscribes from deps the last run did not read.
func (w *Watcher) cleanupDeps() {
	for _, d := range w.deps.ToSlice() {
		if !w.newDeps.Contains(d) {
			d.Unsubscribe(w)
		}
	}
	w.deps, w.newDeps = w.newDeps, w.deps
	w.newDeps.Clear()
}

// Run re-runs the closure and stores its result. On failure the previous
// value is kept and the error returned. The scheduler calls Run for eager
// watchers.
func (w *Watcher) Run() error {
	if !w.active {
		return nil
	}
	value, err := w.get()
	w.err = err
	if err != nil {
		return err
	}
	w.value = value
	return nil
}

// Invalidate marks a lazy watcher dirty or queues an eager one. It never
// runs the closure synchronously.
func (w *Watcher) Invalidate() {
	if !w.active {
		return
	}
	if w.lazy {
		w.dirty = true
		return
	}
	w.rt.sched.Enqueue(w)
}

// Evaluate recomputes a dirty lazy watcher and returns its value. A failed
// evaluation is reported and the last good value returned.
func (w *Watcher) Evaluate() any {
	if w.dirty && w.active {
		if err := w.Run(); err != nil {
			w.rt.report(errors.FromError(err, "R001"))
		}
		w.dirty = false
	}
	return w.value
}

// Value returns the current value, evaluating a lazy watcher first.
func (w *Watcher) Value() any {
	if w.lazy {
		return w.Evaluate()
	}
	return w.value
}

// Depend subscribes the running watcher to every dep w read, so a watcher
// that reads a lazy value is invalidated when that value's inputs change.
func (w *Watcher) Depend() {
	for _, d := range w.deps.ToSlice() {
		d.Depend()
	}
}

// Teardown unsubscribes the watcher from all deps. It never runs again.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	w.active = false
	for _, d := range w.deps.ToSlice() {
		d.Unsubscribe(w)
	}
	w.deps.Clear()
	if w.owner != nil {
		w.owner.removeWatcher(w)
	}
}
