package reactive

import "slices"

// Owner is a teardown scope. Disposing it tears down its watchers, disposes
// its child owners and runs its cleanup functions.
//
// Owners form a hierarchy that mirrors the component tree: a child owner is
// disposed together with its parent.
type Owner struct {
	id       uint64
	parent   *Owner
	children []*Owner
	watchers []*Watcher
	cleanups []func()
	disposed bool
}

// NewOwner creates an Owner. If parent is non-nil the new owner is
// registered as its child.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{id: nextID(), parent: parent}
	if parent != nil {
		parent.children = append(parent.children, o)
	}
	return o
}

// ID returns the owner's unique identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has been called.
func (o *Owner) IsDisposed() bool {
	return o.disposed
}

// OnCleanup registers fn to run when the owner is disposed. On a disposed
// owner fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed {
		fn()
		return
	}
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) addWatcher(w *Watcher) {
	if o.disposed {
		w.active = false
		return
	}
	o.watchers = append(o.watchers, w)
}

func (o *Owner) removeWatcher(w *Watcher) {
	o.watchers = slices.DeleteFunc(o.watchers, func(x *Watcher) bool { return x == w })
}

// Dispose disposes children in reverse order, tears down watchers, then
// runs cleanups in reverse order. Calling Dispose twice is a no-op.
func (o *Owner) Dispose() {
	if o.disposed {
		return
	}
	o.disposed = true

	if o.parent != nil {
		o.parent.children = slices.DeleteFunc(o.parent.children, func(c *Owner) bool { return c == o })
	}

	children := o.children
	o.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	watchers := o.watchers
	o.watchers = nil
	for _, w := range watchers {
		w.owner = nil
		w.Teardown()
	}

	cleanups := o.cleanups
	o.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
