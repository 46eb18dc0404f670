package reactive

import "slices"

// Subscriber is anything a Dep can invalidate.
type Subscriber interface {
	// ID identifies the subscriber for deduplication.
	ID() uint64

	// Invalidate tells the subscriber one of its dependencies changed.
	Invalidate()
}

// Dep is the set of subscribers interested in one observable slot.
type Dep struct {
	id   uint64
	rt   *Runtime
	subs []Subscriber
}

// NewDep creates a Dep whose Depend attributes to rt's current watcher.
func (rt *Runtime) NewDep() *Dep {
	return &Dep{id: nextID(), rt: rt}
}

// ID returns the dep's unique identifier.
func (d *Dep) ID() uint64 {
	return d.id
}

// Depend records d as a dependency of the running watcher, if any.
func (d *Dep) Depend() {
	if w := d.rt.Target(); w != nil {
		w.addDep(d)
	}
}

// Subscribe adds s. Subscribing the same subscriber twice is a no-op.
func (d *Dep) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	sid := s.ID()
	for _, existing := range d.subs {
		if existing.ID() == sid {
			return
		}
	}
	d.subs = append(d.subs, s)
}

// Unsubscribe removes s, keeping the order of the remaining subscribers.
func (d *Dep) Unsubscribe(s Subscriber) {
	if s == nil {
		return
	}
	sid := s.ID()
	d.subs = slices.DeleteFunc(d.subs, func(existing Subscriber) bool {
		return existing.ID() == sid
	})
}

// Notify invalidates every subscriber in subscription order. Subscribers
// added or removed while notifying do not affect the current pass.
func (d *Dep) Notify() {
	subs := slices.Clone(d.subs)
	for _, s := range subs {
		s.Invalidate()
	}
}

// Len returns the number of subscribers.
func (d *Dep) Len() int {
	return len(d.subs)
}
