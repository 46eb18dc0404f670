package reactive

// Computed is a cached derived value backed by a lazy watcher.
type Computed[T any] struct {
	rt *Runtime
	w  *Watcher
}

// NewComputed creates a derived value. fn runs on the first Get and again
// only after one of the values it read changes.
func NewComputed[T any](rt *Runtime, fn func() T, opts ...WatchOption) *Computed[T] {
	opts = append([]WatchOption{Lazy()}, opts...)
	w := rt.Watch(func() any { return fn() }, opts...)
	return &Computed[T]{rt: rt, w: w}
}

// Get returns the value, recomputing it if stale. When called from a running
// watcher, that watcher also comes to depend on everything fn read.
func (c *Computed[T]) Get() T {
	v := c.w.Evaluate()
	if c.rt.Target() != nil {
		c.w.Depend()
	}
	t, _ := v.(T)
	return t
}

// Peek returns the value without subscribing the running watcher.
func (c *Computed[T]) Peek() T {
	var v any
	c.rt.Untracked(func() { v = c.w.Evaluate() })
	t, _ := v.(T)
	return t
}

// Watcher returns the underlying lazy watcher.
func (c *Computed[T]) Watcher() *Watcher {
	return c.w
}
