package reactive

import (
	"encoding/json"
	"slices"
)

// List is an observable sequence. Its mutating methods are the only way to
// change it; each one performs the change, observes inserted items, then
// notifies the list's Dep once.
type List struct {
	rt     *Runtime
	dep    *Dep
	items  []any
	source any
}

func (rt *Runtime) newList(src any, items []any) *List {
	return &List{
		rt:     rt,
		dep:    rt.NewDep(),
		items:  rt.observeAll(items),
		source: src,
	}
}

// Dep returns the list's node-level Dep.
func (l *List) Dep() *Dep {
	return l.dep
}

// Len returns the number of items.
func (l *List) Len() int {
	l.dep.Depend()
	return len(l.items)
}

// At returns the item at i, or nil when i is out of range.
func (l *List) At(i int) any {
	l.dep.Depend()
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Each calls fn for every item until fn returns false.
func (l *List) Each(fn func(i int, item any) bool) {
	l.dep.Depend()
	for i, item := range slices.Clone(l.items) {
		if !fn(i, item) {
			return
		}
	}
}

// Slice returns a copy of the items.
func (l *List) Slice() []any {
	l.dep.Depend()
	return slices.Clone(l.items)
}

// Push appends items and returns the new length.
func (l *List) Push(items ...any) int {
	l.items = append(l.items, l.rt.observeAll(items)...)
	l.dep.Notify()
	return len(l.items)
}

// Pop removes and returns the last item. It does nothing on an empty list.
func (l *List) Pop() (any, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	last := l.items[len(l.items)-1]
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
	l.dep.Notify()
	return last, true
}

// Shift removes and returns the first item. It does nothing on an empty list.
func (l *List) Shift() (any, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	first := l.items[0]
	l.items = slices.Delete(l.items, 0, 1)
	l.dep.Notify()
	return first, true
}

// Unshift prepends items and returns the new length.
func (l *List) Unshift(items ...any) int {
	l.items = slices.Insert(l.items, 0, l.rt.observeAll(items)...)
	l.dep.Notify()
	return len(l.items)
}

// Splice removes deleteCount items at start, inserts items in their place
// and returns the removed items. A negative start counts from the end; start
// and deleteCount are clamped to the list.
func (l *List) Splice(start, deleteCount int, items ...any) []any {
	n := len(l.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := slices.Clone(l.items[start : start+deleteCount])
	l.items = slices.Replace(l.items, start, start+deleteCount, l.rt.observeAll(items)...)
	l.dep.Notify()
	return removed
}

// SetAt replaces the item at i. Out of range indexes are ignored.
func (l *List) SetAt(i int, item any) {
	if i < 0 || i >= len(l.items) {
		return
	}
	l.Splice(i, 1, item)
}

// Sort orders the items with less. The sort is stable.
func (l *List) Sort(less func(a, b any) bool) {
	slices.SortStableFunc(l.items, func(a, b any) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	})
	l.dep.Notify()
}

// Reverse reverses the items in place.
func (l *List) Reverse() {
	slices.Reverse(l.items)
	l.dep.Notify()
}

// Source returns the Go value the list was created from, if any.
func (l *List) Source() any {
	return l.source
}

// Raw returns a plain copy of the list's current contents.
func (l *List) Raw() []any {
	return Unwrap(l).([]any)
}

// MarshalJSON encodes the current contents without tracking.
func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(Unwrap(l))
}
