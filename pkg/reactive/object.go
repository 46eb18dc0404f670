package reactive

import (
	"encoding/json"
	"slices"
)

// slot is one reactive property.
type slot struct {
	dep   *Dep
	value any
}

// Object is an observable record. Each property defined at creation (or
// later through Define) has its own Dep.
type Object struct {
	rt  *Runtime
	dep *Dep

	slots map[string]*slot
	keys  []string

	// plain holds properties assigned with Set that were never defined.
	// They are stored but not tracked.
	plain map[string]any

	source any
}

func (rt *Runtime) newObject(src any) *Object {
	return &Object{
		rt:     rt,
		dep:    rt.NewDep(),
		slots:  make(map[string]*slot),
		source: src,
	}
}

func (o *Object) defineSlot(key string, value any) *slot {
	s := &slot{dep: o.rt.NewDep(), value: o.rt.Observe(value)}
	o.slots[key] = s
	o.keys = append(o.keys, key)
	return s
}

// Get returns the value of key. When a watcher is running it is subscribed
// to the property and, if the value is itself observable, to that value's
// node-level Dep.
func (o *Object) Get(key string) any {
	s, ok := o.slots[key]
	if !ok {
		return o.plain[key]
	}
	s.dep.Depend()
	if child := nodeDep(s.value); child != nil {
		child.Depend()
	}
	return s.value
}

// Peek returns the value of key without tracking.
func (o *Object) Peek(key string) any {
	if s, ok := o.slots[key]; ok {
		return s.value
	}
	return o.plain[key]
}

// Set writes key. Writing a value identical to the current one does
// nothing. Otherwise the new value is observed and the property's Dep
// notified. A key that was never defined is stored without reactivity.
func (o *Object) Set(key string, value any) {
	s, ok := o.slots[key]
	if !ok {
		if o.plain == nil {
			o.plain = make(map[string]any)
		}
		o.plain[key] = value
		return
	}
	value = o.rt.Observe(value)
	if same(s.value, value) {
		return
	}
	s.value = value
	s.dep.Notify()
}

// Define adds key as a reactive property and notifies watchers of the
// object's structure. Defining an existing property behaves like Set.
func (o *Object) Define(key string, value any) {
	if _, ok := o.slots[key]; ok {
		o.Set(key, value)
		return
	}
	delete(o.plain, key)
	o.defineSlot(key, value)
	o.dep.Notify()
}

// Delete removes key and notifies both the property and the object.
func (o *Object) Delete(key string) {
	if s, ok := o.slots[key]; ok {
		delete(o.slots, key)
		o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
		s.dep.Notify()
		o.dep.Notify()
		return
	}
	delete(o.plain, key)
}

// Has reports whether key is present, reactive or not. It tracks the
// object's structure.
func (o *Object) Has(key string) bool {
	o.dep.Depend()
	if _, ok := o.slots[key]; ok {
		return true
	}
	_, ok := o.plain[key]
	return ok
}

// Reactive reports whether key is a tracked property.
func (o *Object) Reactive(key string) bool {
	_, ok := o.slots[key]
	return ok
}

// Keys returns the tracked keys in definition order followed by untracked
// keys in sorted order. It tracks the object's structure.
func (o *Object) Keys() []string {
	o.dep.Depend()
	keys := slices.Clone(o.keys)
	if len(o.plain) > 0 {
		extra := make([]string, 0, len(o.plain))
		for k := range o.plain {
			extra = append(extra, k)
		}
		slices.Sort(extra)
		keys = append(keys, extra...)
	}
	return keys
}

// Len returns the number of keys. It tracks the object's structure.
func (o *Object) Len() int {
	o.dep.Depend()
	return len(o.slots) + len(o.plain)
}

// Dep returns the object's node-level Dep.
func (o *Object) Dep() *Dep {
	return o.dep
}

// PropDep returns the Dep of a tracked property, or nil.
func (o *Object) PropDep(key string) *Dep {
	if s, ok := o.slots[key]; ok {
		return s.dep
	}
	return nil
}

// Source returns the Go value the object was created from.
func (o *Object) Source() any {
	return o.source
}

// Raw returns a plain copy of the object's current contents.
func (o *Object) Raw() map[string]any {
	return Unwrap(o).(map[string]any)
}

// MarshalJSON encodes the current contents without tracking.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(Unwrap(o))
}
