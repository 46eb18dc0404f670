package reactive

import (
	"math"
	"reflect"
	"slices"
	"strings"
)

// identity keys the wrap-once registry by the address of a map, a struct
// pointer or a slice's backing array.
type identity struct {
	kind reflect.Kind
	ptr  uintptr
	n    int
}

// Observe returns the observable form of v. Maps with string keys and
// structs (or pointers to structs) become *Object, slices and arrays become
// *List. Already observable values and primitives are returned unchanged.
// A given map, struct pointer or slice is wrapped only once; observing it
// again returns the same wrapper.
//
// The wrapper owns a copy of the data. Writes go through the wrapper and do
// not reach the original Go value.
func (rt *Runtime) Observe(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64, float64, []byte:
		return v
	case *Object, *List:
		return v
	case map[string]any:
		return rt.observeMap(reflect.ValueOf(x), x)
	case []any:
		return rt.observeSlice(reflect.ValueOf(x), x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return rt.observeMap(rv, v)
		}
	case reflect.Slice:
		return rt.observeSlice(rv, v)
	case reflect.Array:
		return rt.newList(nil, valuesOf(rv))
	case reflect.Struct:
		return rt.observeStruct(rv, v)
	case reflect.Pointer:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			id := identity{kind: reflect.Pointer, ptr: rv.Pointer()}
			if existing, ok := rt.registry[id]; ok {
				return existing
			}
			o := rt.newObject(v)
			rt.registry[id] = o
			rt.fillStruct(o, rv.Elem())
			return o
		}
	}
	return v
}

// Reactive observes a map and returns the resulting Object.
func (rt *Runtime) Reactive(data map[string]any) *Object {
	if data == nil {
		data = map[string]any{}
	}
	return rt.Observe(data).(*Object)
}

// NewList returns an observable list holding items.
func (rt *Runtime) NewList(items ...any) *List {
	return rt.newList(nil, items)
}

func (rt *Runtime) observeMap(rv reflect.Value, src any) *Object {
	id := identity{kind: reflect.Map, ptr: rv.Pointer()}
	if !rv.IsNil() {
		if existing, ok := rt.registry[id]; ok {
			return existing.(*Object)
		}
	}
	o := rt.newObject(src)
	if !rv.IsNil() {
		rt.registry[id] = o
	}

	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	slices.Sort(keys)
	for _, k := range keys {
		o.defineSlot(k, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
	}
	return o
}

func (rt *Runtime) observeSlice(rv reflect.Value, src any) *List {
	if rv.Len() == 0 {
		return rt.newList(src, nil)
	}
	id := identity{kind: reflect.Slice, ptr: rv.Pointer(), n: rv.Len()}
	if existing, ok := rt.registry[id]; ok {
		return existing.(*List)
	}
	l := &List{rt: rt, dep: rt.NewDep(), source: src}
	rt.registry[id] = l
	l.items = rt.observeAll(valuesOf(rv))
	return l
}

func (rt *Runtime) observeStruct(rv reflect.Value, src any) *Object {
	o := rt.newObject(src)
	rt.fillStruct(o, rv)
	return o
}

func (rt *Runtime) fillStruct(o *Object, rv reflect.Value) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		o.defineSlot(name, rv.Field(i).Interface())
	}
}

func (rt *Runtime) observeAll(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = rt.Observe(item)
	}
	return out
}

func valuesOf(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Unwrap converts observable values back into plain Go values: *Object
// becomes map[string]any and *List becomes []any, recursively. Reads are not
// tracked.
func Unwrap(v any) any {
	return unwrap(v, make(map[any]bool))
}

func unwrap(v any, seen map[any]bool) any {
	switch x := v.(type) {
	case *Object:
		if seen[x] {
			return nil
		}
		seen[x] = true
		defer delete(seen, x)
		out := make(map[string]any, len(x.slots)+len(x.plain))
		for k, s := range x.slots {
			out[k] = unwrap(s.value, seen)
		}
		for k, pv := range x.plain {
			out[k] = unwrap(pv, seen)
		}
		return out
	case *List:
		if seen[x] {
			return nil
		}
		seen[x] = true
		defer delete(seen, x)
		out := make([]any, len(x.items))
		for i, item := range x.items {
			out[i] = unwrap(item, seen)
		}
		return out
	default:
		return v
	}
}

// IsObservable reports whether v is an *Object or *List.
func IsObservable(v any) bool {
	switch v.(type) {
	case *Object, *List:
		return true
	}
	return false
}

// nodeDep returns the node-level Dep of an observable value, or nil.
func nodeDep(v any) *Dep {
	switch x := v.(type) {
	case *Object:
		return x.dep
	case *List:
		return x.dep
	}
	return nil
}

// same reports whether writing b over a is a no-op: value equality for
// comparable values, reference equality for maps, slices, pointers and
// observable wrappers. Functions are never the same.
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Float32, reflect.Float64:
		fa, fb := va.Float(), vb.Float()
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		return fa == fb
	}
	if !ta.Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual compares with ==, treating a runtime panic (an interface field
// holding an uncomparable value) as unequal.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
