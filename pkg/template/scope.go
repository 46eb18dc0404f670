package template

import (
	"reflect"
	"sort"
	"strconv"
)

// Scope resolves the first segment of an expression.
type Scope interface {
	Lookup(name string) any
}

// MapScope is a Scope over a plain map.
type MapScope map[string]any

// Lookup implements Scope.
func (m MapScope) Lookup(name string) any { return m[name] }

// ScopeFunc adapts a function to a Scope.
type ScopeFunc func(name string) any

// Lookup implements Scope.
func (f ScopeFunc) Lookup(name string) any { return f(name) }

// loopScope adds the v-for variables on top of a parent scope.
type loopScope struct {
	parent Scope
	item   string
	value  any
	index  string
	at     any
}

func (s *loopScope) Lookup(name string) any {
	switch {
	case name == s.item:
		return s.value
	case s.index != "" && name == s.index:
		return s.at
	}
	return s.parent.Lookup(name)
}

// Value types the evaluator understands without reflection. Observable
// objects and lists satisfy them, so reads through them are tracked.
type (
	getter interface {
		Get(key string) any
	}
	keyed interface {
		getter
		Keys() []string
	}
	indexed interface {
		Len() int
		At(i int) any
	}
)

// Eval resolves path against scope. Missing properties evaluate to nil.
func Eval(path Path, scope Scope) any {
	if len(path) == 0 {
		return nil
	}
	v := scope.Lookup(path[0])
	for _, seg := range path[1:] {
		v = property(v, seg)
	}
	return v
}

func property(v any, name string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case indexed:
		if name == "length" {
			return val.Len()
		}
		if i, err := strconv.Atoi(name); err == nil {
			return val.At(i)
		}
		return nil
	case getter:
		return val.Get(name)
	case map[string]any:
		return val[name]
	case []any:
		if name == "length" {
			return len(val)
		}
		if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(val) {
			return val[i]
		}
		return nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if mv.IsValid() {
				return mv.Interface()
			}
		}
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return rv.Len()
		}
		if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < rv.Len() {
			return rv.Index(i).Interface()
		}
	case reflect.String:
		if name == "length" {
			return rv.Len()
		}
	}
	return nil
}

// each calls fn for every item of a v-for source. Lists and slices pass
// the index, objects and maps pass the key, and an integer n counts 1..n.
func each(v any, fn func(item, at any)) {
	switch val := v.(type) {
	case nil:
		return
	case indexed:
		for i, n := 0, val.Len(); i < n; i++ {
			fn(val.At(i), i)
		}
		return
	case keyed:
		for _, k := range val.Keys() {
			fn(val.Get(k), k)
		}
		return
	case int:
		for i := 1; i <= val; i++ {
			fn(i, i-1)
		}
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			fn(rv.Index(i).Interface(), i)
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return
		}
		keys := rv.MapKeys()
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		sort.Strings(names)
		for _, name := range names {
			fn(rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())).Interface(), name)
		}
	}
}
