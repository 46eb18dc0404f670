package vdom

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// ResolveText returns the text a text node displays: the formatted value of
// its Expr if it has one, otherwise its literal Text.
func ResolveText(v *VNode) string {
	if v.Expr != nil {
		return formatValue(v.Expr())
	}
	return v.Text
}

// FormatValue converts a value to display text. Strings are used verbatim,
// nil is empty, numbers and booleans are formatted plainly, and maps, slices
// and JSON marshalers are rendered as JSON.
func FormatValue(v any) string {
	return formatValue(v)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Marshaler:
		return marshalText(val)
	case fmt.Stringer:
		return val.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return marshalText(v)
	}
	return fmt.Sprint(v)
}

func marshalText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// propsEqual compares two prop values for equality.
func propsEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return formatValue(a) == formatValue(b)
}

// isSkippedProp reports whether a prop never reaches the surface.
func isSkippedProp(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}
