package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Bind creates a text node whose content is read from expr each time the
// node is created or patched.
func Bind(expr func() any) *VNode {
	return &VNode{
		Kind: KindText,
		Expr: expr,
	}
}

// If returns the node if condition is true, otherwise nil.
func If(condition bool, node *VNode) *VNode {
	if condition {
		return node
	}
	return nil
}

// When calls fn only if condition is true.
func When(condition bool, fn func() *VNode) *VNode {
	if condition {
		return fn()
	}
	return nil
}

// Range maps items to nodes, dropping nil results.
func Range[T any](items []T, fn func(item T, index int) *VNode) []*VNode {
	result := make([]*VNode, 0, len(items))
	for i, item := range items {
		if node := fn(item, i); node != nil {
			result = append(result, node)
		}
	}
	return result
}

// Key creates a key attribute for reconciliation.
func Key(key any) Attr {
	return Attr{Key: "key", Value: key}
}

// A creates an arbitrary attribute.
func A(name string, value any) Attr {
	return Attr{Key: name, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return A("id", id) }

// Class sets the class attribute.
func Class(class string) Attr { return A("class", class) }
