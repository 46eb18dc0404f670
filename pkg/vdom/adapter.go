package vdom

// Adapter applies node operations to a live output surface. The reconciler
// never touches the surface any other way.
type Adapter interface {
	// CreateElement returns a new, detached element node.
	CreateElement(tag string) Handle

	// CreateText returns a new, detached text node.
	CreateText(text string) Handle

	// InsertBefore inserts node into parent before ref, or at the end when
	// ref is nil. A node already in parent is moved.
	InsertBefore(parent, node, ref Handle)

	// Remove detaches node from parent.
	Remove(parent, node Handle)

	// SetAttribute sets an attribute on an element node.
	SetAttribute(node Handle, name, value string)

	// RemoveAttribute removes an attribute from an element node.
	RemoveAttribute(node Handle, name string)

	// SetText replaces the content of a text node.
	SetText(node Handle, text string)

	// NextSibling returns the node following node in its parent, or nil.
	NextSibling(node Handle) Handle
}
