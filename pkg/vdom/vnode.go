package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement VKind = iota // <div>, <li>, etc.
	KindText                 // Text, literal or bound
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Handle is a live node on the output surface. Only the Adapter knows its
// concrete type.
type Handle any

// Expr produces a value at render time. Text nodes bound to an Expr display
// the formatted result.
type Expr func() any

// VNode is a virtual tree node.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes
	Children []*VNode // Child nodes
	Key      string   // Reconciliation key
	Text     string   // Literal text for KindText
	Expr     Expr     // Bound text for KindText; overrides Text
	Elm      Handle   // Live node, set once the node is on the surface

	// rendered is the text last written to Elm.
	rendered string
}

// Props holds attributes.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Clone returns a deep copy of the tree without live handles.
func (v *VNode) Clone() *VNode {
	if v == nil {
		return nil
	}
	c := &VNode{
		Kind: v.Kind,
		Tag:  v.Tag,
		Key:  v.Key,
		Text: v.Text,
		Expr: v.Expr,
	}
	if v.Props != nil {
		c.Props = make(Props, len(v.Props))
		for k, val := range v.Props {
			c.Props[k] = val
		}
	}
	if v.Children != nil {
		c.Children = make([]*VNode, len(v.Children))
		for i, child := range v.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Walk calls fn for v and every descendant, parents first.
func (v *VNode) Walk(fn func(*VNode)) {
	if v == nil {
		return
	}
	fn(v)
	for _, child := range v.Children {
		child.Walk(fn)
	}
}

// sameNode reports whether a and b may be patched into each other.
func sameNode(a, b *VNode) bool {
	return a.Kind == b.Kind && a.Key == b.Key && a.Tag == b.Tag
}
