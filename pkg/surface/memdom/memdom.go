// Package memdom is an in-memory output surface. It keeps a node tree and a
// log of every operation applied to it, which makes it the surface of choice
// for tests, snapshots and the inspect command.
package memdom

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/ripple/pkg/vdom"
)

var _ vdom.Adapter = (*Document)(nil)

// Node is a live node in a Document.
type Node struct {
	id       int
	Tag      string
	Text     string
	IsText   bool
	Attrs    map[string]string
	parent   *Node
	children []*Node
}

// ID returns the node's creation number within its document.
func (n *Node) ID() int { return n.id }

// Parent returns the containing node, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// String returns a short label such as "li#4" or "text#2".
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.IsText {
		return fmt.Sprintf("text#%d", n.id)
	}
	return fmt.Sprintf("%s#%d", n.Tag, n.id)
}

// Document is a tree of Nodes under a root container.
type Document struct {
	Root   *Node
	nextID int
	ops    []Op
}

// New creates an empty document. The root container is not recorded as an
// operation.
func New() *Document {
	return &Document{Root: &Node{Tag: "#root", Attrs: map[string]string{}}}
}

// Ops returns the operations applied since the last Reset.
func (d *Document) Ops() []Op { return slices.Clone(d.ops) }

// Reset clears the operation log.
func (d *Document) Reset() { d.ops = d.ops[:0] }

// Count returns how many logged operations have the given kind.
func (d *Document) Count(kind OpKind) int {
	n := 0
	for _, op := range d.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (d *Document) record(op Op) { d.ops = append(d.ops, op) }

func (d *Document) node(h vdom.Handle) *Node {
	if h == nil {
		return nil
	}
	n, ok := h.(*Node)
	if !ok {
		panic(fmt.Sprintf("memdom: foreign handle %T", h))
	}
	return n
}

// CreateElement implements vdom.Adapter.
func (d *Document) CreateElement(tag string) vdom.Handle {
	d.nextID++
	n := &Node{id: d.nextID, Tag: tag, Attrs: map[string]string{}}
	d.record(Op{Kind: OpCreate, Node: n})
	return n
}

// CreateText implements vdom.Adapter.
func (d *Document) CreateText(text string) vdom.Handle {
	d.nextID++
	n := &Node{id: d.nextID, Text: text, IsText: true}
	d.record(Op{Kind: OpCreateText, Node: n, Value: text})
	return n
}

// InsertBefore implements vdom.Adapter. Inserting an attached node logs a
// move.
func (d *Document) InsertBefore(parent, node, ref vdom.Handle) {
	p, n, r := d.node(parent), d.node(node), d.node(ref)
	kind := OpInsert
	if n.parent != nil {
		kind = OpMove
		n.parent.detach(n)
	}
	idx := len(p.children)
	if r != nil {
		if i := slices.Index(p.children, r); i >= 0 {
			idx = i
		}
	}
	p.children = slices.Insert(p.children, idx, n)
	n.parent = p
	d.record(Op{Kind: kind, Node: n, Parent: p, Ref: r})
}

// Remove implements vdom.Adapter.
func (d *Document) Remove(parent, node vdom.Handle) {
	p, n := d.node(parent), d.node(node)
	p.detach(n)
	d.record(Op{Kind: OpRemove, Node: n, Parent: p})
}

// SetAttribute implements vdom.Adapter.
func (d *Document) SetAttribute(node vdom.Handle, name, value string) {
	n := d.node(node)
	n.Attrs[name] = value
	d.record(Op{Kind: OpSetAttr, Node: n, Name: name, Value: value})
}

// RemoveAttribute implements vdom.Adapter.
func (d *Document) RemoveAttribute(node vdom.Handle, name string) {
	n := d.node(node)
	delete(n.Attrs, name)
	d.record(Op{Kind: OpRemoveAttr, Node: n, Name: name})
}

// SetText implements vdom.Adapter.
func (d *Document) SetText(node vdom.Handle, text string) {
	n := d.node(node)
	n.Text = text
	d.record(Op{Kind: OpSetText, Node: n, Value: text})
}

// NextSibling implements vdom.Adapter.
func (d *Document) NextSibling(node vdom.Handle) vdom.Handle {
	n := d.node(node)
	if n.parent == nil {
		return nil
	}
	i := slices.Index(n.parent.children, n)
	if i < 0 || i+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[i+1]
}

func (n *Node) detach(child *Node) {
	n.children = slices.DeleteFunc(n.children, func(c *Node) bool { return c == child })
	child.parent = nil
}

// HTML renders the children of the root container.
func (d *Document) HTML() string {
	var sb strings.Builder
	for _, c := range d.Root.children {
		c.render(&sb)
	}
	return sb.String()
}

// HTML renders the node and its subtree.
func (n *Node) HTML() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n *Node) render(sb *strings.Builder) {
	if n.IsText {
		sb.WriteString(html.EscapeString(n.Text))
		return
	}
	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteByte(' ')
		sb.WriteString(name)
		if v := n.Attrs[name]; v != "" {
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(v))
			sb.WriteByte('"')
		}
	}
	sb.WriteByte('>')
	if vdom.IsVoidElement(n.Tag) {
		return
	}
	for _, c := range n.children {
		c.render(sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteByte('>')
}
