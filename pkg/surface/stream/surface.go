// Package stream provides an output surface that turns reconciler operations
// into protocol patches. A live server takes one frame per flush and sends it
// to every connected client.
package stream

import (
	"sort"

	"github.com/vango-dev/ripple/pkg/protocol"
	"github.com/vango-dev/ripple/pkg/surface/memdom"
	"github.com/vango-dev/ripple/pkg/vdom"
)

var _ vdom.Adapter = (*Surface)(nil)

// Surface keeps an in-memory copy of the output and queues a protocol patch
// for every operation applied to it. It is not safe for concurrent use.
type Surface struct {
	doc     *memdom.Document
	hids    *HIDGenerator
	ids     map[*memdom.Node]string
	pending []protocol.Patch
	seq     uint64
}

// New creates an empty surface.
func New() *Surface {
	s := &Surface{
		doc:  memdom.New(),
		hids: NewHIDGenerator(),
		ids:  make(map[*memdom.Node]string),
	}
	s.ids[s.doc.Root] = RootHID
	return s
}

// Root returns the root container to mount into.
func (s *Surface) Root() vdom.Handle { return s.doc.Root }

// Document returns the in-memory copy of the output.
func (s *Surface) Document() *memdom.Document { return s.doc }

// HID returns the hydration ID of a live node.
func (s *Surface) HID(h vdom.Handle) string {
	if n, ok := h.(*memdom.Node); ok {
		return s.ids[n]
	}
	return ""
}

// Seq returns the sequence number of the last frame taken.
func (s *Surface) Seq() uint64 { return s.seq }

// Pending returns the number of queued patches.
func (s *Surface) Pending() int { return len(s.pending) }

// TakeFrame returns the queued patches as the next frame, or nil when
// nothing changed since the last call.
func (s *Surface) TakeFrame() *protocol.PatchesFrame {
	s.doc.Reset()
	if len(s.pending) == 0 {
		return nil
	}
	s.seq++
	pf := &protocol.PatchesFrame{Seq: s.seq, Patches: s.pending}
	s.pending = nil
	return pf
}

// Snapshot returns the current HTML tagged with the last frame's sequence
// number.
func (s *Surface) Snapshot() *protocol.Snapshot {
	return &protocol.Snapshot{Seq: s.seq, HTML: s.doc.HTML()}
}

// Replay returns patches that rebuild the current output on an empty client.
// Queued patches are already reflected in the replay, so take them first.
func (s *Surface) Replay() *protocol.PatchesFrame {
	pf := &protocol.PatchesFrame{Seq: s.seq}
	for _, child := range s.doc.Root.Children() {
		s.replay(pf, RootHID, child)
	}
	return pf
}

func (s *Surface) replay(pf *protocol.PatchesFrame, parent string, n *memdom.Node) {
	hid := s.ids[n]
	if n.IsText {
		pf.Patches = append(pf.Patches, protocol.Patch{Op: protocol.PatchCreateText, HID: hid, Value: n.Text})
	} else {
		pf.Patches = append(pf.Patches, protocol.Patch{Op: protocol.PatchCreateElement, HID: hid, Key: n.Tag})
		names := make([]string, 0, len(n.Attrs))
		for name := range n.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			pf.Patches = append(pf.Patches, protocol.Patch{Op: protocol.PatchSetAttr, HID: hid, Key: name, Value: n.Attrs[name]})
		}
		for _, child := range n.Children() {
			s.replay(pf, hid, child)
		}
	}
	pf.Patches = append(pf.Patches, protocol.Patch{Op: protocol.PatchInsert, HID: hid, Parent: parent})
}

func (s *Surface) push(p protocol.Patch) {
	s.pending = append(s.pending, p)
}

func (s *Surface) hidOf(h vdom.Handle) string {
	if h == nil {
		return ""
	}
	return s.ids[h.(*memdom.Node)]
}

// CreateElement implements vdom.Adapter.
func (s *Surface) CreateElement(tag string) vdom.Handle {
	h := s.doc.CreateElement(tag)
	hid := s.hids.Next()
	s.ids[h.(*memdom.Node)] = hid
	s.push(protocol.Patch{Op: protocol.PatchCreateElement, HID: hid, Key: tag})
	return h
}

// CreateText implements vdom.Adapter.
func (s *Surface) CreateText(text string) vdom.Handle {
	h := s.doc.CreateText(text)
	hid := s.hids.Next()
	s.ids[h.(*memdom.Node)] = hid
	s.push(protocol.Patch{Op: protocol.PatchCreateText, HID: hid, Value: text})
	return h
}

// InsertBefore implements vdom.Adapter.
func (s *Surface) InsertBefore(parent, node, ref vdom.Handle) {
	op := protocol.PatchInsert
	if node.(*memdom.Node).Parent() != nil {
		op = protocol.PatchMove
	}
	s.doc.InsertBefore(parent, node, ref)
	s.push(protocol.Patch{Op: op, HID: s.hidOf(node), Parent: s.hidOf(parent), Ref: s.hidOf(ref)})
}

// Remove implements vdom.Adapter. The removed subtree's IDs are released.
func (s *Surface) Remove(parent, node vdom.Handle) {
	hid := s.hidOf(node)
	s.doc.Remove(parent, node)
	s.push(protocol.Patch{Op: protocol.PatchRemove, HID: hid, Parent: s.hidOf(parent)})
	s.release(node.(*memdom.Node))
}

func (s *Surface) release(n *memdom.Node) {
	delete(s.ids, n)
	for _, c := range n.Children() {
		s.release(c)
	}
}

// SetAttribute implements vdom.Adapter.
func (s *Surface) SetAttribute(node vdom.Handle, name, value string) {
	s.doc.SetAttribute(node, name, value)
	s.push(protocol.Patch{Op: protocol.PatchSetAttr, HID: s.hidOf(node), Key: name, Value: value})
}

// RemoveAttribute implements vdom.Adapter.
func (s *Surface) RemoveAttribute(node vdom.Handle, name string) {
	s.doc.RemoveAttribute(node, name)
	s.push(protocol.Patch{Op: protocol.PatchRemoveAttr, HID: s.hidOf(node), Key: name})
}

// SetText implements vdom.Adapter.
func (s *Surface) SetText(node vdom.Handle, text string) {
	s.doc.SetText(node, text)
	s.push(protocol.Patch{Op: protocol.PatchSetText, HID: s.hidOf(node), Value: text})
}

// NextSibling implements vdom.Adapter.
func (s *Surface) NextSibling(node vdom.Handle) vdom.Handle {
	return s.doc.NextSibling(node)
}
