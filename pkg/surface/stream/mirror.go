package stream

import (
	"fmt"

	"github.com/vango-dev/ripple/pkg/protocol"
	"github.com/vango-dev/ripple/pkg/surface/memdom"
)

// Mirror applies received patch frames to a local document, the way a
// client keeps its copy of a streamed surface.
type Mirror struct {
	doc   *memdom.Document
	nodes map[string]*memdom.Node
	hids  map[*memdom.Node]string
	seq   uint64
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	m := &Mirror{
		doc:   memdom.New(),
		nodes: make(map[string]*memdom.Node),
		hids:  make(map[*memdom.Node]string),
	}
	m.add(RootHID, m.doc.Root)
	return m
}

// Seq returns the sequence number of the last applied frame.
func (m *Mirror) Seq() uint64 { return m.seq }

// HTML renders the mirrored output.
func (m *Mirror) HTML() string { return m.doc.HTML() }

// Apply applies every patch in pf. Frames older than the last applied
// sequence number are ignored; split frames share one number and are all
// applied.
func (m *Mirror) Apply(pf *protocol.PatchesFrame) error {
	if pf.Seq < m.seq {
		return nil
	}
	for i, p := range pf.Patches {
		if err := m.apply(p); err != nil {
			return fmt.Errorf("frame %d patch %d (%s): %w", pf.Seq, i, p.Op, err)
		}
	}
	m.seq = pf.Seq
	return nil
}

func (m *Mirror) add(hid string, n *memdom.Node) {
	m.nodes[hid] = n
	m.hids[n] = hid
}

func (m *Mirror) drop(n *memdom.Node) {
	delete(m.nodes, m.hids[n])
	delete(m.hids, n)
	for _, c := range n.Children() {
		m.drop(c)
	}
}

func (m *Mirror) lookup(hid string) (*memdom.Node, error) {
	n, ok := m.nodes[hid]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", hid)
	}
	return n, nil
}

func (m *Mirror) apply(p protocol.Patch) error {
	defer m.doc.Reset()

	switch p.Op {
	case protocol.PatchCreateElement:
		m.add(p.HID, m.doc.CreateElement(p.Key).(*memdom.Node))
		return nil
	case protocol.PatchCreateText:
		m.add(p.HID, m.doc.CreateText(p.Value).(*memdom.Node))
		return nil
	}

	n, err := m.lookup(p.HID)
	if err != nil {
		return err
	}
	switch p.Op {
	case protocol.PatchInsert, protocol.PatchMove:
		parent, err := m.lookup(p.Parent)
		if err != nil {
			return err
		}
		var ref *memdom.Node
		if p.Ref != "" {
			if ref, err = m.lookup(p.Ref); err != nil {
				return err
			}
		}
		if ref == nil {
			m.doc.InsertBefore(parent, n, nil)
		} else {
			m.doc.InsertBefore(parent, n, ref)
		}
	case protocol.PatchRemove:
		parent, err := m.lookup(p.Parent)
		if err != nil {
			return err
		}
		m.doc.Remove(parent, n)
		m.drop(n)
	case protocol.PatchSetAttr:
		m.doc.SetAttribute(n, p.Key, p.Value)
	case protocol.PatchRemoveAttr:
		m.doc.RemoveAttribute(n, p.Key)
	case protocol.PatchSetText:
		m.doc.SetText(n, p.Value)
	default:
		return fmt.Errorf("unsupported op %s", p.Op)
	}
	return nil
}
