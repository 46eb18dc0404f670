package vdom

import (
	"log/slog"
	"slices"
	"sort"
)

// Stats counts the surface operations issued by one Patch call.
type Stats struct {
	Created     int // Subtrees built and inserted
	Moved       int // Existing nodes repositioned
	Removed     int // Subtrees detached
	Patched     int // Nodes patched in place
	TextUpdates int
	AttrUpdates int
}

// Ops returns the number of mutating surface operations.
func (s Stats) Ops() int {
	return s.Created + s.Moved + s.Removed + s.TextUpdates + s.AttrUpdates
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for reconcile diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reconciler patches a live surface from one tree version to the next.
// It is not safe for concurrent use.
type Reconciler struct {
	adapter Adapter
	logger  *slog.Logger
	stats   Stats
}

// NewReconciler creates a reconciler writing through adapter.
func NewReconciler(adapter Adapter, opts ...Option) *Reconciler {
	r := &Reconciler{
		adapter: adapter,
		logger:  slog.Default().With("component", "reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Adapter returns the surface adapter.
func (r *Reconciler) Adapter() Adapter {
	return r.adapter
}

// LastStats returns the counters of the most recent Patch call.
func (r *Reconciler) LastStats() Stats {
	return r.stats
}

// Patch brings the children of parent from prev to next. A nil prev mounts
// next; a nil next unmounts prev. After Patch, every node in next carries
// its live handle.
func (r *Reconciler) Patch(parent Handle, prev, next *VNode) {
	r.stats = Stats{}

	switch {
	case prev == nil && next == nil:
	case prev == nil:
		r.createElm(next)
		r.adapter.InsertBefore(parent, next.Elm, nil)
		r.stats.Created++
	case next == nil:
		r.removeNode(parent, prev)
	case sameNode(prev, next):
		r.patchNode(prev, next)
	default:
		r.createElm(next)
		r.adapter.InsertBefore(parent, next.Elm, prev.Elm)
		r.stats.Created++
		r.removeNode(parent, prev)
	}
}

// Mount builds next from scratch and appends it to parent.
func (r *Reconciler) Mount(parent Handle, next *VNode) {
	r.Patch(parent, nil, next)
}

// createElm builds the live subtree for v bottom-up. The root is left
// detached.
func (r *Reconciler) createElm(v *VNode) Handle {
	if v.Kind == KindText {
		v.rendered = ResolveText(v)
		v.Elm = r.adapter.CreateText(v.rendered)
		return v.Elm
	}

	v.Elm = r.adapter.CreateElement(v.Tag)
	for _, name := range sortedKeys(v.Props) {
		if value, ok := attrValue(v.Props[name]); ok {
			r.adapter.SetAttribute(v.Elm, name, value)
		}
	}
	for _, child := range v.Children {
		r.adapter.InsertBefore(v.Elm, r.createElm(child), nil)
	}
	return v.Elm
}

func (r *Reconciler) removeNode(parent Handle, v *VNode) {
	if v.Elm == nil {
		return
	}
	r.adapter.Remove(parent, v.Elm)
	r.stats.Removed++
}

// patchNode transfers the live node of prev to next and updates it in place.
func (r *Reconciler) patchNode(prev, next *VNode) {
	next.Elm = prev.Elm
	next.rendered = prev.rendered
	if prev == next {
		return
	}
	r.stats.Patched++

	if next.Kind == KindText {
		text := ResolveText(next)
		if text != prev.rendered {
			r.adapter.SetText(next.Elm, text)
			next.rendered = text
			r.stats.TextUpdates++
		}
		return
	}

	r.patchProps(next.Elm, prev.Props, next.Props)

	oldCh, newCh := prev.Children, next.Children
	switch {
	case len(oldCh) > 0 && len(newCh) > 0:
		r.updateChildren(next.Elm, oldCh, newCh)
	case len(newCh) > 0:
		r.addVnodes(next.Elm, nil, newCh)
	case len(oldCh) > 0:
		r.removeVnodes(next.Elm, oldCh)
	}
}

// patchProps sets changed and added attributes, then removes missing ones.
func (r *Reconciler) patchProps(elm Handle, prev, next Props) {
	for _, name := range sortedKeys(next) {
		value, ok := attrValue(next[name])
		if !ok {
			if _, had := attrValue(prev[name]); had {
				r.adapter.RemoveAttribute(elm, name)
				r.stats.AttrUpdates++
			}
			continue
		}
		if old, had := prev[name]; had && propsEqual(old, next[name]) {
			continue
		}
		r.adapter.SetAttribute(elm, name, value)
		r.stats.AttrUpdates++
	}
	for _, name := range sortedKeys(prev) {
		if _, kept := next[name]; kept {
			continue
		}
		if _, had := attrValue(prev[name]); had {
			r.adapter.RemoveAttribute(elm, name)
			r.stats.AttrUpdates++
		}
	}
}

func (r *Reconciler) addVnodes(parent, ref Handle, nodes []*VNode) {
	for _, v := range nodes {
		r.createElm(v)
		r.adapter.InsertBefore(parent, v.Elm, ref)
		r.stats.Created++
	}
}

func (r *Reconciler) removeVnodes(parent Handle, nodes []*VNode) {
	for _, v := range nodes {
		if v != nil {
			r.removeNode(parent, v)
		}
	}
}

// updateChildren reconciles two child lists with four cursors: old-start,
// old-end, new-start and new-end. Each step either matches the ends of the
// remaining ranges or falls back to a lookup for the new-start node. Matched
// old entries are cleared from the working copy and skipped afterwards.
func (r *Reconciler) updateChildren(parent Handle, prevCh, nextCh []*VNode) {
	old := slices.Clone(prevCh)
	oldStartIdx, oldEndIdx := 0, len(old)-1
	newStartIdx, newEndIdx := 0, len(nextCh)-1

	var keyIndex map[string]int

	for oldStartIdx <= oldEndIdx && newStartIdx <= newEndIdx {
		oldStart, oldEnd := old[oldStartIdx], old[oldEndIdx]
		newStart, newEnd := nextCh[newStartIdx], nextCh[newEndIdx]

		switch {
		case oldStart == nil:
			oldStartIdx++

		case oldEnd == nil:
			oldEndIdx--

		case sameNode(oldStart, newStart):
			r.patchNode(oldStart, newStart)
			oldStartIdx++
			newStartIdx++

		case sameNode(oldEnd, newEnd):
			r.patchNode(oldEnd, newEnd)
			oldEndIdx--
			newEndIdx--

		case sameNode(oldEnd, newStart) && oldStartIdx < oldEndIdx && newStartIdx < newEndIdx && sameNode(oldStart, newEnd):
			// Both ends crossed over. Swap the two live nodes and leave
			// everything between them in place.
			ref := r.adapter.NextSibling(oldEnd.Elm)
			r.patchNode(oldEnd, newStart)
			r.adapter.InsertBefore(parent, oldEnd.Elm, oldStart.Elm)
			r.stats.Moved++
			r.patchNode(oldStart, newEnd)
			if r.adapter.NextSibling(oldStart.Elm) != ref {
				r.adapter.InsertBefore(parent, oldStart.Elm, ref)
				r.stats.Moved++
			}
			oldStartIdx++
			oldEndIdx--
			newStartIdx++
			newEndIdx--

		case sameNode(oldEnd, newStart):
			r.patchNode(oldEnd, newStart)
			r.adapter.InsertBefore(parent, oldEnd.Elm, oldStart.Elm)
			r.stats.Moved++
			oldEndIdx--
			newStartIdx++

		case sameNode(oldStart, newEnd):
			r.patchNode(oldStart, newEnd)
			r.adapter.InsertBefore(parent, oldStart.Elm, r.adapter.NextSibling(oldEnd.Elm))
			r.stats.Moved++
			oldStartIdx++
			newEndIdx--

		default:
			if keyIndex == nil {
				keyIndex = indexKeys(old, oldStartIdx, oldEndIdx)
			}
			idx := findOld(old, oldStartIdx, oldEndIdx, keyIndex, newStart)
			if idx < 0 {
				if newStart.Key != "" {
					r.logger.Debug("no match for keyed node", "code", "R002", "key", newStart.Key, "tag", newStart.Tag)
				}
				r.createElm(newStart)
				r.adapter.InsertBefore(parent, newStart.Elm, oldStart.Elm)
				r.stats.Created++
			} else {
				match := old[idx]
				r.patchNode(match, newStart)
				r.adapter.InsertBefore(parent, match.Elm, oldStart.Elm)
				r.stats.Moved++
				old[idx] = nil
			}
			newStartIdx++
		}
	}

	switch {
	case oldStartIdx > oldEndIdx:
		var ref Handle
		if newEndIdx+1 < len(nextCh) {
			ref = nextCh[newEndIdx+1].Elm
		}
		r.addVnodes(parent, ref, nextCh[newStartIdx:newEndIdx+1])
	case newStartIdx > newEndIdx:
		r.removeVnodes(parent, old[oldStartIdx:oldEndIdx+1])
	}
}

// indexKeys maps the keys of old[from..to] to their positions.
func indexKeys(old []*VNode, from, to int) map[string]int {
	index := make(map[string]int)
	for i := from; i <= to; i++ {
		if v := old[i]; v != nil && v.Key != "" {
			index[v.Key] = i
		}
	}
	return index
}

// findOld locates the old node that v should be patched from. Keyed nodes
// are looked up by key; unkeyed nodes take the first remaining unkeyed node
// with the same tag.
func findOld(old []*VNode, from, to int, keyIndex map[string]int, v *VNode) int {
	if v.Key != "" {
		i, ok := keyIndex[v.Key]
		if !ok || i < from || i > to || old[i] == nil || !sameNode(old[i], v) {
			return -1
		}
		return i
	}
	for i := from; i <= to; i++ {
		if o := old[i]; o != nil && o.Key == "" && sameNode(o, v) {
			return i
		}
	}
	return -1
}

func sortedKeys(props Props) []string {
	if len(props) == 0 {
		return nil
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// attrValue converts a prop to its attribute text. Functions, nil and false
// produce no attribute.
func attrValue(v any) (string, bool) {
	if isSkippedProp(v) {
		return "", false
	}
	if b, ok := v.(bool); ok {
		if !b {
			return "", false
		}
		return "", true
	}
	return formatValue(v), true
}
