package vdom_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/ripple/pkg/surface/memdom"
	"github.com/vango-dev/ripple/pkg/vdom"
)

func list(keys ...string) *vdom.VNode {
	return vdom.Ul(vdom.Range(keys, func(k string, _ int) *vdom.VNode {
		return vdom.Li(vdom.Key(k), k)
	}))
}

// mounted renders prev onto a fresh document and clears the op log.
func mounted(t *testing.T, prev *vdom.VNode) (*memdom.Document, *vdom.Reconciler) {
	t.Helper()
	doc := memdom.New()
	r := vdom.NewReconciler(doc)
	r.Patch(doc.Root, nil, prev)
	doc.Reset()
	return doc, r
}

func label(n *memdom.Node) string {
	if n.IsText {
		return n.Text
	}
	if kids := n.Children(); len(kids) > 0 && kids[0].IsText {
		return kids[0].Text
	}
	return n.Tag
}

func moved(doc *memdom.Document) []string {
	var out []string
	for _, op := range doc.Ops() {
		if op.Kind == memdom.OpMove {
			out = append(out, label(op.Node))
		}
	}
	return out
}

func handles(v *vdom.VNode) map[string]int {
	ids := make(map[string]int)
	for _, c := range v.Children {
		ids[c.Key] = c.Elm.(*memdom.Node).ID()
	}
	return ids
}

func TestPatchAppend(t *testing.T) {
	prev := list("a", "b")
	doc, r := mounted(t, prev)

	next := list("a", "b", "c")
	r.Patch(doc.Root, prev, next)

	if got, want := doc.HTML(), "<ul><li>a</li><li>b</li><li>c</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	ul := next.Elm.(*memdom.Node)
	var inserts []memdom.Op
	for _, op := range doc.Ops() {
		if op.Kind == memdom.OpInsert && op.Parent == ul {
			inserts = append(inserts, op)
		}
	}
	if len(inserts) != 1 || inserts[0].Ref != nil {
		t.Fatalf("inserts into list = %v, want one append", inserts)
	}
	if n := doc.Count(memdom.OpMove) + doc.Count(memdom.OpRemove); n != 0 {
		t.Errorf("moves+removes = %d, want 0", n)
	}
	if s := r.LastStats(); s.Created != 1 || s.Moved != 0 {
		t.Errorf("LastStats() = %+v, want 1 created, 0 moved", s)
	}
}

func TestPatchPrepend(t *testing.T) {
	prev := list("a", "b")
	doc, r := mounted(t, prev)
	a := prev.Children[0].Elm

	next := list("z", "a", "b")
	r.Patch(doc.Root, prev, next)

	if got, want := doc.HTML(), "<ul><li>z</li><li>a</li><li>b</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	ul := next.Elm.(*memdom.Node)
	count := 0
	for _, op := range doc.Ops() {
		if op.Kind == memdom.OpInsert && op.Parent == ul {
			count++
			if op.Ref != a {
				t.Errorf("insert ref = %v, want %v", op.Ref, a)
			}
		}
	}
	if count != 1 {
		t.Errorf("inserts into list = %d, want 1", count)
	}
	if got := moved(doc); len(got) != 0 {
		t.Errorf("moved = %v, want none", got)
	}
}

func TestPatchRemoveMiddle(t *testing.T) {
	prev := list("a", "b", "c")
	doc, r := mounted(t, prev)
	b := prev.Children[1].Elm

	r.Patch(doc.Root, prev, list("a", "c"))

	ops := doc.Ops()
	if len(ops) != 1 || ops[0].Kind != memdom.OpRemove || ops[0].Node != b {
		t.Fatalf("ops = %v, want a single removal of b", ops)
	}
	if got, want := doc.HTML(), "<ul><li>a</li><li>c</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestPatchReverseSwapsEnds(t *testing.T) {
	prev := list("a", "b", "c")
	doc, r := mounted(t, prev)
	before := handles(prev)

	next := list("c", "b", "a")
	r.Patch(doc.Root, prev, next)

	if diff := cmp.Diff([]string{"c", "a"}, moved(doc)); diff != "" {
		t.Errorf("moved nodes mismatch (-want +got):\n%s", diff)
	}
	for _, op := range doc.Ops() {
		if op.Kind == memdom.OpMove && label(op.Node) == "b" {
			t.Errorf("b was moved: %v", op)
		}
	}
	if diff := cmp.Diff(before, handles(next)); diff != "" {
		t.Errorf("live nodes were not reused (-want +got):\n%s", diff)
	}
	if got, want := doc.HTML(), "<ul><li>c</li><li>b</li><li>a</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestPatchAdjacentSwap(t *testing.T) {
	prev := list("a", "b")
	doc, r := mounted(t, prev)

	r.Patch(doc.Root, prev, list("b", "a"))

	if got := moved(doc); len(got) != 1 {
		t.Errorf("moved = %v, want exactly one move", got)
	}
	if got, want := doc.HTML(), "<ul><li>b</li><li>a</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestPatchEndMoves(t *testing.T) {
	tests := []struct {
		name  string
		from  []string
		to    []string
		moved []string
	}{
		{"tail to head", []string{"a", "b", "c"}, []string{"c", "a", "b"}, []string{"c"}},
		{"head to tail", []string{"a", "b", "c"}, []string{"b", "c", "a"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := list(tt.from...)
			doc, r := mounted(t, prev)
			next := list(tt.to...)
			r.Patch(doc.Root, prev, next)

			if diff := cmp.Diff(tt.moved, moved(doc)); diff != "" {
				t.Errorf("moved mismatch (-want +got):\n%s", diff)
			}
			if doc.Count(memdom.OpCreate) != 0 {
				t.Errorf("created %d nodes, want 0", doc.Count(memdom.OpCreate))
			}
		})
	}
}

func TestPatchKeyedShuffle(t *testing.T) {
	prev := list("a", "b", "c", "d")
	doc, r := mounted(t, prev)
	before := handles(prev)

	next := list("b", "d", "a", "c")
	r.Patch(doc.Root, prev, next)

	if got, want := doc.HTML(), "<ul><li>b</li><li>d</li><li>a</li><li>c</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if diff := cmp.Diff(before, handles(next)); diff != "" {
		t.Errorf("live nodes were not reused (-want +got):\n%s", diff)
	}
	if n := doc.Count(memdom.OpCreate) + doc.Count(memdom.OpRemove); n != 0 {
		t.Errorf("creates+removes = %d, want 0", n)
	}
}

func TestPatchUnkeyedFallback(t *testing.T) {
	prev := vdom.Div(vdom.P("p"), vdom.Div("div"), vdom.Span("span"), vdom.H1("h1"))
	doc, r := mounted(t, prev)

	next := vdom.Div(vdom.Div("div"), vdom.H1("h1"), vdom.P("p"), vdom.Span("span"))
	r.Patch(doc.Root, prev, next)

	if got, want := doc.HTML(), "<div><div>div</div><h1>h1</h1><p>p</p><span>span</span></div>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"div", "h1"}, moved(doc)); diff != "" {
		t.Errorf("moved mismatch (-want +got):\n%s", diff)
	}
	if n := doc.Count(memdom.OpCreate); n != 0 {
		t.Errorf("created %d elements, want 0", n)
	}
}

func TestPatchUnmatchedKeysRebuild(t *testing.T) {
	prev := list("a", "b")
	doc, r := mounted(t, prev)

	r.Patch(doc.Root, prev, list("c", "d"))

	if got, want := doc.HTML(), "<ul><li>c</li><li>d</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	s := r.LastStats()
	if s.Created != 2 || s.Removed != 2 {
		t.Errorf("LastStats() = %+v, want 2 created and 2 removed", s)
	}
}

func TestPatchSameKeyDifferentTag(t *testing.T) {
	prev := vdom.Div(vdom.Span(vdom.Key("x"), "old"))
	doc, r := mounted(t, prev)

	r.Patch(doc.Root, prev, vdom.Div(vdom.P(vdom.Key("x"), "new")))

	if got, want := doc.HTML(), "<div><p>new</p></div>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestPatchRoundTripIsSilent(t *testing.T) {
	count := 7
	tree := vdom.Section(vdom.ID("main"), vdom.Class("app"),
		vdom.H1("Title"),
		vdom.P(vdom.Bind(func() any { return count })),
		list("a", "b", "c"),
		vdom.Button(vdom.A("disabled", true), vdom.A("onclick", func() {}), "go"),
	)
	doc, r := mounted(t, tree)

	r.Patch(doc.Root, tree, tree.Clone())

	if ops := doc.Ops(); len(ops) != 0 {
		t.Errorf("round trip issued ops:\n%s", memdom.FormatOps(ops))
	}
	if n := r.LastStats().Ops(); n != 0 {
		t.Errorf("LastStats().Ops() = %d, want 0", n)
	}
}

func TestPatchBoundText(t *testing.T) {
	count := 1
	view := func() *vdom.VNode {
		return vdom.P(vdom.Bind(func() any { return count }))
	}
	prev := view()
	doc, r := mounted(t, prev)

	next := view()
	r.Patch(doc.Root, prev, next)
	if n := len(doc.Ops()); n != 0 {
		t.Fatalf("unchanged text issued %d ops", n)
	}

	count = 2
	last := view()
	r.Patch(doc.Root, next, last)
	ops := doc.Ops()
	if len(ops) != 1 || ops[0].Kind != memdom.OpSetText || ops[0].Value != "2" {
		t.Fatalf("ops = %v, want one set-text to 2", ops)
	}
	if got, want := doc.HTML(), "<p>2</p>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestPatchProps(t *testing.T) {
	prev := vdom.Div(vdom.Class("a"), vdom.ID("x"), vdom.A("title", "t"))
	doc, r := mounted(t, prev)

	r.Patch(doc.Root, prev, vdom.Div(vdom.Class("b"), vdom.ID("x"), vdom.A("lang", "en")))

	var got []string
	for _, op := range doc.Ops() {
		got = append(got, op.Kind.String()+" "+op.Name)
	}
	want := []string{"set-attr class", "set-attr lang", "remove-attr title"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if got, want := doc.HTML(), `<div class="b" id="x" lang="en"></div>`; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestPatchBooleanAttr(t *testing.T) {
	prev := vdom.Button(vdom.A("disabled", true))
	doc, r := mounted(t, prev)

	r.Patch(doc.Root, prev, vdom.Button(vdom.A("disabled", false)))

	ops := doc.Ops()
	if len(ops) != 1 || ops[0].Kind != memdom.OpRemoveAttr {
		t.Fatalf("ops = %v, want one remove-attr", ops)
	}
}

func TestPatchChildrenAddedAndCleared(t *testing.T) {
	prev := vdom.Ul()
	doc, r := mounted(t, prev)

	next := list("a", "b")
	r.Patch(doc.Root, prev, next)
	if got, want := doc.HTML(), "<ul><li>a</li><li>b</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	r.Patch(doc.Root, next, vdom.Ul())
	if got, want := doc.HTML(), "<ul></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if s := r.LastStats(); s.Removed != 2 {
		t.Errorf("Removed = %d, want 2", s.Removed)
	}
}

func TestPatchRootReplaceAndUnmount(t *testing.T) {
	prev := vdom.Div("x")
	doc, r := mounted(t, prev)

	next := vdom.Span("y")
	r.Patch(doc.Root, prev, next)
	if got, want := doc.HTML(), "<span>y</span>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	r.Patch(doc.Root, next, nil)
	if got := doc.HTML(); got != "" {
		t.Errorf("HTML() after unmount = %q, want empty", got)
	}
}

func TestPatchSameTreeIsNoop(t *testing.T) {
	tree := list("a")
	doc, r := mounted(t, tree)

	r.Patch(doc.Root, tree, tree)

	if n := len(doc.Ops()); n != 0 {
		t.Errorf("ops = %d, want 0", n)
	}
}
