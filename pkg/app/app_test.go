package app

import (
	"strings"
	"testing"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/reactive"
	"github.com/vango-dev/ripple/pkg/scheduler"
	"github.com/vango-dev/ripple/pkg/surface/memdom"
	"github.com/vango-dev/ripple/pkg/vdom"
)

type harness struct {
	host *scheduler.Microtasks
	rt   *reactive.Runtime
	doc  *memdom.Document
	errs []error
}

func newHarness() *harness {
	h := &harness{host: &scheduler.Microtasks{}, doc: memdom.New()}
	h.rt = reactive.New(
		reactive.WithHost(h.host),
		reactive.WithErrorHandler(func(err error) { h.errs = append(h.errs, err) }),
	)
	return h
}

func (h *harness) mount(t *testing.T, opts Options) *Component {
	t.Helper()
	c, err := New(h.rt, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Mount(h.doc, h.doc.Root)
	h.doc.Reset()
	return c
}

func TestMountAndUpdate(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data:     map[string]any{"msg": "hello", "count": 1},
		Template: `<div><p>{{ msg }}</p><span>{{ count }}</span></div>`,
	})

	if got, want := h.doc.HTML(), "<div><p>hello</p><span>1</span></div>"; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}

	c.Set("msg", "bye")
	if got := h.doc.HTML(); !strings.Contains(got, "hello") {
		t.Errorf("output changed before the flush: %q", got)
	}

	h.host.Drain()
	if got, want := h.doc.HTML(), "<div><p>bye</p><span>1</span></div>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	ops := h.doc.Ops()
	if len(ops) != 1 || ops[0].Kind != memdom.OpSetText {
		t.Errorf("ops = %v, want a single set-text", ops)
	}
	if c.Renders() != 2 {
		t.Errorf("Renders() = %d, want 2", c.Renders())
	}
}

func TestWritesCoalesce(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data:     map[string]any{"a": 1, "b": 2},
		Template: `<p>{{ a }}-{{ b }}</p>`,
	})

	c.Set("a", 10)
	c.Set("b", 20)
	c.Set("a", 11)
	h.host.Drain()

	if c.Renders() != 2 {
		t.Errorf("Renders() = %d, want 2", c.Renders())
	}
	if got, want := h.doc.HTML(), "<p>11-20</p>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestComputed(t *testing.T) {
	h := newHarness()
	calls := 0
	c := h.mount(t, Options{
		Data: map[string]any{"first": "Ada", "last": "Lovelace", "unrelated": 0},
		Computed: map[string]ComputedFunc{
			"full": func(c *Component) any {
				calls++
				return c.Get("first").(string) + " " + c.Get("last").(string)
			},
		},
		Template: `<h1>{{ full }}</h1>`,
	})

	if got, want := h.doc.HTML(), "<h1>Ada Lovelace</h1>"; got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}
	if calls != 1 {
		t.Errorf("computed calls after mount = %d, want 1", calls)
	}

	if got := c.Get("full"); got != "Ada Lovelace" || calls != 1 {
		t.Errorf("Get(full) = %v with %d calls, want cached value", got, calls)
	}

	c.Set("unrelated", 1)
	h.host.Drain()
	if c.Renders() != 1 {
		t.Errorf("unrelated write re-rendered (%d renders)", c.Renders())
	}

	c.Set("first", "Grace")
	h.host.Drain()
	if got, want := h.doc.HTML(), "<h1>Grace Lovelace</h1>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if calls != 2 {
		t.Errorf("computed calls = %d, want 2", calls)
	}
}

func TestComputedShadowsData(t *testing.T) {
	h := newHarness()
	c, err := New(h.rt, Options{
		Data:     map[string]any{"x": "data"},
		Computed: map[string]ComputedFunc{"x": func(*Component) any { return "computed" }},
		Template: `<p>{{ x }}</p>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Lookup("x"); got != "computed" {
		t.Errorf("Lookup(x) = %v, want computed", got)
	}
}

func TestListRendering(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data:     map[string]any{"items": []any{"a", "b"}},
		Template: `<ul><li v-for="x in items" :key="x">{{ x }}</li></ul>`,
	})

	items := c.Get("items").(*reactive.List)
	items.Push("c")
	h.host.Drain()

	if got, want := h.doc.HTML(), "<ul><li>a</li><li>b</li><li>c</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if s := c.Reconciler().LastStats(); s.Created != 1 || s.Moved != 0 || s.Removed != 0 {
		t.Errorf("LastStats() = %+v, want one creation", s)
	}

	items.Reverse()
	h.host.Drain()
	if got, want := h.doc.HTML(), "<ul><li>c</li><li>b</li><li>a</li></ul>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if s := c.Reconciler().LastStats(); s.Moved != 2 || s.Created != 0 {
		t.Errorf("LastStats() = %+v, want two moves", s)
	}
}

func TestRenderFunc(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Name: "counter",
		Data: map[string]any{"n": 0},
		Render: func(c *Component) *vdom.VNode {
			return vdom.Button(vdom.Textf("clicked %v times", c.Get("n")))
		},
	})

	c.Set("n", 3)
	h.host.Drain()
	if got, want := h.doc.HTML(), "<button>clicked 3 times</button>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if c.Name() != "counter" {
		t.Errorf("Name() = %q", c.Name())
	}
}

type profile struct {
	Name string
	Age  int
}

func TestStructData(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data:     &profile{Name: "Lin", Age: 30},
		Template: `<p>{{ Name }} ({{ Age }})</p>`,
	})
	c.Set("Age", 31)
	h.host.Drain()
	if got, want := h.doc.HTML(), "<p>Lin (31)</p>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestNewErrors(t *testing.T) {
	rt := reactive.New()
	if _, err := New(rt, Options{Template: "<p>"}); !errors.HasCode(err, "T001") {
		t.Errorf("bad template error = %v, want T001", err)
	}
	if _, err := New(rt, Options{}); err == nil {
		t.Error("New() without template or render succeeded")
	}
	if _, err := New(rt, Options{Data: 42, Template: "<p></p>"}); err == nil {
		t.Error("New() with scalar data succeeded")
	}
}

func TestRestore(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data:     map[string]any{"title": "old"},
		Template: `<p>{{ title }} {{ extra }}</p>`,
	})

	c.Restore(map[string]any{"title": "new", "extra": "more"})
	h.host.Drain()
	if got, want := h.doc.HTML(), "<p>new more</p>"; got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}

	c.Set("extra", "again")
	h.host.Drain()
	if got, want := h.doc.HTML(), "<p>new again</p>"; got != want {
		t.Errorf("restored key is not reactive: %q", got)
	}
}

func TestDefineReachesReaders(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{Template: `<p>[{{ late }}]</p>`})
	if got := h.doc.HTML(); got != "<p>[]</p>" {
		t.Fatalf("HTML() = %q", got)
	}

	c.Define("late", "x")
	h.host.Drain()
	if got := h.doc.HTML(); got != "<p>[x]</p>" {
		t.Errorf("HTML() after Define = %q, want %q", got, "<p>[x]</p>")
	}
}

func TestRenderFailureKeepsOutput(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data: map[string]any{"n": 1},
		Render: func(c *Component) *vdom.VNode {
			if c.Get("n") == 2 {
				panic("bad state")
			}
			return vdom.P(vdom.Textf("%v", c.Get("n")))
		},
	})

	c.Set("n", 2)
	h.host.Drain()
	if len(h.errs) != 1 || !errors.HasCode(h.errs[0], "R001") {
		t.Fatalf("errors = %v, want one R001", h.errs)
	}
	if got := h.doc.HTML(); got != "<p>1</p>" {
		t.Errorf("HTML() after failed render = %q", got)
	}

	c.Set("n", 3)
	h.host.Drain()
	if got := h.doc.HTML(); got != "<p>3</p>" {
		t.Errorf("HTML() after recovery = %q", got)
	}
}

func TestDestroy(t *testing.T) {
	h := newHarness()
	c := h.mount(t, Options{
		Data:     map[string]any{"n": 1},
		Template: `<p>{{ n }}</p>`,
	})

	c.Destroy()
	if got := h.doc.HTML(); got != "" {
		t.Errorf("HTML() after Destroy = %q", got)
	}
	c.Set("n", 2)
	h.host.Drain()
	if c.Renders() != 1 {
		t.Errorf("Renders() = %d after Destroy, want 1", c.Renders())
	}
}
