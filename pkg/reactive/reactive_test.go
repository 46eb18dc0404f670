package reactive

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/scheduler"
)

type countingSub struct {
	id uint64
	n  int
}

func newCountingSub() *countingSub { return &countingSub{id: nextID()} }
func (c *countingSub) ID() uint64  { return c.id }
func (c *countingSub) Invalidate() { c.n++ }

func newTestRuntime(opts ...Option) (*Runtime, *scheduler.Microtasks) {
	mt := &scheduler.Microtasks{}
	return New(append([]Option{WithHost(mt)}, opts...)...), mt
}

func TestDepSubscribeDeduplicates(t *testing.T) {
	rt, _ := newTestRuntime()
	d := rt.NewDep()
	sub := newCountingSub()

	for i := 0; i < 5; i++ {
		d.Subscribe(sub)
	}
	assert.Equal(t, 1, d.Len())

	d.Notify()
	assert.Equal(t, 1, sub.n)

	d.Unsubscribe(sub)
	assert.Equal(t, 0, d.Len())
	d.Notify()
	assert.Equal(t, 1, sub.n)
}

func TestDepNotifyOrderAndSnapshot(t *testing.T) {
	rt, _ := newTestRuntime()
	d := rt.NewDep()
	var order []string
	late := &funcSub{id: nextID(), fn: func() { order = append(order, "late") }}
	first := &funcSub{id: nextID(), fn: func() {
		order = append(order, "first")
		d.Subscribe(late)
	}}
	second := &funcSub{id: nextID(), fn: func() { order = append(order, "second") }}
	d.Subscribe(first)
	d.Subscribe(second)

	d.Notify()
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 3, d.Len())
}

type funcSub struct {
	id uint64
	fn func()
}

func (f *funcSub) ID() uint64  { return f.id }
func (f *funcSub) Invalidate() { f.fn() }

func TestRepeatedReadsSubscribeOnce(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"a": 1})
	runs := 0
	rt.Effect(func() {
		runs++
		for i := 0; i < 5; i++ {
			_ = state.Get("a")
		}
	})

	assert.Equal(t, 1, state.PropDep("a").Len())
	state.Set("a", 2)
	mt.Drain()
	assert.Equal(t, 2, runs)
}

func TestWriteSameValueIsNoop(t *testing.T) {
	rt, mt := newTestRuntime()
	nested := map[string]any{"x": 1}
	state := rt.Reactive(map[string]any{"n": 1, "s": "hi", "obj": nested})
	runs := 0
	rt.Effect(func() {
		runs++
		state.Get("n")
		state.Get("s")
		state.Get("obj")
	})
	sub := newCountingSub()
	state.PropDep("n").Subscribe(sub)

	state.Set("n", 1)
	state.Set("s", "hi")
	state.Set("obj", state.Peek("obj"))
	state.Set("obj", nested) // same map, already wrapped
	assert.Equal(t, scheduler.Idle, rt.Scheduler().State())
	assert.Equal(t, 0, mt.Drain())
	assert.Equal(t, 1, runs)
	assert.Equal(t, 0, sub.n)

	state.Set("obj", map[string]any{"x": 1})
	mt.Drain()
	assert.Equal(t, 2, runs, "a different map is a different value")
}

func TestLazyCaching(t *testing.T) {
	rt, _ := newTestRuntime()
	state := rt.Reactive(map[string]any{"n": 2})
	calls := 0
	double := NewComputed(rt, func() int {
		calls++
		return state.Get("n").(int) * 2
	})
	assert.Equal(t, 0, calls, "lazy values do not compute at creation")

	for i := 0; i < 10; i++ {
		assert.Equal(t, 4, double.Get())
	}
	assert.Equal(t, 1, calls)

	state.Set("n", 5)
	assert.True(t, double.Watcher().Dirty())
	assert.Equal(t, 1, calls, "invalidation only marks dirty")
	assert.Equal(t, 10, double.Get())
	assert.Equal(t, 10, double.Peek())
	assert.Equal(t, 2, calls)
}

func TestFlushOrderFollowsCreation(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"a": 0, "b": 0, "c": 0})
	var order []string
	for _, key := range []string{"a", "b", "c"} {
		key := key
		rt.Effect(func() {
			state.Get(key)
			order = append(order, key)
		})
	}
	order = nil

	state.Set("c", 1)
	state.Set("a", 1)
	state.Set("b", 1)
	mt.Drain()

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestReentrantInvalidationRunsInSameFlush(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"x": 0, "y": 0})
	var order []string
	rt.Effect(func() {
		state.Get("y")
		order = append(order, "A")
	})
	rt.Effect(func() {
		if state.Get("x").(int) > 0 {
			state.Set("y", state.Peek("x"))
		}
		order = append(order, "B")
	})
	order = nil

	state.Set("x", 1)

	// A has the smaller ID but is invalidated by B mid-flush; one deferred
	// flush still covers both.
	assert.Equal(t, 1, mt.Drain())
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestSelfWriteIsDeferred(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"n": 0})
	var depths []int
	rt.Effect(func() {
		depths = append(depths, rt.Depth())
		if n := state.Get("n").(int); n < 3 {
			state.Set("n", n+1)
		}
	})
	assert.Equal(t, []int{1}, depths, "self-invalidation does not recurse")

	mt.Drain()
	assert.Equal(t, 3, state.Peek("n"))
	assert.Equal(t, []int{1, 1, 1, 1}, depths)
}

func TestUpdateLoopReported(t *testing.T) {
	var reported []error
	rt, mt := newTestRuntime(
		WithMaxUpdateCount(5),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	state := rt.Reactive(map[string]any{"n": 0})
	rt.Effect(func() {
		state.Set("n", state.Get("n").(int)+1)
	})
	mt.Drain()

	require.Len(t, reported, 1)
	assert.True(t, errors.HasCode(reported[0], "R003"))
	assert.Equal(t, 6, state.Peek("n"))
}

func TestNestedEvaluationAttribution(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"inner": 1, "outer": 1})
	inner := NewComputed(rt, func() int { return state.Get("inner").(int) })
	outerRuns := 0
	outer := rt.Effect(func() {
		outerRuns++
		state.Get("outer")
		inner.Get()
	})

	assert.Equal(t, 1, inner.Watcher().DepCount(), "inner only read inner")
	assert.Equal(t, 2, outer.DepCount(), "outer read outer and, through Depend, inner")
	assert.Nil(t, rt.Target())

	state.Set("inner", 2)
	mt.Drain()
	assert.Equal(t, 2, outerRuns, "outer re-runs when the computed's input changes")
}

func TestUntracked(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"a": 1})
	runs := 0
	rt.Effect(func() {
		runs++
		rt.Untracked(func() { state.Get("a") })
	})
	assert.Equal(t, 0, state.PropDep("a").Len())

	state.Set("a", 2)
	mt.Drain()
	assert.Equal(t, 1, runs)
}

func TestStaleDepsAreDropped(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"flag": true, "a": 1, "b": 1})
	runs := 0
	rt.Effect(func() {
		runs++
		if state.Get("flag").(bool) {
			state.Get("a")
		} else {
			state.Get("b")
		}
	})
	assert.Equal(t, 1, state.PropDep("a").Len())

	state.Set("flag", false)
	mt.Drain()
	assert.Equal(t, 0, state.PropDep("a").Len())
	assert.Equal(t, 1, state.PropDep("b").Len())

	state.Set("a", 99)
	mt.Drain()
	assert.Equal(t, 2, runs, "a is no longer a dependency")
}

func TestFailureIsolationAcrossWatchers(t *testing.T) {
	var reported []error
	rt, mt := newTestRuntime(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	state := rt.Reactive(map[string]any{"n": 0})
	var seen []int
	rt.Effect(func() {
		if state.Get("n").(int) == 1 {
			panic("broken render")
		}
	}, Named("broken"))
	healthy := rt.Effect(func() {
		seen = append(seen, state.Get("n").(int))
	})

	state.Set("n", 1)
	mt.Drain()

	assert.Equal(t, []int{0, 1}, seen)
	require.Len(t, reported, 1)
	assert.True(t, errors.HasCode(reported[0], "R001"))
	assert.Contains(t, reported[0].Error(), "broken")
	assert.NoError(t, healthy.Err())
	assert.Equal(t, 0, rt.Depth(), "stack is restored after a panic")
}

func TestComputedFailureKeepsLastValue(t *testing.T) {
	var reported []error
	rt, _ := newTestRuntime(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	state := rt.Reactive(map[string]any{"d": 1})
	inv := NewComputed(rt, func() int { return 10 / state.Get("d").(int) })
	assert.Equal(t, 10, inv.Get())

	state.Set("d", 0)
	assert.Equal(t, 10, inv.Get())
	require.Len(t, reported, 1)

	state.Set("d", 2)
	assert.Equal(t, 5, inv.Get())
}

func TestObserveWrapsOnce(t *testing.T) {
	rt, _ := newTestRuntime()
	m := map[string]any{"child": map[string]any{"v": 1}}
	a := rt.Observe(m)
	b := rt.Observe(m)
	assert.Same(t, a.(*Object), b.(*Object))
	assert.Same(t, a.(*Object), rt.Observe(a).(*Object))

	s := []any{1, 2}
	assert.Same(t, rt.Observe(s).(*List), rt.Observe(s).(*List))

	for _, prim := range []any{nil, 1, "x", true, 2.5, []byte("raw")} {
		assert.Equal(t, prim, rt.Observe(prim))
	}
}

func TestObserveIsDeep(t *testing.T) {
	rt, _ := newTestRuntime()
	state := rt.Reactive(map[string]any{
		"user":  map[string]any{"name": "ada"},
		"tags":  []string{"x", "y"},
		"items": []any{map[string]any{"id": 1}},
	})

	user, ok := state.Peek("user").(*Object)
	require.True(t, ok)
	assert.Equal(t, "ada", user.Peek("name"))

	tags, ok := state.Peek("tags").(*List)
	require.True(t, ok)
	assert.Equal(t, 2, tags.Len())

	items := state.Peek("items").(*List)
	_, ok = items.At(0).(*Object)
	assert.True(t, ok)
}

func TestObserveCycle(t *testing.T) {
	rt, _ := newTestRuntime()
	m := map[string]any{}
	m["self"] = m
	o := rt.Reactive(m)
	assert.Same(t, o, o.Peek("self").(*Object))
	assert.NotPanics(t, func() { _ = o.Raw() })
}

type profile struct {
	Name    string `json:"name"`
	Age     int
	Secret  string `json:"-"`
	private int
	Address *address `json:"address"`
}

type address struct {
	City string `json:"city"`
}

func TestObserveStruct(t *testing.T) {
	rt, _ := newTestRuntime()
	p := &profile{Name: "ada", Age: 36, Secret: "x", private: 1, Address: &address{City: "London"}}
	o := rt.Observe(p).(*Object)

	assert.Equal(t, []string{"name", "Age", "address"}, o.Keys())
	assert.Equal(t, "ada", o.Get("name"))
	addr := o.Get("address").(*Object)
	assert.Equal(t, "London", addr.Get("city"))
	assert.Same(t, o, rt.Observe(p).(*Object))
	assert.Same(t, p, o.Source())
}

func TestNestedGetTracksChildNode(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"todos": []any{"a"}})
	runs := 0
	rt.Effect(func() {
		runs++
		state.Get("todos")
	})
	todos := state.Peek("todos").(*List)
	assert.Equal(t, 1, todos.Dep().Len(), "reading the property subscribes to the list itself")

	todos.Push("b")
	mt.Drain()
	assert.Equal(t, 2, runs)
}

func TestUndefinedPropertyIsNotReactive(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{})
	runs := 0
	rt.Effect(func() {
		runs++
		state.Get("late")
	})

	state.Set("late", 1)
	mt.Drain()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, state.Get("late"))
	assert.False(t, state.Reactive("late"))

	// Define makes it reactive and notifies structure watchers.
	rt.Effect(func() { state.Keys() })
	state.Define("late", 2)
	assert.True(t, state.Reactive("late"))
	mt.Drain()
	assert.Equal(t, 2, state.Peek("late"))

	state.Set("late", 3)
	mt.Drain()
	assert.Equal(t, 3, state.Peek("late"))
}

func TestDefineAndDelete(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"a": 1})
	var keys [][]string
	rt.Effect(func() { keys = append(keys, state.Keys()) })

	state.Define("b", 2)
	mt.Drain()
	state.Delete("a")
	mt.Drain()

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"b"}}, keys)
	assert.False(t, state.Has("a"))
	assert.Equal(t, 1, state.Len())
}

func TestObjectJSON(t *testing.T) {
	rt, _ := newTestRuntime()
	state := rt.Reactive(map[string]any{"b": []any{1, 2}, "a": "x"})
	state.Set("extra", true)
	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":[1,2],"extra":true}`, string(data))
}

func TestOwnerDispose(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"n": 0})
	root := NewOwner(nil)
	child := NewOwner(root)
	var log []string
	runs := 0
	rt.Effect(func() {
		runs++
		state.Get("n")
	}, OwnedBy(child))
	root.OnCleanup(func() { log = append(log, "root-1") })
	root.OnCleanup(func() { log = append(log, "root-2") })
	child.OnCleanup(func() { log = append(log, "child") })

	root.Dispose()
	root.Dispose()

	assert.Equal(t, []string{"child", "root-2", "root-1"}, log)
	assert.True(t, child.IsDisposed())
	assert.Equal(t, 0, state.PropDep("n").Len())

	state.Set("n", 1)
	mt.Drain()
	assert.Equal(t, 1, runs)

	late := false
	root.OnCleanup(func() { late = true })
	assert.True(t, late)
}

func TestTeardown(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"n": 0})
	runs := 0
	w := rt.Effect(func() {
		runs++
		state.Get("n")
	})
	state.Set("n", 1)
	w.Teardown()
	mt.Drain()

	assert.Equal(t, 1, runs, "a queued watcher torn down before the flush does not run")
	assert.False(t, w.Active())
}

func TestWatcherNames(t *testing.T) {
	rt, _ := newTestRuntime()
	w := rt.Watch(func() any { return 1 }, Named("render"))
	assert.Equal(t, "render", w.Name())
	assert.Equal(t, 1, w.Value())

	anon := rt.Watch(func() any { return nil }, Lazy())
	assert.Equal(t, fmt.Sprintf("watcher #%d", anon.ID()), anon.Name())
	assert.Greater(t, anon.ID(), w.ID())
}

func TestIndependentRuntimes(t *testing.T) {
	rt1, mt1 := newTestRuntime()
	rt2, mt2 := newTestRuntime()
	s1 := rt1.Reactive(map[string]any{"v": 0})
	s2 := rt2.Reactive(map[string]any{"v": 0})
	var runs1, runs2 int
	rt1.Effect(func() { runs1++; s1.Get("v") })
	rt2.Effect(func() { runs2++; s2.Get("v") })

	s1.Set("v", 1)
	assert.Equal(t, 0, mt2.Drain())
	mt1.Drain()
	assert.Equal(t, 2, runs1)
	assert.Equal(t, 1, runs2)
}

func TestNextTickAfterFlush(t *testing.T) {
	rt, mt := newTestRuntime()
	state := rt.Reactive(map[string]any{"n": 0})
	var seen []int
	rt.Effect(func() { seen = append(seen, state.Get("n").(int)) })

	state.Set("n", 1)
	var atTick []int
	rt.NextTick(func() { atTick = append(atTick, seen...) })
	mt.Drain()

	assert.Equal(t, []int{0, 1}, atTick)
}
