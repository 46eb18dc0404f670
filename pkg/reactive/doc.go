// Package reactive tracks reads and writes of application state and re-runs
// the computations that depend on it.
//
// # Runtime
//
// A Runtime owns everything that would otherwise be global: the stack of
// running watchers that reads are attributed to, the registry that makes sure
// a value is wrapped at most once, and the scheduler that batches re-runs.
// Independent runtimes do not interact.
//
//	rt := reactive.New()
//	state := rt.Reactive(map[string]any{"count": 0})
//
//	rt.Effect(func() {
//	    fmt.Println("count is", state.Get("count"))
//	})
//
//	state.Set("count", 1) // re-run is scheduled, not immediate
//
// # Observable Values
//
// Observe wraps maps with string keys and structs as *Object, and slices as
// *List. Wrapping is deep: nested maps, structs and slices are wrapped too.
// Every property of an Object has its own Dep, so writing one property only
// re-runs watchers that read that property. Objects and lists also carry a
// node-level Dep that fires on structural change (a List mutation or an
// Object property being defined or deleted).
//
// Properties that were not present when an Object was created are not
// reactive when assigned with Set. Use Define to add a reactive property.
//
// # Watchers
//
// A Watcher runs a closure while sitting on top of the runtime's stack; every
// Dep read during the run subscribes the watcher. Eager watchers run at
// creation and are queued on the scheduler when invalidated. Lazy watchers
// only mark themselves dirty and recompute on the next read, which is how
// Computed caches derived values.
//
// # Thread Safety
//
// A Runtime and everything created from it must be used from one goroutine.
// Use scheduler.Loop to funnel work from other goroutines.
package reactive
