// Package app binds observable state, computed values and a template into a
// component that re-renders itself when the state it read changes.
//
// A component's render unit runs render() and reconciles the result against
// the previous tree. Because text expressions are resolved during
// reconciliation, everything the output depends on is read while the render
// unit is on top of the subscriber stack.
package app

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/reactive"
	"github.com/vango-dev/ripple/pkg/template"
	"github.com/vango-dev/ripple/pkg/vdom"
)

// ComputedFunc derives a value from the component's state.
type ComputedFunc func(c *Component) any

// Options describes a component.
type Options struct {
	Name string

	// Data is the initial state: a map with string keys or a struct pointer.
	Data any

	// Computed values are cached and only recomputed after an input changes.
	Computed map[string]ComputedFunc

	// Template is compiled into the render function unless Render is set.
	Template string
	Render   func(c *Component) *vdom.VNode
}

// Option configures a Component.
type Option func(*Component)

// WithLogger sets the component's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReconcilerOptions passes options to the reconciler created on Mount.
func WithReconcilerOptions(opts ...vdom.Option) Option {
	return func(c *Component) {
		c.reconcilerOpts = append(c.reconcilerOpts, opts...)
	}
}

// Component is a mounted or mountable instance of Options.
type Component struct {
	rt       *reactive.Runtime
	name     string
	logger   *slog.Logger
	data     *reactive.Object
	computed map[string]*reactive.Watcher
	render   func(c *Component) *vdom.VNode
	owner    *reactive.Owner

	reconcilerOpts []vdom.Option
	reconciler     *vdom.Reconciler
	parent         vdom.Handle
	vnode          *vdom.VNode
	renderUnit     *reactive.Watcher
	renders        int
}

// New creates a component on rt. The component does nothing until mounted.
func New(rt *reactive.Runtime, opts Options, options ...Option) (*Component, error) {
	name := opts.Name
	if name == "" {
		name = "app"
	}
	c := &Component{
		rt:       rt,
		name:     name,
		logger:   slog.Default().With("component", "app", "name", name),
		computed: make(map[string]*reactive.Watcher, len(opts.Computed)),
		owner:    reactive.NewOwner(nil),
	}
	for _, opt := range options {
		opt(c)
	}

	switch d := opts.Data.(type) {
	case nil:
		c.data = rt.Reactive(nil)
	default:
		obj, ok := rt.Observe(d).(*reactive.Object)
		if !ok {
			return nil, fmt.Errorf("app %s: data must be a map or struct, got %T", name, opts.Data)
		}
		c.data = obj
	}

	keys := make([]string, 0, len(opts.Computed))
	for key := range opts.Computed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fn := opts.Computed[key]
		c.computed[key] = rt.Watch(func() any { return fn(c) },
			reactive.Lazy(),
			reactive.Named(name+".computed."+key),
			reactive.OwnedBy(c.owner),
		)
	}

	switch {
	case opts.Render != nil:
		c.render = opts.Render
	case opts.Template != "":
		fn, err := template.Compile(opts.Template)
		if err != nil {
			return nil, err
		}
		c.render = func(c *Component) *vdom.VNode { return fn(c) }
	default:
		return nil, errors.New("T001").WithDetailf("app %s has neither a template nor a render function", name)
	}

	return c, nil
}

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// Runtime returns the runtime the component's state lives in.
func (c *Component) Runtime() *reactive.Runtime { return c.rt }

// Data returns the observable state.
func (c *Component) Data() *reactive.Object { return c.data }

// VNode returns the tree of the last render.
func (c *Component) VNode() *vdom.VNode { return c.vnode }

// Renders returns how many times the component has rendered.
func (c *Component) Renders() int { return c.renders }

// Reconciler returns the reconciler created by Mount.
func (c *Component) Reconciler() *vdom.Reconciler { return c.reconciler }

// Lookup resolves a name for templates. Computed values shadow data.
func (c *Component) Lookup(name string) any {
	if w, ok := c.computed[name]; ok {
		v := w.Evaluate()
		if c.rt.Target() != nil {
			w.Depend()
		}
		return v
	}
	if !c.data.Reactive(name) {
		// Readers of a missing key re-run when it is defined.
		c.data.Dep().Depend()
	}
	return c.data.Get(name)
}

// Get is Lookup.
func (c *Component) Get(name string) any { return c.Lookup(name) }

// Set writes a data property. Keys absent from the initial data are stored
// but not observed; use Define to add a reactive key.
func (c *Component) Set(name string, value any) { c.data.Set(name, value) }

// Define adds or replaces a reactive data property.
func (c *Component) Define(name string, value any) { c.data.Define(name, value) }

// Restore writes every entry of state into the data, defining missing keys.
func (c *Component) Restore(state map[string]any) {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if c.data.Reactive(k) {
			c.data.Set(k, state[k])
		} else {
			c.data.Define(k, state[k])
		}
	}
}

// Mount renders the component into parent and keeps it up to date.
func (c *Component) Mount(adapter vdom.Adapter, parent vdom.Handle) {
	opts := append([]vdom.Option{vdom.WithLogger(c.logger)}, c.reconcilerOpts...)
	c.reconciler = vdom.NewReconciler(adapter, opts...)
	c.parent = parent
	c.renderUnit = c.rt.Watch(func() any {
		c.update(c.render(c))
		return nil
	}, reactive.Named(c.name+".render"), reactive.OwnedBy(c.owner))
}

// update reconciles the live output from the retained tree to next.
func (c *Component) update(next *vdom.VNode) {
	prev := c.vnode
	c.vnode = next
	c.reconciler.Patch(c.parent, prev, next)
	c.renders++

	s := c.reconciler.LastStats()
	c.logger.Debug("rendered",
		"renders", c.renders,
		"created", s.Created,
		"moved", s.Moved,
		"removed", s.Removed,
		"patched", s.Patched)
}

// Destroy tears down every unit of the component and removes its output.
func (c *Component) Destroy() {
	c.owner.Dispose()
	if c.reconciler != nil && c.vnode != nil {
		c.reconciler.Patch(c.parent, c.vnode, nil)
		c.vnode = nil
	}
}
