// Package template compiles HTML templates into render functions that build
// vdom trees.
//
// A template has exactly one root element. Text may interpolate expressions
// with {{ path }}, and elements accept these directives:
//
//	key="k"                    static reconciliation key
//	:name="path"               attribute bound to an expression
//	v-bind:name="path"         same as :name
//	:key="path"                key bound to an expression
//	v-for="item in path"       repeat the element per item
//	v-for="(item, i) in path"  same, with the index (or map key) in scope
//
// Expressions are dotted paths resolved through a Scope: "user.name",
// "items.length", "rows.0.title". Each segment reads a property of the value
// before it, so reads on observable values are tracked by whatever
// computation is rendering.
//
// Compile caches compiled templates keyed by a hash of their source.
package template
