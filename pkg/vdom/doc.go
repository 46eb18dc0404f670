// Package vdom describes output trees as plain values and reconciles one
// version of a tree against the next.
//
// # Core Types
//
// VNode is either an element (tag, props, children, optional key) or a text
// node (literal text or an Expr evaluated at render time). Trees are built
// fresh on every render with the element functions:
//
//	Ul(Class("todos"),
//	    Range(items, func(it Item, _ int) *VNode {
//	        return Li(Key(it.ID), Text(it.Title))
//	    }),
//	)
//
// # Reconciliation
//
// A Reconciler applies the difference between two trees to a live surface
// through an Adapter. Nodes match when their keys and tags are equal. Child
// lists are reconciled with a two-pointer walk that checks the start and end
// of both lists before falling back to a key lookup, so appends, prepends,
// removals and end swaps cost no searching.
//
// Children without keys match on tag alone. In the fallback step an unkeyed
// new child takes the first remaining unkeyed old child with the same tag.
// Reordering unkeyed children can therefore patch one node into another's
// place instead of moving it.
package vdom
