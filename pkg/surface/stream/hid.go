package stream

import "strconv"

// RootHID addresses the surface's root container.
const RootHID = "h0"

// HIDGenerator hands out hydration IDs "h1", "h2", ... in creation order.
// IDs are never reused, so a client can drop a removed node's ID for good.
type HIDGenerator struct {
	last uint64
}

// NewHIDGenerator returns a generator whose first ID is "h1".
func NewHIDGenerator() *HIDGenerator {
	return &HIDGenerator{}
}

// Next returns a fresh ID.
func (g *HIDGenerator) Next() string {
	g.last++
	return "h" + strconv.FormatUint(g.last, 10)
}

// Current returns the number of IDs handed out.
func (g *HIDGenerator) Current() uint64 {
	return g.last
}
