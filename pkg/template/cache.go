package template

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache holds compiled templates keyed by the hash of their source.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	src    string
	render RenderFunc
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]cacheEntry)}
}

var defaultCache = NewCache()

// Compile parses and generates src, reusing the result for identical
// sources. Errors are not cached.
func Compile(src string) (RenderFunc, error) {
	return defaultCache.Compile(src)
}

// Compile parses and generates src, reusing the result for identical
// sources.
func (c *Cache) Compile(src string) (RenderFunc, error) {
	key := xxhash.Sum64String(src)

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && e.src == src {
		return e.render, nil
	}

	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	render, err := Generate(root)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{src: src, render: render}
	c.mu.Unlock()
	return render, nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
