package reactive

import "sync/atomic"

// idCounter is the source of unique IDs for deps and watchers.
var idCounter uint64

// nextID returns the next unique ID. IDs increase monotonically and are
// never reused, so watcher IDs also order watchers by creation.
func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}
