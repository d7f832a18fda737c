// Package dedupe keeps a bounded cache of recently seen chat event ids.
//
// Live chat pages overlap: a resumed continuation token or a backoff
// retry re-delivers events the pipeline already handled. The durable
// store rejects those at commit time; this cache sheds them earlier,
// before they cost a queue slot and a classification pass.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen event ids to shed re-delivered events.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records
	// it if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so it can be retried. Used when an event
	// was recorded but never made it into the queue.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

const defaultCapacity = 50_000

// seenCache is a fixed-capacity set with FIFO eviction. The ring holds
// insertion order; when it wraps, the oldest id falls out of the set.
// Capacity <= 0 disables eviction.
type seenCache struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	ring     []string
	next     int
	capacity int
}

// New creates a deduper with configuration options.
func New(opts ...Option) Deduper {
	c := &seenCache{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.seen = make(map[string]struct{})
	if c.capacity > 0 {
		c.ring = make([]string, c.capacity)
	}

	return c
}

func (c *seenCache) SeenAndRecord(_ context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}

	if c.capacity > 0 {
		// Evict whatever occupied this ring slot. Unrecorded ids leave
		// stale slots behind; deleting those is a no-op.
		if old := c.ring[c.next]; old != "" {
			delete(c.seen, old)
		}
		c.ring[c.next] = id
		c.next = (c.next + 1) % c.capacity
	}

	c.seen[id] = struct{}{}
	return false
}

func (c *seenCache) Unrecord(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, id)
}

// Size returns the current number of remembered ids.
func (c *seenCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.seen))
}
