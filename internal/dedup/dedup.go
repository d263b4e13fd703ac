// Package dedup tracks which canonical URLs a run already knows about.
package dedup

// Collector owns the dedup universe for exactly one run. It is seeded from
// persistence at run start and mutated only by that run; the check-then-mark
// pattern keeps two sources (or two discovery targets) from persisting the
// same canonical URL twice even though each is scraped independently.
// Single-threaded use; runs never share a collector.
type Collector struct {
	seen map[string]struct{}
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Seed loads the already-known keys, typically every canonical URL in the
// persisted store.
func (c *Collector) Seed(keys map[string]struct{}) {
	for k := range keys {
		c.seen[k] = struct{}{}
	}
}

// IsNew reports whether key has not been seen in this run or its seed.
func (c *Collector) IsNew(key string) bool {
	_, ok := c.seen[key]
	return !ok
}

// MarkSeen records key for the remainder of the run.
func (c *Collector) MarkSeen(key string) {
	c.seen[key] = struct{}{}
}
