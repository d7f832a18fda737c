package dedupe

// Option applies a configuration option to the seen cache.
type Option func(*seenCache)

// WithCapacity sets how many ids the cache remembers before evicting
// the oldest. Zero or negative disables eviction.
func WithCapacity(capacity int) Option {
	return func(c *seenCache) {
		c.capacity = capacity
	}
}
