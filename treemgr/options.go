package treemgr

// DefaultCacheCapacity is the number of decoded payloads kept resident when no
// capacity is configured.
const DefaultCacheCapacity = 10

type config struct {
	cacheCapacity int
}

// Option is an option for the tree manager.
type Option func(*config)

// WithCacheCapacity sets the maximum number of decoded payloads held in the
// cache. It must be at least one.
func WithCacheCapacity(n int) Option {
	return func(c *config) {
		c.cacheCapacity = n
	}
}
