package dedupe

type config struct {
	maxSize int
}

// Option configures NewInMemoryDeduper.
type Option func(*config)

// WithMaxSize bounds the number of remembered ids. Zero or less means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}
