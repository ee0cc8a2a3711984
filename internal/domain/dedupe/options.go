package dedupe

// Option applies a configuration option to the in-memory ledger.
type Option func(*inMemoryLedger)

// WithMaxSize bounds the number of keys kept in memory. The oldest key
// is evicted once the bound is reached. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *inMemoryLedger) {
		l.maxSize = maxSize
	}
}
