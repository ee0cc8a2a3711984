package repository

import "time"

// Option applies a configuration option to the TreapBoard.
type Option func(*TreapBoard)

// WithMetricsInterval sets how often board gauges are refreshed.
func WithMetricsInterval(interval time.Duration) Option {
	return func(b *TreapBoard) {
		if interval > 0 {
			b.metricsInterval = interval
		}
	}
}
