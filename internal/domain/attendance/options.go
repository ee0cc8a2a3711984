package attendance

import "time"

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithGracePeriod sets the on-time band around call time. A check-in
// more than grace before call time counts as early, more than grace
// after as late.
func WithGracePeriod(grace time.Duration) Option {
	return func(c *Calculator) {
		if grace > 0 {
			c.grace = grace
		}
	}
}

// WithLateWeight sets the partial credit a late check-in earns toward
// the reliability score.
func WithLateWeight(weight float64) Option {
	return func(c *Calculator) {
		if weight >= 0 && weight <= 1 {
			c.lateWeight = weight
		}
	}
}
