package gate

import "time"

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithWindow sets how long before and after call time check-in stays open.
func WithWindow(openBefore, closeAfter time.Duration) Option {
	return func(g *Gate) {
		if openBefore > 0 {
			g.openBefore = openBefore
		}
		if closeAfter > 0 {
			g.closeAfter = closeAfter
		}
	}
}

// WithGracePeriod sets how long after call time a check-in still counts
// as on time.
func WithGracePeriod(grace time.Duration) Option {
	return func(g *Gate) {
		if grace > 0 {
			g.grace = grace
		}
	}
}

// WithGeofenceRadius sets the accepted distance from the event location
// in meters.
func WithGeofenceRadius(meters float64) Option {
	return func(g *Gate) {
		if meters > 0 {
			g.geofenceRadius = meters
		}
	}
}
