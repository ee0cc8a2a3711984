// Package gate decides whether, when, and from where a member may check
// in to a scheduled event. The gate is a pure decision function over an
// event and an explicit "now"; it never reads the wall clock itself, so
// callers (and tests) control time.
package gate

import (
	"math"
	"strings"
	"time"

	"github.com/okian/muster/internal/domain/geo"
	"github.com/okian/muster/internal/domain/instant"
	"github.com/okian/muster/internal/domain/model"
)

// Default gate configuration constants.
const (
	defaultOpenBefore     = 60 * time.Minute
	defaultCloseAfter     = 30 * time.Minute
	defaultGracePeriod    = 5 * time.Minute
	defaultGeofenceRadius = 200.0 // meters
)

// Gate evaluates the check-in rules for an event.
type Gate struct {
	openBefore     time.Duration
	closeAfter     time.Duration
	grace          time.Duration
	geofenceRadius float64
}

// Decision is the outcome of a permitted check-in evaluation.
type Decision struct {
	// Late is true when the attempt happened at or past the grace cutoff.
	Late bool
	// DistanceMeters is the measured distance to the event location,
	// rounded to the nearest meter. Zero when the event has no location.
	DistanceMeters int
}

// New constructs a Gate with default thresholds, adjustable via options.
func New(opts ...Option) *Gate {
	g := &Gate{
		openBefore:     defaultOpenBefore,
		closeAfter:     defaultCloseAfter,
		grace:          defaultGracePeriod,
		geofenceRadius: defaultGeofenceRadius,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WindowOpen reports whether now falls inside the inclusive check-in
// window [callTime-openBefore, callTime+closeAfter].
func (g *Gate) WindowOpen(ev model.ServiceEvent, now time.Time) bool {
	call := instant.Normalize(ev.CallTime)
	opens := call.Add(-g.openBefore)
	closes := call.Add(g.closeAfter)
	return !now.Before(opens) && !now.After(closes)
}

// IsLate reports whether a check-in at now would be classified late,
// i.e. at or past callTime plus the grace period.
func (g *Gate) IsLate(ev model.ServiceEvent, now time.Time) bool {
	cutoff := instant.Normalize(ev.CallTime).Add(g.grace)
	return !now.Before(cutoff)
}

// Evaluate applies the three check-in rules in order: window, lateness
// with reason capture, geofence. Any violation fails closed with a zero
// Decision and a typed error. pos is the position reported by the device;
// nil means no position could be supplied.
func (g *Gate) Evaluate(ev model.ServiceEvent, now time.Time, pos *model.Location, lateReason string) (Decision, error) {
	if !g.WindowOpen(ev, now) {
		return Decision{}, ErrWindowClosed
	}

	d := Decision{Late: g.IsLate(ev, now)}
	if d.Late && strings.TrimSpace(lateReason) == "" {
		return Decision{}, ErrMissingReason
	}

	// Geofence applies only when the event carries a location.
	if ev.Location != nil {
		var lat, lon float64
		if pos != nil {
			lat, lon = pos.Latitude, pos.Longitude
		}
		dist := geo.Distance(lat, lon, ev.Location.Latitude, ev.Location.Longitude)
		d.DistanceMeters = int(math.Round(dist))
		if dist > g.geofenceRadius {
			return Decision{}, &GeofenceError{DistanceMeters: d.DistanceMeters}
		}
	}

	return d, nil
}
