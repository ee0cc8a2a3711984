// Package attendance aggregates a member's check-in history against past
// assigned events into classification counts and a reliability score.
package attendance

import (
	"time"

	"github.com/okian/muster/internal/domain/instant"
	"github.com/okian/muster/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultGracePeriod = 5 * time.Minute
	defaultLateWeight  = 0.5
	fullScore          = 100.0
)

// Calculator computes AttendanceStats. Compute is pure: identical input
// yields identical output regardless of call order or repetition, so it
// is safe to recompute on every request.
type Calculator struct {
	grace      time.Duration
	lateWeight float64
}

// New constructs a Calculator with default thresholds.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		grace:      defaultGracePeriod,
		lateWeight: defaultLateWeight,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute derives attendance statistics for the member over all events
// that ended strictly before now and on which the member holds an
// assignment (as assignee or trainee). Timestamps are normalized through
// the instant package, so malformed values degrade to the epoch instead
// of failing; Compute never returns an error.
func (c *Calculator) Compute(member model.TeamMember, events []model.ServiceEvent, now time.Time) model.AttendanceStats {
	var stats model.AttendanceStats

	for _, ev := range events {
		if !instant.Normalize(ev.EndsAt()).Before(now) {
			continue
		}
		if !ev.Assigned(member.ID) {
			continue
		}
		stats.TotalAssignments++

		rec, ok := member.CheckInFor(ev.ID)
		if !ok {
			stats.NoShow++
			continue
		}

		diff := instant.Normalize(rec.Time).Sub(instant.Normalize(ev.CallTime))
		switch {
		case diff < -c.grace:
			stats.Early++
		case diff > c.grace:
			stats.Late++
		default:
			stats.OnTime++
		}
	}

	attended := stats.Attended()
	if attended == 0 {
		stats.OnTimePercentage = fullScore
	} else {
		stats.OnTimePercentage = float64(stats.OnTime+stats.Early) / float64(attended) * fullScore
	}

	if stats.TotalAssignments == 0 {
		stats.ReliabilityScore = fullScore
	} else {
		credit := float64(stats.OnTime+stats.Early) + float64(stats.Late)*c.lateWeight
		stats.ReliabilityScore = credit / float64(stats.TotalAssignments) * fullScore
	}

	return stats
}
