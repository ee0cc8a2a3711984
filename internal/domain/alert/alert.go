// Package alert applies threshold rules to attendance statistics and
// produces advisory performance alerts.
package alert

import (
	"fmt"

	"github.com/okian/muster/internal/domain/model"
)

// Default detection thresholds.
const (
	defaultLatenessMinSample     = 3
	defaultLatenessWarnRatio     = 0.3
	defaultLatenessCriticalCount = 5
	defaultNoShowWarnCount       = 2
	defaultNoShowCriticalCount   = 3
)

// Detector evaluates alert rules over AttendanceStats. Detect is pure
// and its rules are order-independent; the returned slice is always
// ordered lateness first, no-shows second.
type Detector struct {
	latenessMinSample     int
	latenessWarnRatio     float64
	latenessCriticalCount int
	noShowWarnCount       int
	noShowCriticalCount   int
}

// New constructs a Detector with default thresholds.
func New(opts ...Option) *Detector {
	d := &Detector{
		latenessMinSample:     defaultLatenessMinSample,
		latenessWarnRatio:     defaultLatenessWarnRatio,
		latenessCriticalCount: defaultLatenessCriticalCount,
		noShowWarnCount:       defaultNoShowWarnCount,
		noShowCriticalCount:   defaultNoShowCriticalCount,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the alerts the stats trip. Both rules may fire at once.
func (d *Detector) Detect(stats model.AttendanceStats) []model.PerformanceAlert {
	var alerts []model.PerformanceAlert

	attended := stats.Attended()
	if attended >= d.latenessMinSample &&
		float64(stats.Late)/float64(attended) > d.latenessWarnRatio {
		level := model.AlertLevelWarning
		if stats.Late > d.latenessCriticalCount {
			level = model.AlertLevelCritical
		}
		alerts = append(alerts, model.PerformanceAlert{
			Type:  model.AlertTypeLateness,
			Level: level,
			Message: fmt.Sprintf("%d of the last %d check-ins were late",
				stats.Late, attended),
		})
	}

	if stats.NoShow >= d.noShowWarnCount {
		level := model.AlertLevelWarning
		if stats.NoShow > d.noShowCriticalCount {
			level = model.AlertLevelCritical
		}
		alerts = append(alerts, model.PerformanceAlert{
			Type:    model.AlertTypeNoShows,
			Level:   level,
			Message: fmt.Sprintf("%d assigned events without a check-in", stats.NoShow),
		})
	}

	return alerts
}
