package alert

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithLatenessRule tunes the lateness alert: minimum recorded check-ins
// before the rule applies, the late ratio that trips a warning, and the
// absolute late count that escalates to critical.
func WithLatenessRule(minSample int, warnRatio float64, criticalCount int) Option {
	return func(d *Detector) {
		if minSample > 0 {
			d.latenessMinSample = minSample
		}
		if warnRatio > 0 && warnRatio < 1 {
			d.latenessWarnRatio = warnRatio
		}
		if criticalCount > 0 {
			d.latenessCriticalCount = criticalCount
		}
	}
}

// WithNoShowRule tunes the no-show alert: count that trips a warning and
// count that escalates to critical.
func WithNoShowRule(warnCount, criticalCount int) Option {
	return func(d *Detector) {
		if warnCount > 0 {
			d.noShowWarnCount = warnCount
		}
		if criticalCount > 0 {
			d.noShowCriticalCount = criticalCount
		}
	}
}
