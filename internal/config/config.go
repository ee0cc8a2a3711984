// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RecomputeQueueSize bounds the in-memory recompute queue.
	RecomputeQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// LedgerSize caps the in-flight check-in attempt ledger.
	LedgerSize int `koanf:"ledger_size"`

	// MaxBoardLimit caps GET /board?limit.
	MaxBoardLimit int `koanf:"max_board_limit"`

	// CheckInOpenBeforeMin opens the check-in window this many minutes
	// before call time.
	CheckInOpenBeforeMin int `koanf:"checkin_open_before_min"`

	// CheckInCloseAfterMin closes the window this many minutes after
	// call time.
	CheckInCloseAfterMin int `koanf:"checkin_close_after_min"`

	// GraceMin is the lateness grace period in minutes. Check-ins at or
	// past call time plus grace are late; the stats buckets use the same
	// boundary.
	GraceMin int `koanf:"grace_min"`

	// GeofenceRadiusM is the maximum accepted distance from the event
	// location, in meters.
	GeofenceRadiusM float64 `koanf:"geofence_radius_m"`

	// LateWeight is the credit a late check-in earns toward the
	// reliability score.
	LateWeight float64 `koanf:"late_weight"`

	// LatenessMinSample is the minimum attended events before a lateness
	// alert can fire.
	LatenessMinSample int `koanf:"lateness_min_sample"`

	// LatenessWarnRatio is the late/attended ratio that triggers a
	// lateness alert.
	LatenessWarnRatio float64 `koanf:"lateness_warn_ratio"`

	// LatenessCriticalCount escalates a lateness alert to critical when
	// the late count exceeds it.
	LatenessCriticalCount int `koanf:"lateness_critical_count"`

	// NoShowWarnCount triggers a no-show alert at this many no-shows.
	NoShowWarnCount int `koanf:"no_show_warn_count"`

	// NoShowCriticalCount escalates a no-show alert to critical when the
	// no-show count exceeds it.
	NoShowCriticalCount int `koanf:"no_show_critical_count"`
}

// New creates a Config using provided options. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use (e.g.,
// loading from env/files) and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		RecomputeQueueSize:    10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		LedgerSize:            50_000,
		MaxBoardLimit:         100,
		CheckInOpenBeforeMin:  60,
		CheckInCloseAfterMin:  30,
		GraceMin:              5,
		GeofenceRadiusM:       200,
		LateWeight:            0.5,
		LatenessMinSample:     3,
		LatenessWarnRatio:     0.3,
		LatenessCriticalCount: 5,
		NoShowWarnCount:       2,
		NoShowCriticalCount:   3,
	}
	return c
}
