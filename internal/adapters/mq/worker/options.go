// Package worker defines the pool that refreshes derived attendance state.
package worker

import (
	"time"

	"github.com/okian/muster/pkg/logger"
)

// Option applies a configuration option to the RecomputeWorker.
type Option func(*RecomputeWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RecomputeWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(log logger.Logger) Option {
	return func(w *RecomputeWorker) {
		if log != nil {
			w.logger = log
		}
	}
}

// WithClock sets the time source used as "now" for stats computation.
func WithClock(now func() time.Time) Option {
	return func(w *RecomputeWorker) {
		if now != nil {
			w.now = now
		}
	}
}
