package checkin

import (
	"time"

	"github.com/okian/muster/internal/domain/gate"
	"github.com/okian/muster/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithGate sets a custom check-in gate.
func WithGate(g *gate.Gate) Option {
	return func(s *Session) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithClock sets the time source. Tests supply deterministic instants.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}
