// Package checkin orchestrates a single check-in attempt as a per-session
// state machine: idle → locating → checking-in → checked-in, with error
// reachable from locating and checking-in and a retry path back to idle.
package checkin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/muster/internal/domain/gate"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/pkg/logger"
)

// State identifies where a session is in the check-in flow.
type State string

// Session states. CheckedIn is terminal for the (event, member) pair.
const (
	StateIdle       State = "idle"
	StateLocating   State = "locating"
	StateCheckingIn State = "checking-in"
	StateCheckedIn  State = "checked-in"
	StateError      State = "error"
)

// LocationProvider acquires the device position. The call may suspend;
// it honors ctx for cancellation and fails with one of the sentinel
// location errors.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (model.Location, error)
}

// ProviderFunc adapts a function to the LocationProvider interface.
type ProviderFunc func(ctx context.Context) (model.Location, error)

// CurrentLocation implements LocationProvider.
func (f ProviderFunc) CurrentLocation(ctx context.Context) (model.Location, error) {
	return f(ctx)
}

// Recorder appends the check-in record once the gate has passed.
type Recorder interface {
	AppendCheckIn(ctx context.Context, memberID string, rec model.CheckIn) error
}

// Session drives one member's check-in for one event. A session is used
// from a single logical thread of control; the internal mutex only
// guards against a second trigger racing an in-flight attempt.
type Session struct {
	mu sync.Mutex

	event    model.ServiceEvent
	memberID string

	gate     *gate.Gate
	provider LocationProvider
	recorder Recorder
	now      func() time.Time
	log      logger.Logger

	state   State
	message string
}

// NewSession creates a session for the (event, member) pair. If the
// member already has a check-in for the event the session starts in
// checked-in and offers no transition out.
func NewSession(event model.ServiceEvent, member model.TeamMember, provider LocationProvider, recorder Recorder, opts ...Option) *Session {
	s := &Session{
		event:    event,
		memberID: member.ID,
		gate:     gate.New(),
		provider: provider,
		recorder: recorder,
		now:      time.Now,
		log:      logger.Get().Named("checkin"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, ok := member.CheckInFor(event.ID); ok {
		s.state = StateCheckedIn
	}
	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Message returns the human-readable message for the current state,
// empty unless the session is in error.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// CanBegin reports whether the triggering action should be enabled:
// the session is idle and the check-in window is open.
func (s *Session) CanBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateIdle && s.gate.WindowOpen(s.event, s.now())
}

// RequiresReason reports whether starting now would classify the
// check-in as late, in which case Begin must carry a non-empty reason.
func (s *Session) RequiresReason() bool {
	return s.gate.IsLate(s.event, s.now())
}

// Begin runs the check-in flow to completion. A second invocation while
// an attempt is in flight, or on a terminal session, is a no-op returning
// ErrBusy. A late start without a reason aborts before any side effect.
// Cancelling ctx during location acquisition abandons the attempt and
// returns the session to idle with nothing committed.
func (s *Session) Begin(ctx context.Context, lateReason string) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}

	now := s.now()
	if !s.gate.WindowOpen(s.event, now) {
		s.mu.Unlock()
		return gate.ErrWindowClosed
	}
	if s.gate.IsLate(s.event, now) && strings.TrimSpace(lateReason) == "" {
		// Abort with no side effect; the caller re-prompts for a reason.
		s.mu.Unlock()
		return gate.ErrMissingReason
	}

	s.state = StateLocating
	s.message = ""
	s.mu.Unlock()

	// Suspension point: the provider call may block until the device
	// responds or ctx is cancelled.
	loc, err := s.provider.CurrentLocation(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.transition(StateIdle, "")
			return err
		}
		s.transition(StateError, locationMessage(err))
		return err
	}

	decision, err := s.gate.Evaluate(s.event, s.now(), &loc, lateReason)
	if err != nil {
		s.transition(StateError, err.Error())
		return err
	}

	s.transition(StateCheckingIn, "")
	rec := model.CheckIn{
		ID:         uuid.NewString(),
		EventID:    s.event.ID,
		Time:       s.now(),
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		LateReason: lateReason,
	}
	if !decision.Late {
		rec.LateReason = ""
	}

	if err := s.recorder.AppendCheckIn(ctx, s.memberID, rec); err != nil {
		// Persistence failure message is surfaced verbatim.
		s.transition(StateError, err.Error())
		return err
	}

	s.transition(StateCheckedIn, "")
	s.log.Info(ctx, "checked in",
		logger.String("eventID", s.event.ID),
		logger.String("memberID", s.memberID),
		logger.Bool("late", decision.Late),
	)
	return nil
}

// Retry moves an errored session back to idle. Any other state is left
// untouched.
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateError {
		s.state = StateIdle
		s.message = ""
	}
}

func (s *Session) transition(next State, message string) {
	s.mu.Lock()
	s.state = next
	s.message = message
	s.mu.Unlock()
}

// locationMessage maps provider failures to user-facing text.
func locationMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "location permission denied; enable location access and retry"
	case errors.Is(err, ErrPositionUnavailable):
		return "could not determine your position; retry in a moment"
	case errors.Is(err, ErrLocationTimeout):
		return "location request timed out; retry"
	case errors.Is(err, ErrLocationUnsupported):
		return "location is not supported on this device"
	default:
		return err.Error()
	}
}
