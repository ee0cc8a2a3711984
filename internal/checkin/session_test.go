package checkin_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/muster/internal/checkin"
	"github.com/okian/muster/internal/domain/gate"
	"github.com/okian/muster/internal/domain/model"
	logging "github.com/okian/muster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

var venue = model.Location{Latitude: 40.7128, Longitude: -74.0060, Address: "Main Hall"}

func sessionEvent(callTime time.Time) model.ServiceEvent {
	return model.ServiceEvent{
		ID:       "svc-1",
		Date:     callTime,
		EndDate:  callTime.Add(2 * time.Hour),
		CallTime: callTime,
		Location: &venue,
		Assignments: []model.Assignment{
			{MemberID: "mem-1"},
		},
	}
}

// mockRecorder captures appended check-in records and can be primed to fail.
type mockRecorder struct {
	mu      sync.Mutex
	records []model.CheckIn
	failErr error
}

func (r *mockRecorder) AppendCheckIn(_ context.Context, memberID string, rec model.CheckIn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *mockRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *mockRecorder) last() model.CheckIn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[len(r.records)-1]
}

func atVenue(_ context.Context) (model.Location, error) {
	return model.Location{Latitude: venue.Latitude, Longitude: venue.Longitude}, nil
}

func TestSessionLifecycle(t *testing.T) {
	Convey("Given a member assigned to an event with an open window", t, func() {
		callTime := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
		event := sessionEvent(callTime)
		member := model.TeamMember{ID: "mem-1", Name: "Avery"}
		recorder := &mockRecorder{}
		clock := func() time.Time { return callTime.Add(-2 * time.Minute) }

		Convey("When a session is created", func() {
			s := checkin.NewSession(event, member, checkin.ProviderFunc(atVenue), recorder, checkin.WithClock(clock))

			Convey("Then it starts idle and can begin", func() {
				So(s.State(), ShouldEqual, checkin.StateIdle)
				So(s.Message(), ShouldBeEmpty)
				So(s.CanBegin(), ShouldBeTrue)
				So(s.RequiresReason(), ShouldBeFalse)
			})

			Convey("And a begin from the venue completes the flow", func() {
				err := s.Begin(context.Background(), "")

				So(err, ShouldBeNil)
				So(s.State(), ShouldEqual, checkin.StateCheckedIn)
				So(recorder.count(), ShouldEqual, 1)

				rec := recorder.last()
				So(rec.ID, ShouldNotBeEmpty)
				So(rec.EventID, ShouldEqual, "svc-1")
				So(rec.LateReason, ShouldBeEmpty)

				Convey("And a second begin is rejected", func() {
					So(s.Begin(context.Background(), ""), ShouldEqual, checkin.ErrBusy)
					So(recorder.count(), ShouldEqual, 1)
				})
			})
		})

		Convey("When the member already checked in for the event", func() {
			member.CheckIns = []model.CheckIn{{ID: "chk-1", EventID: "svc-1", Time: callTime}}
			s := checkin.NewSession(event, member, checkin.ProviderFunc(atVenue), recorder, checkin.WithClock(clock))

			Convey("Then the session is terminal from the start", func() {
				So(s.State(), ShouldEqual, checkin.StateCheckedIn)
				So(s.CanBegin(), ShouldBeFalse)
				So(s.Begin(context.Background(), ""), ShouldEqual, checkin.ErrBusy)
				So(recorder.count(), ShouldEqual, 0)
			})
		})
	})
}

func TestSessionLateness(t *testing.T) {
	Convey("Given a session started after the grace period", t, func() {
		callTime := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
		event := sessionEvent(callTime)
		member := model.TeamMember{ID: "mem-1"}
		recorder := &mockRecorder{}
		clock := func() time.Time { return callTime.Add(12 * time.Minute) }
		s := checkin.NewSession(event, member, checkin.ProviderFunc(atVenue), recorder, checkin.WithClock(clock))

		Convey("Then a reason is required", func() {
			So(s.RequiresReason(), ShouldBeTrue)
		})

		Convey("When begin carries no reason", func() {
			err := s.Begin(context.Background(), "")

			Convey("Then it aborts before any side effect", func() {
				So(errors.Is(err, gate.ErrMissingReason), ShouldBeTrue)
				So(s.State(), ShouldEqual, checkin.StateIdle)
				So(recorder.count(), ShouldEqual, 0)
			})
		})

		Convey("When begin carries a whitespace-only reason", func() {
			err := s.Begin(context.Background(), "   ")

			Convey("Then it is treated as missing", func() {
				So(errors.Is(err, gate.ErrMissingReason), ShouldBeTrue)
				So(s.State(), ShouldEqual, checkin.StateIdle)
			})
		})

		Convey("When begin carries a reason", func() {
			err := s.Begin(context.Background(), "train delay")

			Convey("Then the record keeps the reason", func() {
				So(err, ShouldBeNil)
				So(s.State(), ShouldEqual, checkin.StateCheckedIn)
				So(recorder.count(), ShouldEqual, 1)
				So(recorder.last().LateReason, ShouldEqual, "train delay")
			})
		})
	})

	Convey("Given a session after the window has closed", t, func() {
		callTime := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
		event := sessionEvent(callTime)
		recorder := &mockRecorder{}
		clock := func() time.Time { return callTime.Add(31 * time.Minute) }
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, checkin.ProviderFunc(atVenue), recorder, checkin.WithClock(clock))

		Convey("Then begin is refused and nothing is recorded", func() {
			So(s.CanBegin(), ShouldBeFalse)
			So(errors.Is(s.Begin(context.Background(), "any"), gate.ErrWindowClosed), ShouldBeTrue)
			So(s.State(), ShouldEqual, checkin.StateIdle)
			So(recorder.count(), ShouldEqual, 0)
		})
	})
}

func TestSessionFailures(t *testing.T) {
	callTime := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return callTime.Add(-2 * time.Minute) }

	Convey("Given a provider that denies location access", t, func() {
		event := sessionEvent(callTime)
		recorder := &mockRecorder{}
		provider := checkin.ProviderFunc(func(_ context.Context) (model.Location, error) {
			return model.Location{}, fmt.Errorf("geolocation: %w", checkin.ErrPermissionDenied)
		})
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, provider, recorder, checkin.WithClock(clock))

		Convey("When begin runs", func() {
			err := s.Begin(context.Background(), "")

			Convey("Then the session errors with a retry hint", func() {
				So(errors.Is(err, checkin.ErrPermissionDenied), ShouldBeTrue)
				So(s.State(), ShouldEqual, checkin.StateError)
				So(s.Message(), ShouldContainSubstring, "permission denied")
				So(recorder.count(), ShouldEqual, 0)
			})

			Convey("And retry returns the session to idle", func() {
				s.Retry()
				So(s.State(), ShouldEqual, checkin.StateIdle)
				So(s.Message(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a provider cancelled mid-acquisition", t, func() {
		event := sessionEvent(callTime)
		recorder := &mockRecorder{}
		provider := checkin.ProviderFunc(func(ctx context.Context) (model.Location, error) {
			<-ctx.Done()
			return model.Location{}, ctx.Err()
		})
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, provider, recorder, checkin.WithClock(clock))

		Convey("When the context is cancelled during begin", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := s.Begin(ctx, "")

			Convey("Then the attempt is abandoned with nothing committed", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(s.State(), ShouldEqual, checkin.StateIdle)
				So(s.Message(), ShouldBeEmpty)
				So(recorder.count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a position outside the geofence", t, func() {
		event := sessionEvent(callTime)
		recorder := &mockRecorder{}
		provider := checkin.ProviderFunc(func(_ context.Context) (model.Location, error) {
			return model.Location{Latitude: venue.Latitude + 0.01, Longitude: venue.Longitude}, nil
		})
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, provider, recorder, checkin.WithClock(clock))

		Convey("When begin runs", func() {
			err := s.Begin(context.Background(), "")

			Convey("Then the gate rejection lands the session in error", func() {
				So(errors.Is(err, gate.ErrOutsideGeofence), ShouldBeTrue)
				So(s.State(), ShouldEqual, checkin.StateError)
				So(s.Message(), ShouldNotBeEmpty)
				So(recorder.count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a recorder that fails to persist", t, func() {
		event := sessionEvent(callTime)
		recorder := &mockRecorder{failErr: errors.New("storage unavailable")}
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, checkin.ProviderFunc(atVenue), recorder, checkin.WithClock(clock))

		Convey("When begin runs", func() {
			err := s.Begin(context.Background(), "")

			Convey("Then the failure message is surfaced verbatim", func() {
				So(err, ShouldNotBeNil)
				So(s.State(), ShouldEqual, checkin.StateError)
				So(s.Message(), ShouldEqual, "storage unavailable")
			})

			Convey("And the attempt can be retried after the store recovers", func() {
				s.Retry()
				recorder.failErr = nil

				So(s.Begin(context.Background(), ""), ShouldBeNil)
				So(s.State(), ShouldEqual, checkin.StateCheckedIn)
				So(recorder.count(), ShouldEqual, 1)
			})
		})
	})
}

func TestSessionSingleFlight(t *testing.T) {
	Convey("Given a provider that blocks until released", t, func() {
		callTime := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
		event := sessionEvent(callTime)
		recorder := &mockRecorder{}
		clock := func() time.Time { return callTime }

		entered := make(chan struct{})
		release := make(chan struct{})
		provider := checkin.ProviderFunc(func(_ context.Context) (model.Location, error) {
			close(entered)
			<-release
			return model.Location{Latitude: venue.Latitude, Longitude: venue.Longitude}, nil
		})
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, provider, recorder, checkin.WithClock(clock))

		Convey("When a second begin races an in-flight attempt", func() {
			done := make(chan error, 1)
			go func() { done <- s.Begin(context.Background(), "") }()
			<-entered

			second := s.Begin(context.Background(), "")
			close(release)
			first := <-done

			Convey("Then only the first attempt commits", func() {
				So(second, ShouldEqual, checkin.ErrBusy)
				So(first, ShouldBeNil)
				So(s.State(), ShouldEqual, checkin.StateCheckedIn)
				So(recorder.count(), ShouldEqual, 1)
			})
		})
	})
}

func TestSessionOptions(t *testing.T) {
	Convey("Given a session with a custom gate", t, func() {
		callTime := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
		event := sessionEvent(callTime)
		recorder := &mockRecorder{}
		// A two-minute grace period reclassifies a +3m start as late.
		custom := gate.New(gate.WithGracePeriod(2 * time.Minute))
		clock := func() time.Time { return callTime.Add(3 * time.Minute) }
		s := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, checkin.ProviderFunc(atVenue), recorder,
			checkin.WithGate(custom), checkin.WithClock(clock))

		Convey("Then the custom grace period drives the reason requirement", func() {
			So(s.RequiresReason(), ShouldBeTrue)
			So(errors.Is(s.Begin(context.Background(), ""), gate.ErrMissingReason), ShouldBeTrue)
			So(s.Begin(context.Background(), "overslept"), ShouldBeNil)
			So(recorder.last().LateReason, ShouldEqual, "overslept")
		})

		Convey("And nil option values leave defaults in place", func() {
			plain := checkin.NewSession(event, model.TeamMember{ID: "mem-1"}, checkin.ProviderFunc(atVenue), recorder,
				checkin.WithGate(nil), checkin.WithClock(nil), checkin.WithLogger(nil))
			So(plain.State(), ShouldEqual, checkin.StateIdle)
		})
	})
}
