package drill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/muster/internal/checkin"
	"github.com/okian/muster/internal/domain/gate"
	"github.com/okian/muster/internal/domain/model"
)

// submitAttempts fires the live check-in attempts concurrently. Each
// member's attempts are handled by a single worker in order, so duplicate
// scenarios see their first attempt land before the second is sent.
// Every attempt runs through a checkin.Session: the session's gate covers
// the window, lateness and geofence rules locally, and its recorder posts
// the gated record to the service, which still owns dedupe.
func submitAttempts(ctx context.Context, config *Config, roster *Roster, stats *Stats) error {
	totalAttempts := 0
	for _, group := range roster.Attempts {
		totalAttempts += len(group)
	}
	log.Printf("📍 Firing %d check-in attempts for %d members with %d workers...",
		totalAttempts, len(roster.Attempts), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/check-ins"
	liveEvents := liveEventsByID(roster.LiveEvents)

	// Counters for statistics
	var (
		submitted  int64
		asExpected int64
		unexpected int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool over member indices
	memberChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range memberChan {
				select {
				case <-ctx.Done():
					return
				default:
					for _, attempt := range roster.Attempts[index] {
						status, late, err := submitSingleAttempt(ctx, client, url, liveEvents, attempt)
						atomic.AddInt64(&submitted, 1)

						switch {
						case err != nil:
							atomic.AddInt64(&unexpected, 1)
							if config.Verbose {
								log.Printf("⚠️  Attempt for %s on %s failed: %v",
									attempt.MemberID, attempt.EventID, err)
							}
						case status != attempt.ExpectStatus:
							atomic.AddInt64(&unexpected, 1)
							log.Printf("⚠️  Attempt for %s on %s: got HTTP %d, want %d",
								attempt.MemberID, attempt.EventID, status, attempt.ExpectStatus)
						case status == StatusCreated && late != attempt.ExpectLate:
							atomic.AddInt64(&unexpected, 1)
							log.Printf("⚠️  Attempt for %s on %s: late flag %v, want %v",
								attempt.MemberID, attempt.EventID, late, attempt.ExpectLate)
						default:
							atomic.AddInt64(&asExpected, 1)
						}

						// Progress reporting
						if time.Since(lastReport) >= reportInterval {
							lastReport = time.Now()
							total := atomic.LoadInt64(&submitted)
							ok := atomic.LoadInt64(&asExpected)
							bad := atomic.LoadInt64(&unexpected)

							if config.Verbose {
								log.Printf("📊 Attempt progress: %d/%d submitted (as expected: %d, unexpected: %d)",
									total, totalAttempts, ok, bad)
							} else {
								fmt.Printf("\r📍 Attempts: %d/%d (as expected: %d, unexpected: %d)",
									total, totalAttempts, ok, bad)
							}
						}
					}
				}
			}
		}()
	}

	// Send member indices to workers
	go func() {
		defer close(memberChan)
		for i := range roster.Attempts {
			select {
			case <-ctx.Done():
				return
			case memberChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.AttemptsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.AttemptsAsExpected = int(atomic.LoadInt64(&asExpected))
	stats.AttemptsUnexpected = int(atomic.LoadInt64(&unexpected))

	log.Printf(`✅ Check-in attempts completed:
   As expected: %d
   Unexpected: %d
`, stats.AttemptsAsExpected, stats.AttemptsUnexpected)

	if stats.AttemptsUnexpected > 0 {
		return fmt.Errorf("%d attempts produced unexpected responses", stats.AttemptsUnexpected)
	}
	return nil
}

// liveEventsByID converts the wire events into domain events keyed by id.
// Call times stay raw RFC3339 strings; the session's gate normalizes them.
func liveEventsByID(events []Event) map[string]model.ServiceEvent {
	byID := make(map[string]model.ServiceEvent, len(events))
	for _, ev := range events {
		domainEv := model.ServiceEvent{
			ID:       ev.ID,
			Date:     ev.Date,
			EndDate:  ev.EndDate,
			CallTime: ev.CallTime,
		}
		if ev.Location != nil {
			domainEv.Location = &model.Location{
				Latitude:  ev.Location.Latitude,
				Longitude: ev.Location.Longitude,
				Address:   ev.Location.Address,
			}
		}
		byID[ev.ID] = domainEv
	}
	return byID
}

// rejectionError carries the HTTP status the service answered a gated
// record with, so the attempt loop can compare it against expectations.
type rejectionError struct {
	status  int
	message string
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.message)
}

// postingRecorder posts the session's gated check-in record to the
// service and keeps the receipt of an accepted one.
type postingRecorder struct {
	client  *HTTPClient
	url     string
	receipt Receipt
}

// AppendCheckIn implements checkin.Recorder over the HTTP API.
func (r *postingRecorder) AppendCheckIn(_ context.Context, memberID string, rec model.CheckIn) error {
	resp, err := r.client.Post(r.url, Attempt{
		EventID:    rec.EventID,
		MemberID:   memberID,
		Latitude:   rec.Latitude,
		Longitude:  rec.Longitude,
		LateReason: rec.LateReason,
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusCreated {
		var rejection ErrorResponse
		if err := unmarshalJSON(body, &rejection); err != nil {
			return &rejectionError{status: resp.StatusCode, message: string(body)}
		}
		return &rejectionError{status: resp.StatusCode, message: rejection.Message}
	}

	if err := unmarshalJSON(body, &r.receipt); err != nil {
		return fmt.Errorf("failed to parse receipt: %w", err)
	}
	return nil
}

// submitSingleAttempt runs one attempt through a fresh check-in session
// and reports the effective status code plus the late flag when the
// service issued a receipt. Attempts the session's gate rejects locally
// map to the status the service would have answered with; anything the
// gate lets through reaches the service, whose rejection status is
// carried back by the recorder.
func submitSingleAttempt(ctx context.Context, client *HTTPClient, url string, events map[string]model.ServiceEvent, attempt Attempt) (int, bool, error) {
	ev, ok := events[attempt.EventID]
	if !ok {
		return 0, false, fmt.Errorf("attempt references unknown event %s", attempt.EventID)
	}

	provider := checkin.ProviderFunc(func(context.Context) (model.Location, error) {
		return model.Location{Latitude: attempt.Latitude, Longitude: attempt.Longitude}, nil
	})
	recorder := &postingRecorder{client: client, url: url}
	session := checkin.NewSession(ev, model.TeamMember{ID: attempt.MemberID}, provider, recorder)

	err := session.Begin(ctx, attempt.LateReason)
	switch {
	case err == nil:
		return StatusCreated, recorder.receipt.Late, nil
	case errors.Is(err, gate.ErrWindowClosed):
		return StatusConflict, false, nil
	case errors.Is(err, gate.ErrMissingReason):
		return StatusBadRequest, false, nil
	case errors.Is(err, gate.ErrOutsideGeofence):
		return StatusForbidden, false, nil
	}

	var rejection *rejectionError
	if errors.As(err, &rejection) {
		return rejection.status, false, nil
	}
	return 0, false, err
}
