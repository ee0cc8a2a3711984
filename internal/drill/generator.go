package drill

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/muster/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 6
	outcomeDivisor     = 10
)

// Anchor coordinates and spatial spread for generated venues.
const (
	anchorLatitude   = 40.7128
	anchorLongitude  = -74.0060
	venueJitter      = 0.02   // ~2km spread between venues
	positionJitter   = 0.0004 // ~45m, inside the geofence
	geofenceBreakout = 0.01   // ~1.1km, well outside the geofence
)

// Constants for check-in offset ranges relative to call time.
const (
	earlyOffsetMin   = 6 * time.Minute
	earlyOffsetRange = 14 * time.Minute
	onTimeOffsetSpan = 10 * time.Minute // centered on call time
	lateOffsetMin    = 6 * time.Minute
	lateOffsetRange  = 19 * time.Minute
)

// Constants for member profile cases.
const (
	casePunctual  = 0
	caseEarlyBird = 1
	caseTardy     = 2
	caseChronic   = 3
	caseGhost     = 4
	caseFlaky     = 5
)

// Per-event outcome classifications.
const (
	outcomeEarly = iota
	outcomeOnTime
	outcomeLate
	outcomeNoShow
)

// Live attempt scenario cases, assigned round-robin across members.
const (
	scenarioOnTime = iota
	scenarioDuplicate
	scenarioLateWithReason
	scenarioLateNoReason
	scenarioOutsideGeofence
	scenarioClosedWindow
	scenarioCount
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, max) using crypto/rand.
func getRandomInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// generateRoster creates the full drill input: past events with locations,
// members with known histories against them, live in-window events, and
// the ordered check-in attempts to fire at each.
func generateRoster(ctx context.Context, config *Config, stats *Stats) (*Roster, error) {
	logger.Get().Info(ctx, "generating drill roster",
		logger.Int("members", config.NumMembers),
		logger.Int("events", config.NumEvents))

	now := time.Now().UTC()

	// Pre-allocate member IDs to ensure uniqueness
	memberIDs := make([]string, config.NumMembers)
	for i := 0; i < config.NumMembers; i++ {
		memberIDs[i] = uuid.New().String()
	}

	pastEvents := generatePastEvents(config.NumEvents, memberIDs, now)
	liveEvents := generateLiveEvents(memberIDs, now)

	// Generate member histories concurrently
	type memberResult struct {
		index int
		plan  MemberPlan
		err   error
	}

	resultChan := make(chan memberResult, config.NumMembers)

	workerCount := minInt(config.Workers, config.NumMembers)
	membersPerWorker := config.NumMembers / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * membersPerWorker
		end := start + membersPerWorker
		if worker == workerCount-1 {
			end = config.NumMembers // Last worker gets remaining members
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- memberResult{index: i, err: ctx.Err()}
					return
				default:
					plan := generateMemberPlan(i, memberIDs[i], pastEvents)
					resultChan <- memberResult{index: i, plan: plan, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	members := make([]MemberPlan, config.NumMembers)
	for i := 0; i < config.NumMembers; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during roster generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate member %d: %w", result.index, result.err)
			}
			members[result.index] = result.plan
		}
	}

	attempts := make([][]Attempt, config.NumMembers)
	for i, plan := range members {
		attempts[i] = generateAttempts(i, plan.Member.ID, liveEvents)
	}

	stats.MembersGenerated = len(members)
	stats.EventsGenerated = len(pastEvents) + len(liveEvents)
	logger.Get().Info(ctx, "generated roster successfully",
		logger.Int("members", len(members)),
		logger.Int("pastEvents", len(pastEvents)),
		logger.Int("liveEvents", len(liveEvents)))

	return &Roster{
		Events:     pastEvents,
		LiveEvents: liveEvents,
		Members:    members,
		Attempts:   attempts,
	}, nil
}

// generatePastEvents creates completed events, one per day going back,
// each with a geofenced venue and every member assigned.
func generatePastEvents(count int, memberIDs []string, now time.Time) []Event {
	events := make([]Event, count)
	for i := 0; i < count; i++ {
		date := now.Add(-time.Duration(i+1) * 24 * time.Hour)
		events[i] = Event{
			ID:          "service_" + strconv.Itoa(i) + "_" + strconv.FormatInt(now.Unix(), 10),
			Date:        date.Format(time.RFC3339),
			EndDate:     date.Add(2 * time.Hour).Format(time.RFC3339),
			CallTime:    date.Format(time.RFC3339),
			Location:    generateVenue(i),
			Assignments: assignAll(memberIDs),
		}
	}
	return events
}

// generateLiveEvents creates three future-dated events whose check-in
// windows are positioned around now: one open and punctual, one open but
// already past the grace period, and one whose window has closed. Future
// dates keep them out of the attendance stats so live attempts never
// disturb the expected scores.
func generateLiveEvents(memberIDs []string, now time.Time) []Event {
	calls := []time.Time{
		now.Add(-1 * time.Minute),  // scenarioOnTime, scenarioDuplicate, scenarioOutsideGeofence
		now.Add(-10 * time.Minute), // scenarioLateWithReason, scenarioLateNoReason
		now.Add(-2 * time.Hour),    // scenarioClosedWindow
	}

	events := make([]Event, len(calls))
	for i, call := range calls {
		events[i] = Event{
			ID:          "drill_live_" + strconv.Itoa(i) + "_" + strconv.FormatInt(now.Unix(), 10),
			Date:        now.Add(1 * time.Hour).Format(time.RFC3339),
			EndDate:     now.Add(2 * time.Hour).Format(time.RFC3339),
			CallTime:    call.Format(time.RFC3339),
			Location:    generateVenue(i),
			Assignments: assignAll(memberIDs),
		}
	}
	return events
}

// generateVenue returns a deterministic venue near the anchor point.
func generateVenue(index int) *Location {
	offset := float64(index%10) * venueJitter
	return &Location{
		Latitude:  anchorLatitude + offset,
		Longitude: anchorLongitude + offset,
		Address:   "Venue " + strconv.Itoa(index%10),
	}
}

// assignAll builds an assignment for every member.
func assignAll(memberIDs []string) []Assignment {
	assignments := make([]Assignment, len(memberIDs))
	for i, id := range memberIDs {
		assignments[i] = Assignment{Role: "crew", MemberID: id}
	}
	return assignments
}

// generateMemberPlan creates a member with a profile-driven history over
// the past events, recording the classification counts as it goes so the
// expected stats match the materialized check-ins exactly.
func generateMemberPlan(index int, memberID string, pastEvents []Event) MemberPlan {
	profile := getRandomInt(profileDivisor)

	member := Member{
		ID:   memberID,
		Name: "Member " + strconv.Itoa(index),
	}
	var expected Expected

	for _, ev := range pastEvents {
		outcome := generateOutcome(profile)
		if outcome == outcomeNoShow {
			expected.NoShow++
			continue
		}

		call, _ := time.Parse(time.RFC3339, ev.CallTime)
		var offset time.Duration
		switch outcome {
		case outcomeEarly:
			offset = -(earlyOffsetMin + time.Duration(getRandomFloat()*float64(earlyOffsetRange)))
			expected.Early++
		case outcomeLate:
			offset = lateOffsetMin + time.Duration(getRandomFloat()*float64(lateOffsetRange))
			expected.Late++
		default:
			offset = time.Duration((getRandomFloat() - 0.5) * float64(onTimeOffsetSpan))
			expected.OnTime++
		}

		record := CheckInRecord{
			EventID:   ev.ID,
			Time:      call.Add(offset).Format(time.RFC3339),
			Latitude:  ev.Location.Latitude + (getRandomFloat()-0.5)*positionJitter,
			Longitude: ev.Location.Longitude + (getRandomFloat()-0.5)*positionJitter,
		}
		if outcome == outcomeLate {
			record.LateReason = "traffic"
		}
		member.CheckIns = append(member.CheckIns, record)
	}

	finalizeExpected(&expected, len(pastEvents))
	return MemberPlan{Member: member, Expected: expected}
}

// generateOutcome picks a per-event classification weighted by profile.
func generateOutcome(profile int64) int {
	roll := getRandomInt(outcomeDivisor)
	switch profile {
	case casePunctual:
		// Reliable regulars: mostly on time, occasionally early
		if roll < 3 {
			return outcomeEarly
		}
		return outcomeOnTime
	case caseEarlyBird:
		// Always ahead of call time
		if roll < 8 {
			return outcomeEarly
		}
		return outcomeOnTime
	case caseTardy:
		// Late often enough to trip the lateness warning
		switch {
		case roll < 5:
			return outcomeOnTime
		case roll < 9:
			return outcomeLate
		default:
			return outcomeNoShow
		}
	case caseChronic:
		// Late most of the time, should reach critical
		switch {
		case roll < 6:
			return outcomeLate
		case roll < 8:
			return outcomeOnTime
		default:
			return outcomeNoShow
		}
	case caseGhost:
		// Misses events outright
		switch {
		case roll < 6:
			return outcomeNoShow
		case roll < 8:
			return outcomeOnTime
		default:
			return outcomeLate
		}
	default:
		// Flaky: anything goes
		switch {
		case roll < 3:
			return outcomeEarly
		case roll < 6:
			return outcomeOnTime
		case roll < 8:
			return outcomeLate
		default:
			return outcomeNoShow
		}
	}
}

// finalizeExpected derives the percentage fields from the recorded counts
// using the same formulas the service applies.
func finalizeExpected(expected *Expected, total int) {
	attended := expected.OnTime + expected.Early + expected.Late
	if attended == 0 {
		expected.OnTimePercentage = PercentageMultiplier
	} else {
		expected.OnTimePercentage = float64(expected.OnTime+expected.Early) / float64(attended) * PercentageMultiplier
	}

	if total == 0 {
		expected.ReliabilityScore = PercentageMultiplier
	} else {
		credit := float64(expected.OnTime+expected.Early) + float64(expected.Late)*lateWeight
		expected.ReliabilityScore = credit / float64(total) * PercentageMultiplier
	}
}

// generateAttempts builds the ordered live check-in attempts for a member.
// Scenarios rotate round-robin so every rejection path gets exercised.
func generateAttempts(index int, memberID string, liveEvents []Event) []Attempt {
	onTimeEvent := liveEvents[0]
	lateEvent := liveEvents[1]
	closedEvent := liveEvents[2]

	at := func(ev Event) (float64, float64) {
		return ev.Location.Latitude + (getRandomFloat()-0.5)*positionJitter,
			ev.Location.Longitude + (getRandomFloat()-0.5)*positionJitter
	}

	switch index % scenarioCount {
	case scenarioOnTime:
		lat, lon := at(onTimeEvent)
		return []Attempt{{
			EventID: onTimeEvent.ID, MemberID: memberID,
			Latitude: lat, Longitude: lon,
			ExpectStatus: StatusCreated,
		}}
	case scenarioDuplicate:
		lat, lon := at(onTimeEvent)
		first := Attempt{
			EventID: onTimeEvent.ID, MemberID: memberID,
			Latitude: lat, Longitude: lon,
			ExpectStatus: StatusCreated,
		}
		second := first
		second.ExpectStatus = StatusConflict
		return []Attempt{first, second}
	case scenarioLateWithReason:
		lat, lon := at(lateEvent)
		return []Attempt{{
			EventID: lateEvent.ID, MemberID: memberID,
			Latitude: lat, Longitude: lon,
			LateReason:   "flat tire",
			ExpectStatus: StatusCreated,
			ExpectLate:   true,
		}}
	case scenarioLateNoReason:
		lat, lon := at(lateEvent)
		return []Attempt{{
			EventID: lateEvent.ID, MemberID: memberID,
			Latitude: lat, Longitude: lon,
			ExpectStatus: StatusBadRequest,
		}}
	case scenarioOutsideGeofence:
		return []Attempt{{
			EventID: onTimeEvent.ID, MemberID: memberID,
			Latitude:     onTimeEvent.Location.Latitude + geofenceBreakout,
			Longitude:    onTimeEvent.Location.Longitude,
			ExpectStatus: StatusForbidden,
		}}
	default: // scenarioClosedWindow
		lat, lon := at(closedEvent)
		return []Attempt{{
			EventID: closedEvent.ID, MemberID: memberID,
			Latitude: lat, Longitude: lon,
			ExpectStatus: StatusConflict,
		}}
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
