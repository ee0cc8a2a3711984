// Package model contains domain models passed between layers.
package model

import "time"

// Alert classification constants.
const (
	AlertTypeLateness = "lateness"
	AlertTypeNoShows  = "no-shows"

	AlertLevelWarning  = "warning"
	AlertLevelCritical = "critical"
)

// Location is a geographic point, optionally with a street address.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Assignment binds a member (and optionally a trainee) to a role on an event.
type Assignment struct {
	Role      string
	MemberID  string
	TraineeID string
}

// ServiceEvent represents a scheduled service with a call time and an
// optional geofenced location. Date, EndDate and CallTime are raw values
// as delivered by the scheduling collaborator; they may be time.Time,
// RFC3339 strings, or storage timestamps, and must be routed through
// instant.Normalize before comparison.
type ServiceEvent struct {
	ID          string
	Date        any
	EndDate     any
	CallTime    any
	Location    *Location
	Assignments []Assignment
}

// EndsAt reports the raw instant the event is considered over: EndDate
// when present, the service start otherwise.
func (e ServiceEvent) EndsAt() any {
	if e.EndDate != nil {
		return e.EndDate
	}
	return e.Date
}

// Assigned reports whether the member holds an assignment on the event,
// either as assignee or as trainee.
func (e ServiceEvent) Assigned(memberID string) bool {
	for _, a := range e.Assignments {
		if a.MemberID == memberID || a.TraineeID == memberID {
			return true
		}
	}
	return false
}

// CheckIn is a single recorded arrival for an event.
type CheckIn struct {
	ID         string
	EventID    string
	Time       any // normalized via instant.Normalize before comparison
	Latitude   float64
	Longitude  float64
	Unverified bool
	LateReason string
}

// TeamMember holds a member's identity and check-in history. Insertion
// order of CheckIns is irrelevant; each event id should appear at most
// once per member (enforced at the store boundary).
type TeamMember struct {
	ID       string
	Name     string
	CheckIns []CheckIn
}

// CheckInFor returns the member's check-in for the given event, if any.
func (m TeamMember) CheckInFor(eventID string) (CheckIn, bool) {
	for _, c := range m.CheckIns {
		if c.EventID == eventID {
			return c, true
		}
	}
	return CheckIn{}, false
}

// AttendanceStats is a derived, ephemeral aggregation of a member's
// check-in history against past assigned events. It is recomputed on
// demand and never persisted.
type AttendanceStats struct {
	TotalAssignments int
	OnTime           int
	Early            int
	Late             int
	NoShow           int
	OnTimePercentage float64
	ReliabilityScore float64
}

// Attended returns the number of past assigned events with a check-in.
func (s AttendanceStats) Attended() int {
	return s.OnTime + s.Early + s.Late
}

// PerformanceAlert is an advisory produced from AttendanceStats.
type PerformanceAlert struct {
	Type    string
	Level   string
	Message string
}

// Recompute is a request to refresh a member's derived attendance state.
// It flows through the recompute queue to the worker pool.
type Recompute struct {
	MemberID   string
	Trigger    string // "check-in", "roster", "manual"
	EnqueuedAt time.Time
}
