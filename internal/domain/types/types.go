// Package types contains common view types used across the application
package types

// BoardEntry represents a reliability board entry
type BoardEntry struct {
	Rank             int     `json:"rank"`
	MemberID         string  `json:"member_id"`
	ReliabilityScore float64 `json:"reliability_score"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	TotalAssignments int     `json:"total_assignments"`
}

// StatsView mirrors model.AttendanceStats for API responses.
type StatsView struct {
	TotalAssignments int     `json:"total_assignments"`
	OnTime           int     `json:"on_time"`
	Early            int     `json:"early"`
	Late             int     `json:"late"`
	NoShow           int     `json:"no_show"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	ReliabilityScore float64 `json:"reliability_score"`
}

// AlertView mirrors model.PerformanceAlert for API responses.
type AlertView struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AttendanceView is the combined stats-plus-alerts view model returned
// for a member.
type AttendanceView struct {
	MemberID string      `json:"member_id"`
	Stats    StatsView   `json:"stats"`
	Alerts   []AlertView `json:"alerts"`
}

// CheckInSubmission is a validated check-in attempt flowing from the API
// layer into the application service.
type CheckInSubmission struct {
	EventID    string
	MemberID   string
	Latitude   float64
	Longitude  float64
	LateReason string
}

// CheckInReceipt confirms an accepted check-in.
type CheckInReceipt struct {
	CheckInID      string `json:"check_in_id"`
	Late           bool   `json:"late"`
	DistanceMeters int    `json:"distance_m"`
}
