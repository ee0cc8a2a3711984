package drill

import "time"

// Config holds configuration for the attendance drill
type Config struct {
	BaseURL    string        // Base URL of the service
	NumMembers int           // Number of members to generate
	NumEvents  int           // Number of past events per member history
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for the generated roster
	LogFile    string        // Log file for drill output
	Verbose    bool          // Enable verbose logging
}

// Location represents an event's geofenced position
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Assignment binds a member to a role on an event
type Assignment struct {
	Role     string `json:"role"`
	MemberID string `json:"member_id"`
}

// Event represents a service event to be submitted
type Event struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	EndDate     string       `json:"end_date,omitempty"`
	CallTime    string       `json:"call_time"`
	Location    *Location    `json:"location,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
}

// CheckInRecord represents an imported historical check-in
type CheckInRecord struct {
	EventID    string  `json:"event_id"`
	Time       string  `json:"time"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	LateReason string  `json:"late_reason,omitempty"`
}

// Member represents a team member to be submitted
type Member struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	CheckIns []CheckInRecord `json:"check_ins,omitempty"`
}

// Attempt represents a live check-in attempt with its expected outcome
type Attempt struct {
	EventID      string  `json:"event_id"`
	MemberID     string  `json:"member_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LateReason   string  `json:"late_reason,omitempty"`
	ExpectStatus int     `json:"-"`
	ExpectLate   bool    `json:"-"`
}

// Receipt represents the response from an accepted check-in
type Receipt struct {
	CheckInID string `json:"check_in_id"`
	Late      bool   `json:"late"`
	DistanceM int    `json:"distance_m"`
}

// AckResponse represents the response from roster submission
type AckResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// ErrorResponse represents a rejection from the service
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	DistanceM int    `json:"distance_m,omitempty"`
}

// StatsView represents a member's computed attendance statistics
type StatsView struct {
	TotalAssignments int     `json:"total_assignments"`
	OnTime           int     `json:"on_time"`
	Early            int     `json:"early"`
	Late             int     `json:"late"`
	NoShow           int     `json:"no_show"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	ReliabilityScore float64 `json:"reliability_score"`
}

// AlertView represents a performance alert attached to a member
type AlertView struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AttendanceView represents the stats-plus-alerts response for a member
type AttendanceView struct {
	MemberID string      `json:"member_id"`
	Stats    StatsView   `json:"stats"`
	Alerts   []AlertView `json:"alerts"`
}

// Entry represents a reliability board entry
type Entry struct {
	Rank             int     `json:"rank"`
	MemberID         string  `json:"member_id"`
	ReliabilityScore float64 `json:"reliability_score"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	TotalAssignments int     `json:"total_assignments"`
}

// Expected holds the locally derived attendance outcome for one member
type Expected struct {
	OnTime           int
	Early            int
	Late             int
	NoShow           int
	OnTimePercentage float64
	ReliabilityScore float64
}

// MemberPlan pairs a generated member with the outcome the service
// should derive for them
type MemberPlan struct {
	Member   Member
	Expected Expected
}

// Roster is the full generated drill input
type Roster struct {
	Events     []Event      // past events that drive attendance stats
	LiveEvents []Event      // in-window events used for live check-in attempts
	Members    []MemberPlan
	Attempts   [][]Attempt // per-member ordered attempt groups
}

// Stats holds drill statistics
type Stats struct {
	MembersGenerated     int
	EventsGenerated      int
	RosterSubmitted      int
	RosterFailed         int
	AttemptsSubmitted    int
	AttemptsAsExpected   int
	AttemptsUnexpected   int
	AttendanceRetrieved  int
	AttendanceMismatches int
	BoardEntries         int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
