// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// CheckIn records a check-in attempt after gate evaluation.
	CheckIn(ctx context.Context, req CheckInSubmission) (types.CheckInReceipt, error)

	// Roster write and read operations.
	AddEvent(ctx context.Context, ev model.ServiceEvent) error
	Event(ctx context.Context, eventID string) (model.ServiceEvent, error)
	Events(ctx context.Context) ([]model.ServiceEvent, error)
	AddMember(ctx context.Context, m model.TeamMember) error
	Member(ctx context.Context, memberID string) (model.TeamMember, error)

	// Attendance computes stats and alerts for a member on demand.
	Attendance(ctx context.Context, memberID string) (types.AttendanceView, error)

	// Read operations expose reliability board data.
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, memberID string) (Entry, error)
}

// Entry mirrors the read shape returned by reliability board queries.
type Entry = types.BoardEntry

// timeFormat is the wire format for normalized timestamps in responses.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// CheckInSubmission mirrors the application-level check-in request passed
// to Dependencies.CheckIn after request validation.
type CheckInSubmission = types.CheckInSubmission

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	checkInsHandler   *CheckInsHandler
	eventsHandler     *EventsHandler
	membersHandler    *MembersHandler
	attendanceHandler *AttendanceHandler
	boardHandler      *BoardHandler
	rankHandler       *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBoardLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		checkInsHandler:   NewCheckInsHandler(deps),
		eventsHandler:     NewEventsHandler(deps),
		membersHandler:    NewMembersHandler(deps),
		attendanceHandler: NewAttendanceHandler(deps),
		boardHandler:      NewBoardHandler(deps, maxBoardLimit),
		rankHandler:       NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/check-ins", MetricsMiddleware(s.checkInsHandler.HandlePostCheckIn, "check-ins"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleEvents, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "events"))
	mux.HandleFunc("/members", MetricsMiddleware(s.membersHandler.HandlePostMember, "members"))
	mux.HandleFunc("/members/", MetricsMiddleware(s.memberRoutes, "members"))
	mux.HandleFunc("/board", MetricsMiddleware(s.boardHandler.HandleGetBoard, "board"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// memberRoutes dispatches /members/{id} and /members/{id}/attendance.
func (s *Server) memberRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/members/")
	if strings.HasSuffix(rest, "/attendance") {
		s.attendanceHandler.HandleGetAttendance(w, r)
		return
	}
	s.membersHandler.HandleGetMember(w, r)
}

type ackResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	DistanceM int    `json:"distance_m,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	for _, kind := range notFoundKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
