// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/muster/internal/domain/instant"
	"github.com/okian/muster/internal/domain/model"
)

// EventDependencies defines the interface for event roster operations.
type EventDependencies interface {
	AddEvent(ctx context.Context, ev model.ServiceEvent) error
	Event(ctx context.Context, eventID string) (model.ServiceEvent, error)
	Events(ctx context.Context) ([]model.ServiceEvent, error)
}

// EventsHandler handles event roster requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// locationPayload mirrors the OpenAPI location schema.
type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// assignmentPayload mirrors the OpenAPI assignment schema.
type assignmentPayload struct {
	Role      string `json:"role"`
	MemberID  string `json:"member_id"`
	TraineeID string `json:"trainee_id,omitempty"`
}

// eventRequest mirrors the OpenAPI schema for POST /events. Date, end date
// and call time are accepted in any of the supported timestamp shapes and
// normalized downstream.
type eventRequest struct {
	ID          string              `json:"id"`
	Date        any                 `json:"date"`
	EndDate     any                 `json:"end_date,omitempty"`
	CallTime    any                 `json:"call_time"`
	Location    *locationPayload    `json:"location,omitempty"`
	Assignments []assignmentPayload `json:"assignments,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return errors.New("missing id")
	case e.Date == nil:
		return errors.New("missing date")
	case e.CallTime == nil:
		return errors.New("missing call_time")
	}
	if instant.Normalize(e.CallTime).Equal(instant.Epoch()) {
		return errors.New("unrecognized call_time")
	}
	return nil
}

func (e eventRequest) toModel() model.ServiceEvent {
	ev := model.ServiceEvent{
		ID:       e.ID,
		Date:     e.Date,
		EndDate:  e.EndDate,
		CallTime: e.CallTime,
	}
	if e.Location != nil {
		ev.Location = &model.Location{
			Latitude:  e.Location.Latitude,
			Longitude: e.Location.Longitude,
			Address:   e.Location.Address,
		}
	}
	for _, a := range e.Assignments {
		ev.Assignments = append(ev.Assignments, model.Assignment{
			Role:      a.Role,
			MemberID:  a.MemberID,
			TraineeID: a.TraineeID,
		})
	}
	return ev
}

// eventView is the read shape returned by GET /events.
type eventView struct {
	ID          string              `json:"id"`
	Date        string              `json:"date"`
	EndDate     string              `json:"end_date,omitempty"`
	CallTime    string              `json:"call_time"`
	Location    *locationPayload    `json:"location,omitempty"`
	Assignments []assignmentPayload `json:"assignments,omitempty"`
}

func toEventView(ev model.ServiceEvent) eventView {
	v := eventView{
		ID:       ev.ID,
		Date:     instant.Normalize(ev.Date).Format(timeFormat),
		CallTime: instant.Normalize(ev.CallTime).Format(timeFormat),
	}
	if ev.EndDate != nil {
		v.EndDate = instant.Normalize(ev.EndDate).Format(timeFormat)
	}
	if ev.Location != nil {
		v.Location = &locationPayload{
			Latitude:  ev.Location.Latitude,
			Longitude: ev.Location.Longitude,
			Address:   ev.Location.Address,
		}
	}
	for _, a := range ev.Assignments {
		v.Assignments = append(v.Assignments, assignmentPayload{
			Role:      a.Role,
			MemberID:  a.MemberID,
			TraineeID: a.TraineeID,
		})
	}
	return v
}

// HandleEvents handles POST /events and GET /events requests.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePostEvent(w, r)
	case http.MethodGet:
		h.handleGetEvents(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.AddEvent(r.Context(), req.toModel()); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "created", ID: req.ID})
}

// HandleGetEvent handles GET /events/{id} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/events/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	ev, err := h.deps.Event(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEventView(ev))
}

func (h *EventsHandler) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_events"
	events, err := h.deps.Events(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toEventView(ev))
	}
	writeJSON(w, http.StatusOK, views)
}
