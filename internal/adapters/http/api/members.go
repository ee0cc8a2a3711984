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

// MemberDependencies defines the interface for member roster operations.
type MemberDependencies interface {
	AddMember(ctx context.Context, m model.TeamMember) error
	Member(ctx context.Context, memberID string) (model.TeamMember, error)
}

// MembersHandler handles member roster requests.
type MembersHandler struct {
	deps MemberDependencies
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(deps MemberDependencies) *MembersHandler {
	return &MembersHandler{deps: deps}
}

// checkInPayload mirrors the OpenAPI check-in schema for preloaded history.
type checkInPayload struct {
	ID         string  `json:"id,omitempty"`
	EventID    string  `json:"event_id"`
	Time       any     `json:"time"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Unverified bool    `json:"unverified,omitempty"`
	LateReason string  `json:"late_reason,omitempty"`
}

// memberRequest mirrors the OpenAPI schema for POST /members. CheckIns may
// carry an imported history from a previous system.
type memberRequest struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	CheckIns []checkInPayload `json:"check_ins,omitempty"`
}

func (m memberRequest) validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(m.Name) == "":
		return errors.New("missing name")
	}
	for _, c := range m.CheckIns {
		if strings.TrimSpace(c.EventID) == "" {
			return errors.New("check-in missing event_id")
		}
	}
	return nil
}

func (m memberRequest) toModel() model.TeamMember {
	member := model.TeamMember{ID: m.ID, Name: m.Name}
	for _, c := range m.CheckIns {
		member.CheckIns = append(member.CheckIns, model.CheckIn{
			ID:         c.ID,
			EventID:    c.EventID,
			Time:       c.Time,
			Latitude:   c.Latitude,
			Longitude:  c.Longitude,
			Unverified: c.Unverified,
			LateReason: c.LateReason,
		})
	}
	return member
}

// memberView is the read shape returned by GET /members/{id}.
type memberView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	CheckIns []checkInPayload `json:"check_ins"`
}

func toMemberView(m model.TeamMember) memberView {
	v := memberView{ID: m.ID, Name: m.Name, CheckIns: []checkInPayload{}}
	for _, c := range m.CheckIns {
		v.CheckIns = append(v.CheckIns, checkInPayload{
			ID:         c.ID,
			EventID:    c.EventID,
			Time:       instant.Normalize(c.Time).Format(timeFormat),
			Latitude:   c.Latitude,
			Longitude:  c.Longitude,
			Unverified: c.Unverified,
			LateReason: c.LateReason,
		})
	}
	return v
}

// HandlePostMember handles POST /members requests.
func (h *MembersHandler) HandlePostMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_member"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.AddMember(r.Context(), req.toModel()); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "created", ID: req.ID})
}

// HandleGetMember handles GET /members/{id} requests.
func (h *MembersHandler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_member"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/members/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	member, err := h.deps.Member(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toMemberView(member))
}
