// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/muster/internal/adapters/repository"
	"github.com/okian/muster/internal/domain/gate"
	"github.com/okian/muster/internal/domain/types"
)

// CheckInDependencies defines the interface for check-in processing.
type CheckInDependencies interface {
	CheckIn(ctx context.Context, req CheckInSubmission) (types.CheckInReceipt, error)
}

// CheckInsHandler handles check-in requests.
type CheckInsHandler struct {
	deps CheckInDependencies
}

// NewCheckInsHandler creates a new check-ins handler.
func NewCheckInsHandler(deps CheckInDependencies) *CheckInsHandler {
	return &CheckInsHandler{deps: deps}
}

// checkInRequest mirrors the OpenAPI schema for POST /check-ins.
type checkInRequest struct {
	EventID    string  `json:"event_id"`
	MemberID   string  `json:"member_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	LateReason string  `json:"late_reason,omitempty"`
}

func (c checkInRequest) validate() error {
	switch {
	case strings.TrimSpace(c.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(c.MemberID) == "":
		return errors.New("missing member_id")
	case c.Latitude < -90 || c.Latitude > 90:
		return errors.New("latitude out of range")
	case c.Longitude < -180 || c.Longitude > 180:
		return errors.New("longitude out of range")
	}
	return nil
}

// HandlePostCheckIn handles POST /check-ins requests.
func (h *CheckInsHandler) HandlePostCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_check_in"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.CheckIn(r.Context(), CheckInSubmission{
		EventID:    req.EventID,
		MemberID:   req.MemberID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		LateReason: req.LateReason,
	})
	if err != nil {
		writeCheckInError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// writeCheckInError maps gate and storage violations to HTTP responses.
func writeCheckInError(w http.ResponseWriter, err error) {
	var geofenceErr *gate.GeofenceError
	switch {
	case errors.As(err, &geofenceErr):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Code:      "outside_geofence",
			Message:   geofenceErr.Error(),
			DistanceM: geofenceErr.DistanceMeters,
		})
	case errors.Is(err, gate.ErrWindowClosed):
		writeError(w, http.StatusConflict, "window_closed", err)
	case errors.Is(err, gate.ErrMissingReason):
		writeError(w, http.StatusBadRequest, "missing_reason", err)
	case errors.Is(err, repository.ErrDuplicateCheckIn):
		writeError(w, http.StatusConflict, "duplicate", err)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
