package gate

import (
	"errors"
	"fmt"
)

// Sentinel kinds for gate rejections.
var (
	// ErrWindowClosed means the current instant is outside the check-in
	// window. Not a retryable fault: the action stays locked until the
	// window opens.
	ErrWindowClosed = errors.New("check-in window closed")

	// ErrMissingReason means a late check-in was attempted without an
	// accountability reason.
	ErrMissingReason = errors.New("late check-in requires a reason")

	// ErrOutsideGeofence is the kind wrapped by GeofenceError.
	ErrOutsideGeofence = errors.New("outside event geofence")
)

// GeofenceError reports a geofence violation together with the measured
// distance, rounded to the nearest meter for user display.
type GeofenceError struct {
	DistanceMeters int
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("you are %dm from the event location", e.DistanceMeters)
}

// Unwrap lets callers match with errors.Is(err, ErrOutsideGeofence).
func (e *GeofenceError) Unwrap() error {
	return ErrOutsideGeofence
}
