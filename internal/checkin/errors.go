package checkin

import "errors"

// Sentinel kinds for location acquisition failures. Providers return one
// of these (possibly wrapped) so the session can surface a distinguishable
// message; all of them are recoverable by retrying from idle.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
	ErrLocationUnsupported = errors.New("location not supported on this device")
)

// ErrBusy is returned when Begin is invoked while an attempt is already
// in flight or the session is terminal.
var ErrBusy = errors.New("check-in already in progress")
