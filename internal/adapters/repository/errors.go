package repository

import "errors"

// Sentinel kinds for roster and board errors.
var (
	ErrEventNotFound    = errors.New("event not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrDuplicateCheckIn = errors.New("member already checked in for this event")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidMember    = errors.New("invalid member")
	ErrInvalidLimit     = errors.New("invalid board limit")
)
