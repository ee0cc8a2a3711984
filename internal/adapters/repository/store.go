// Package repository defines the roster store, the reliability board,
// and their in-memory implementations.
package repository

import (
	"context"

	"github.com/okian/muster/internal/domain/model"
)

// Store provides read/write access to the roster: events, members, and
// the append-only check-in history. It is the persistence collaborator
// boundary; a durable implementation can replace the in-memory one
// behind this interface.
type Store interface {
	// PutEvent inserts or replaces an event. Events with an unusable
	// call time, or an end date before the start, are rejected with
	// ErrInvalidEvent.
	PutEvent(ctx context.Context, ev model.ServiceEvent) error

	// Event returns one event by id, or ErrEventNotFound.
	Event(ctx context.Context, id string) (model.ServiceEvent, error)

	// Events returns all known events.
	Events(ctx context.Context) ([]model.ServiceEvent, error)

	// PutMember inserts or replaces a member.
	PutMember(ctx context.Context, m model.TeamMember) error

	// Member returns one member by id, or ErrMemberNotFound.
	Member(ctx context.Context, id string) (model.TeamMember, error)

	// Members returns all known members.
	Members(ctx context.Context) ([]model.TeamMember, error)

	// AppendCheckIn appends a check-in record to the member's history.
	// At most one check-in per (event, member) pair is accepted; a
	// second append returns ErrDuplicateCheckIn. The referenced event
	// must exist.
	AppendCheckIn(ctx context.Context, memberID string, rec model.CheckIn) error

	// Counts returns the number of events, members, and check-ins held.
	Counts(ctx context.Context) (events, members, checkIns int)
}

// BoardEntry represents one row of the reliability board.
type BoardEntry struct {
	Rank             int
	MemberID         string
	Score            float64
	OnTimePercentage float64
	TotalAssignments int
}

// Board is the ranked view of members by reliability score.
type Board interface {
	// SetScore replaces the member's current score and metadata.
	// Returns true when the board changed (new member or new score).
	SetScore(ctx context.Context, memberID string, score, onTimePct float64, totalAssignments int) (bool, error)

	// Rank returns the member's current rank and score, or
	// ErrMemberNotFound for an unknown member.
	Rank(ctx context.Context, memberID string) (BoardEntry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]BoardEntry, error)

	// Count returns the number of members on the board.
	Count(ctx context.Context) int
}
