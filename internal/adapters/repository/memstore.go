package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/muster/internal/domain/instant"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/pkg/metrics"
)

// MemStore is the in-memory Store implementation. Events and members are
// stored by id; the check-in index enforces the one-check-in-per-event
// invariant without scanning member histories.
type MemStore struct {
	mu       sync.RWMutex
	events   map[string]model.ServiceEvent
	members  map[string]model.TeamMember
	checked  map[string]struct{} // eventID|memberID
	checkIns int
}

// NewMemStore constructs an empty in-memory roster store.
func NewMemStore() *MemStore {
	return &MemStore{
		events:  make(map[string]model.ServiceEvent),
		members: make(map[string]model.TeamMember),
		checked: make(map[string]struct{}),
	}
}

// PutEvent implements Store.PutEvent.
func (s *MemStore) PutEvent(_ context.Context, ev model.ServiceEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if ev.ID == "" {
		return ErrInvalidEvent
	}
	call := instant.Normalize(ev.CallTime)
	if call.Equal(instant.Epoch()) {
		return ErrInvalidEvent
	}
	if ev.EndDate != nil {
		if instant.Normalize(ev.EndDate).Before(instant.Normalize(ev.Date)) {
			return ErrInvalidEvent
		}
	}

	s.mu.Lock()
	s.events[ev.ID] = ev
	total := len(s.events)
	s.mu.Unlock()

	metrics.UpdateRosterEvents(total)
	return nil
}

// Event implements Store.Event.
func (s *MemStore) Event(_ context.Context, id string) (model.ServiceEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		metrics.RecordErrorByComponent("store", "event_not_found")
		return model.ServiceEvent{}, ErrEventNotFound
	}
	return ev, nil
}

// Events implements Store.Events.
func (s *MemStore) Events(_ context.Context) ([]model.ServiceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ServiceEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	return out, nil
}

// PutMember implements Store.PutMember.
func (s *MemStore) PutMember(_ context.Context, m model.TeamMember) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if m.ID == "" {
		return ErrInvalidMember
	}

	s.mu.Lock()
	s.members[m.ID] = m
	// Keep the uniqueness index in step with any preloaded history.
	for _, c := range m.CheckIns {
		s.checked[checkInKey(c.EventID, m.ID)] = struct{}{}
	}
	total := len(s.members)
	s.mu.Unlock()

	metrics.UpdateRosterMembers(total)
	return nil
}

// Member implements Store.Member.
func (s *MemStore) Member(_ context.Context, id string) (model.TeamMember, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		metrics.RecordErrorByComponent("store", "member_not_found")
		return model.TeamMember{}, ErrMemberNotFound
	}
	return m, nil
}

// Members implements Store.Members.
func (s *MemStore) Members(_ context.Context) ([]model.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TeamMember, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out, nil
}

// AppendCheckIn implements Store.AppendCheckIn. Uniqueness for the
// (event, member) pair is enforced here, at the storage boundary, not
// only by the session-level idempotency check.
func (s *MemStore) AppendCheckIn(_ context.Context, memberID string, rec model.CheckIn) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[rec.EventID]; !ok {
		metrics.RecordErrorByComponent("store", "event_not_found")
		return ErrEventNotFound
	}
	m, ok := s.members[memberID]
	if !ok {
		metrics.RecordErrorByComponent("store", "member_not_found")
		return ErrMemberNotFound
	}

	key := checkInKey(rec.EventID, memberID)
	if _, ok := s.checked[key]; ok {
		metrics.RecordErrorByComponent("store", "duplicate_check_in")
		return ErrDuplicateCheckIn
	}

	m.CheckIns = append(m.CheckIns, rec)
	s.members[memberID] = m
	s.checked[key] = struct{}{}
	s.checkIns++
	return nil
}

// Counts implements Store.Counts.
func (s *MemStore) Counts(_ context.Context) (events, members, checkIns int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), len(s.members), s.checkIns
}

func checkInKey(eventID, memberID string) string {
	return eventID + "|" + memberID
}
