// Package dedupe tracks check-in attempt keys to keep persistence
// at-most-once per (event, member) pair across sessions.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Key builds the attempt key for an (event, member) pair.
func Key(eventID, memberID string) string {
	return eventID + "|" + memberID
}

// Ledger records seen attempt keys. An attempt is recorded before the
// check-in write and unrecorded when the write fails, so a retry is
// possible without ever allowing two concurrent writes for one pair.
type Ledger interface {
	// SeenAndRecord atomically checks whether key was seen and records
	// it if not. Returns true if key was already present.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes key, allowing the attempt to be retried. Only
	// used when a recorded attempt failed downstream.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryLedger is a bounded seen-set. When full, the oldest recorded
// key is evicted; the durable uniqueness guarantee stays with the store,
// the ledger only shields it from concurrent and rapid repeats.
type inMemoryLedger struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, oldest first
	start   int      // index of the oldest live key in order
	maxSize int      // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryLedger creates an in-memory ledger with configuration options.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		maxSize: 50_000,
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *inMemoryLedger) SeenAndRecord(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[key]; ok {
		return true
	}

	if l.maxSize > 0 {
		for len(l.seen) >= l.maxSize {
			l.evictOldest()
		}
		l.order = append(l.order, key)
		l.compact()
	}
	l.seen[key] = struct{}{}
	l.size.Add(1)
	return false
}

func (l *inMemoryLedger) Unrecord(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[key]; !ok {
		return
	}
	delete(l.seen, key)
	l.size.Add(-1)
	// The stale order slot is skipped lazily during eviction.
}

func (l *inMemoryLedger) Size() int64 {
	return l.size.Load()
}

// evictOldest drops the oldest still-live key. Must hold l.mu.
func (l *inMemoryLedger) evictOldest() {
	for l.start < len(l.order) {
		key := l.order[l.start]
		l.start++
		if _, ok := l.seen[key]; ok {
			delete(l.seen, key)
			l.size.Add(-1)
			return
		}
	}
}

// compact reclaims the consumed prefix of the order slice once it grows
// past half the backing array. Must hold l.mu.
func (l *inMemoryLedger) compact() {
	if l.start > 0 && l.start*2 >= len(l.order) {
		l.order = append([]string(nil), l.order[l.start:]...)
		l.start = 0
	}
}
