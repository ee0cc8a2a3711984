package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/muster/pkg/metrics"
)

// Treap-based, in-memory Board implementation.
//
// Ordering: reliability score DESC, then memberID ASC (deterministic).
// In-order traversal of the treap produces the board from most to least
// reliable. Unlike a best-score leaderboard, SetScore replaces the
// current score in either direction: reliability moves down as well as up.

// scoreScale converts scores (bounded 0..100) to fixed point so equal
// scores compare exactly.
const scoreScale = 1_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	// Reliability scores live in [0, 100]; clamp anything else.
	x = math.Max(0, math.Min(100, x))
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// record stores the fixed-point score plus board metadata for a member.
type record struct {
	score       scoreFP
	onTimePct   float64
	assignments int
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
}

// less reports whether (aScore, aID) ranks before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore // higher score ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

// priority derives from the score so high scores also sit high in the
// treap, which keeps TopN traversals short.
func priority(score scoreFP) uint64 {
	const offset = uint64(1) << 63
	return uint64(score) + offset
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: priority(score)}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

func remove(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = remove(n.left, id, score)
	} else {
		n.right = remove(n.right, id, score)
	}
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, records map[string]record, out *[]BoardEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, ok := records[n.id]; ok {
			*out = append(*out, BoardEntry{
				MemberID:         n.id,
				Score:            toFloat(rec.score),
				OnTimePercentage: rec.onTimePct,
				TotalAssignments: rec.assignments,
			})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// collectAll appends all entries in rank order.
func collectAll(n *node, records map[string]record, out *[]BoardEntry) {
	if n == nil {
		return
	}
	collectAll(n.left, records, out)
	if rec, ok := records[n.id]; ok {
		*out = append(*out, BoardEntry{
			MemberID:         n.id,
			Score:            toFloat(rec.score),
			OnTimePercentage: rec.onTimePct,
			TotalAssignments: rec.assignments,
		})
	}
	collectAll(n.right, records, out)
}

// TreapBoard is the treap-backed Board.
type TreapBoard struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record

	metricsInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapBoard constructs a reliability board with configuration options.
func NewTreapBoard(ctx context.Context, opts ...Option) *TreapBoard {
	b := &TreapBoard{
		byID:            make(map[string]record),
		metricsInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.stopChan = make(chan struct{})
	b.startMetricsUpdater(ctx)
	return b
}

// Close stops the board's background goroutines.
func (b *TreapBoard) Close() error {
	select {
	case <-b.stopChan:
	default:
		close(b.stopChan)
	}
	b.wg.Wait()
	return nil
}

// SetScore implements Board.SetScore with O(log n) expected time.
func (b *TreapBoard) SetScore(ctx context.Context, memberID string, score, onTimePct float64, totalAssignments int) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	ns := toFixedPoint(score)

	b.mu.Lock()
	old, existed := b.byID[memberID]
	if existed {
		if old.score == ns && old.onTimePct == onTimePct && old.assignments == totalAssignments {
			b.mu.Unlock()
			return false, nil
		}
		if old.score != ns {
			b.root = remove(b.root, memberID, old.score)
			b.root = insert(b.root, memberID, ns)
		}
	} else {
		b.root = insert(b.root, memberID, ns)
	}
	b.byID[memberID] = record{score: ns, onTimePct: onTimePct, assignments: totalAssignments}
	total := len(b.byID)
	b.mu.Unlock()

	metrics.RecordBoardUpdate()
	metrics.UpdateBoardMembers(total)
	_ = ctx
	return true, nil
}

// Rank returns the member's current rank and score.
func (b *TreapBoard) Rank(_ context.Context, memberID string) (BoardEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.byID[memberID]; !ok {
		metrics.RecordErrorByComponent("board", "member_not_found")
		return BoardEntry{}, ErrMemberNotFound
	}

	all := make([]BoardEntry, 0, len(b.byID))
	collectAll(b.root, b.byID, &all)
	sortEntries(all)
	assignRanksWithTies(all)

	for _, e := range all {
		if e.MemberID == memberID {
			return e, nil
		}
	}
	return BoardEntry{}, ErrMemberNotFound
}

// TopN returns the top N entries ordered by score desc.
func (b *TreapBoard) TopN(_ context.Context, n int) ([]BoardEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("board", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]BoardEntry, 0, n)
	collectTopN(b.root, n, b.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of members on the board.
func (b *TreapBoard) Count(_ context.Context) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

func (b *TreapBoard) startMetricsUpdater(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.metricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.mu.RLock()
				total := len(b.byID)
				b.mu.RUnlock()
				metrics.UpdateBoardMembers(total)
			}
		}
	}()
}

// sortEntries orders by score desc, memberID asc, matching treap order.
func sortEntries(entries []BoardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].MemberID < entries[j].MemberID
	})
}

// assignRanksWithTies gives members with equal scores the same rank;
// ranking is consecutive, not competition style.
func assignRanksWithTies(entries []BoardEntry) {
	if len(entries) == 0 {
		return
	}
	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank
		sameScore := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			sameScore++
		}
		currentRank++
		i += sameScore - 1
	}
}
