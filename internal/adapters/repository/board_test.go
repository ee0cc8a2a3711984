package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

// floatEqual compares two float64 values with a small tolerance for floating-point precision
func floatEqual(a, b float64) bool {
	const tolerance = 1e-6
	return math.Abs(a-b) < tolerance
}

func newTestBoard(t *testing.T) (*TreapBoard, context.Context) {
	t.Helper()
	ctx := context.Background()
	board := NewTreapBoard(ctx)
	t.Cleanup(func() { _ = board.Close() })
	return board, ctx
}

func TestTreapBoard_BasicOperations(t *testing.T) {
	board, ctx := newTestBoard(t)

	// Test empty board
	if count := board.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	// Test inserting first member
	changed, err := board.SetScore(ctx, "mem-1", 85.5, 90.0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected first SetScore to change the board")
	}

	if count := board.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	// Test rank query
	entry, err := board.Rank(ctx, "mem-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected rank 1, got %d", entry.Rank)
	}
	if !floatEqual(entry.Score, 85.5) {
		t.Errorf("expected score 85.5, got %f", entry.Score)
	}
	if !floatEqual(entry.OnTimePercentage, 90.0) {
		t.Errorf("expected on-time 90.0, got %f", entry.OnTimePercentage)
	}
	if entry.TotalAssignments != 10 {
		t.Errorf("expected 10 assignments, got %d", entry.TotalAssignments)
	}

	// Test unknown member
	if _, err := board.Rank(ctx, "mem-missing"); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestTreapBoard_ScoreReplacement(t *testing.T) {
	board, ctx := newTestBoard(t)

	if _, err := board.SetScore(ctx, "mem-1", 90.0, 100.0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := board.SetScore(ctx, "mem-2", 80.0, 80.0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Reliability can move down as well as up
	changed, err := board.SetScore(ctx, "mem-1", 70.0, 60.0, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected a lower score to change the board")
	}

	entry, err := board.Rank(ctx, "mem-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floatEqual(entry.Score, 70.0) {
		t.Errorf("expected replaced score 70.0, got %f", entry.Score)
	}
	if entry.Rank != 2 {
		t.Errorf("expected demotion to rank 2, got %d", entry.Rank)
	}

	// Unchanged state reports no change
	changed, err = board.SetScore(ctx, "mem-1", 70.0, 60.0, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("expected identical SetScore to be a no-op")
	}

	// Same score with new metadata still updates
	changed, err = board.SetScore(ctx, "mem-1", 70.0, 65.0, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected metadata change to register")
	}
}

func TestTreapBoard_TopN(t *testing.T) {
	board, ctx := newTestBoard(t)

	scores := map[string]float64{
		"mem-a": 95.0,
		"mem-b": 75.0,
		"mem-c": 85.0,
		"mem-d": 65.0,
		"mem-e": 90.0,
	}
	for id, score := range scores {
		if _, err := board.SetScore(ctx, id, score, score, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := board.TopN(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantOrder := []string{"mem-a", "mem-e", "mem-c"}
	for i, want := range wantOrder {
		if entries[i].MemberID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, entries[i].MemberID)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, entries[i].Rank)
		}
	}

	// Asking for more than exists returns everything
	entries, err = board.TopN(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != len(scores) {
		t.Errorf("expected %d entries, got %d", len(scores), len(entries))
	}

	// Invalid limit
	if _, err := board.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapBoard_Ties(t *testing.T) {
	board, ctx := newTestBoard(t)

	for _, id := range []string{"mem-b", "mem-a", "mem-c"} {
		if _, err := board.SetScore(ctx, id, 80.0, 80.0, 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := board.SetScore(ctx, "mem-z", 60.0, 60.0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := board.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	// Tied members share a rank and order by id
	wantIDs := []string{"mem-a", "mem-b", "mem-c", "mem-z"}
	wantRanks := []int{1, 1, 1, 2}
	for i := range wantIDs {
		if entries[i].MemberID != wantIDs[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantIDs[i], entries[i].MemberID)
		}
		if entries[i].Rank != wantRanks[i] {
			t.Errorf("position %d: expected rank %d, got %d", i, wantRanks[i], entries[i].Rank)
		}
	}

	// Rank lookups agree with the board view
	entry, err := board.Rank(ctx, "mem-z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 2 {
		t.Errorf("expected rank 2, got %d", entry.Rank)
	}
}

func TestTreapBoard_ConcurrentAccess(t *testing.T) {
	board, ctx := newTestBoard(t)

	const goroutines = 16
	const updates = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			memberID := fmt.Sprintf("mem-%d", id)
			for j := 0; j < updates; j++ {
				score := float64((id*j + j) % 101)
				_, _ = board.SetScore(ctx, memberID, score, score, j)
				_, _ = board.Rank(ctx, memberID)
				_, _ = board.TopN(ctx, 5)
			}
		}(i)
	}
	wg.Wait()

	if count := board.Count(ctx); count != goroutines {
		t.Errorf("expected %d members, got %d", goroutines, count)
	}

	// Final board must still be a valid descending ranking
	entries, err := board.TopN(ctx, goroutines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Score > entries[i-1].Score {
			t.Errorf("board out of order at %d: %f > %f", i, entries[i].Score, entries[i-1].Score)
		}
	}
}

func TestTreapBoard_ScoreClamping(t *testing.T) {
	board, ctx := newTestBoard(t)

	if _, err := board.SetScore(ctx, "mem-1", 150.0, 100.0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := board.SetScore(ctx, "mem-2", -10.0, 0.0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := board.Rank(ctx, "mem-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floatEqual(top.Score, 100.0) {
		t.Errorf("expected clamp to 100, got %f", top.Score)
	}

	bottom, err := board.Rank(ctx, "mem-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floatEqual(bottom.Score, 0.0) {
		t.Errorf("expected clamp to 0, got %f", bottom.Score)
	}
}
