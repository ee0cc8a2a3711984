package drill

import (
	"fmt"
	"log"
	"math"
	"sort"
)

// Tolerance for comparing float scores across the wire.
const scoreEpsilon = 0.01

// verifyResults checks the attendance views and reliability board the
// service reported against the locally derived expectations.
func verifyResults(config *Config, roster *Roster, views []AttendanceView, board []Entry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(views) == 0 {
		return fmt.Errorf("no attendance views to verify")
	}

	mismatches := 0
	for i, plan := range roster.Members {
		view := views[i]
		if view.MemberID == "" {
			// Retrieval failed for this member; already counted
			continue
		}
		if problems := compareAttendance(plan, view); len(problems) > 0 {
			mismatches++
			for _, p := range problems {
				log.Printf("⚠️  Member %s: %s", plan.Member.ID, p)
			}
		}
	}
	stats.AttendanceMismatches = mismatches

	if mismatches == 0 {
		log.Println("✅ Attendance stats verified")
	} else {
		log.Printf("⚠️  %d members had mismatched attendance stats", mismatches)
	}

	// Verify board consistency if we have board data
	if len(board) > 0 {
		if err := verifyBoardConsistency(roster, board); err != nil {
			log.Printf("⚠️  Board consistency warning: %v", err)
		} else {
			log.Println("✅ Board consistency verified")
		}

		// Spot-check the rank endpoint against the board's top entry
		entry, err := getRank(config, board[0].MemberID)
		switch {
		case err != nil:
			log.Printf("⚠️  Rank spot-check failed: %v", err)
		case entry.Rank != board[0].Rank:
			log.Printf("⚠️  Rank spot-check: /rank reports %d, board reports %d",
				entry.Rank, board[0].Rank)
		default:
			log.Println("✅ Rank endpoint consistent with board")
		}
	}

	displayTopPerformers(roster, board, config.Verbose)

	if mismatches > 0 {
		return fmt.Errorf("%d members had mismatched attendance stats", mismatches)
	}

	log.Println("✅ Result verification completed")
	return nil
}

// compareAttendance diffs one member's reported view against the plan.
func compareAttendance(plan MemberPlan, view AttendanceView) []string {
	var problems []string
	expected := plan.Expected

	if view.Stats.Early != expected.Early {
		problems = append(problems, fmt.Sprintf("early count %d, want %d", view.Stats.Early, expected.Early))
	}
	if view.Stats.OnTime != expected.OnTime {
		problems = append(problems, fmt.Sprintf("on-time count %d, want %d", view.Stats.OnTime, expected.OnTime))
	}
	if view.Stats.Late != expected.Late {
		problems = append(problems, fmt.Sprintf("late count %d, want %d", view.Stats.Late, expected.Late))
	}
	if view.Stats.NoShow != expected.NoShow {
		problems = append(problems, fmt.Sprintf("no-show count %d, want %d", view.Stats.NoShow, expected.NoShow))
	}
	if math.Abs(view.Stats.OnTimePercentage-expected.OnTimePercentage) > scoreEpsilon {
		problems = append(problems, fmt.Sprintf("on-time percentage %.3f, want %.3f",
			view.Stats.OnTimePercentage, expected.OnTimePercentage))
	}
	if math.Abs(view.Stats.ReliabilityScore-expected.ReliabilityScore) > scoreEpsilon {
		problems = append(problems, fmt.Sprintf("reliability score %.3f, want %.3f",
			view.Stats.ReliabilityScore, expected.ReliabilityScore))
	}

	wantAlerts := expectedAlerts(expected)
	if len(view.Alerts) != len(wantAlerts) {
		problems = append(problems, fmt.Sprintf("alert count %d, want %d", len(view.Alerts), len(wantAlerts)))
		return problems
	}
	for i, want := range wantAlerts {
		got := view.Alerts[i]
		if got.Type != want.Type || got.Level != want.Level {
			problems = append(problems, fmt.Sprintf("alert %d is %s/%s, want %s/%s",
				i, got.Type, got.Level, want.Type, want.Level))
		}
	}

	return problems
}

// expectedAlerts derives the alerts the service should attach, using the
// same thresholds it applies: lateness first, then no-shows.
func expectedAlerts(expected Expected) []AlertView {
	var alerts []AlertView

	attended := expected.OnTime + expected.Early + expected.Late
	if attended >= latenessMinSample && float64(expected.Late)/float64(attended) > latenessWarnRatio {
		level := "warning"
		if expected.Late > latenessCriticalCount {
			level = "critical"
		}
		alerts = append(alerts, AlertView{Type: "lateness", Level: level})
	}

	if expected.NoShow >= noShowWarnCount {
		level := "warning"
		if expected.NoShow > noShowCriticalCount {
			level = "critical"
		}
		alerts = append(alerts, AlertView{Type: "no-shows", Level: level})
	}

	return alerts
}

// verifyBoardConsistency checks the board ordering and scores against the
// generated expectations.
func verifyBoardConsistency(roster *Roster, board []Entry) error {
	expectedByID := make(map[string]Expected, len(roster.Members))
	for _, plan := range roster.Members {
		expectedByID[plan.Member.ID] = plan.Expected
	}

	// Check if the board is properly sorted
	for i := 1; i < len(board); i++ {
		if board[i].ReliabilityScore > board[i-1].ReliabilityScore {
			return fmt.Errorf("board not properly sorted: entry %d has higher score than entry %d",
				i, i-1)
		}
	}

	// Check each entry's score against the generated expectation
	for i, entry := range board {
		expected, ok := expectedByID[entry.MemberID]
		if !ok {
			return fmt.Errorf("board entry %d references unknown member %s", i, entry.MemberID)
		}
		if math.Abs(entry.ReliabilityScore-expected.ReliabilityScore) > scoreEpsilon {
			return fmt.Errorf("board entry %d score %.3f does not match expected %.3f",
				i, entry.ReliabilityScore, expected.ReliabilityScore)
		}
	}

	// Check the top entry against the best expected score
	best := -1.0
	for _, plan := range roster.Members {
		if plan.Expected.ReliabilityScore > best {
			best = plan.Expected.ReliabilityScore
		}
	}
	if math.Abs(board[0].ReliabilityScore-best) > scoreEpsilon {
		return fmt.Errorf("top board score %.3f does not match best expected score %.3f",
			board[0].ReliabilityScore, best)
	}

	return nil
}

// displayTopPerformers shows the most reliable members from the
// expectations and the board.
func displayTopPerformers(roster *Roster, board []Entry, verbose bool) {
	sorted := make([]MemberPlan, len(roster.Members))
	copy(sorted, roster.Members)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Expected.ReliabilityScore > sorted[j].Expected.ReliabilityScore
	})

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("🏆 Top %d members by expected reliability:", topN)
	for i := 0; i < topN; i++ {
		plan := sorted[i]
		log.Printf("   %d. %s - Score: %.3f", i+1, plan.Member.ID, plan.Expected.ReliabilityScore)
	}

	if len(board) > 0 {
		boardTopN := topN
		if len(board) < boardTopN {
			boardTopN = len(board)
		}

		log.Printf("🥇 Top %d members from the board:", boardTopN)
		for i := 0; i < boardTopN; i++ {
			entry := board[i]
			log.Printf("   %d. %s - Score: %.3f", i+1, entry.MemberID, entry.ReliabilityScore)
		}
	}

	if verbose {
		// Show some statistics
		if len(sorted) > 0 {
			avgScore := calculateAverageScore(sorted)
			maxScore := sorted[0].Expected.ReliabilityScore
			minScore := sorted[len(sorted)-1].Expected.ReliabilityScore

			log.Printf(`📊 Expected score statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, avgScore, maxScore, minScore)
		}
	}
}

// calculateAverageScore calculates the average expected reliability score.
func calculateAverageScore(plans []MemberPlan) float64 {
	if len(plans) == 0 {
		return 0
	}

	sum := 0.0
	for _, plan := range plans {
		sum += plan.Expected.ReliabilityScore
	}

	return sum / float64(len(plans))
}
