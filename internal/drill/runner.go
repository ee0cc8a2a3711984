package drill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/muster/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete attendance drill.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting muster attendance drill",
		logger.String("baseURL", config.BaseURL),
		logger.Int("members", config.NumMembers),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the roster
	roster, err := generateRoster(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("roster generation failed: %w", err)
	}

	// Step 3: Submit events and members
	if err := submitRoster(ctx, config, roster, stats); err != nil {
		return fmt.Errorf("roster submission failed: %w", err)
	}

	// Step 4: Fire live check-in attempts
	if err := submitAttempts(ctx, config, roster, stats); err != nil {
		return fmt.Errorf("check-in attempts failed: %w", err)
	}

	// Step 5: Wait for recompute processing
	logger.Get().Info(ctx, "waiting for recompute pipeline to settle")
	time.Sleep(ProcessingDelay)

	// Step 6: Retrieve attendance views concurrently
	views, err := retrieveAttendance(ctx, config, roster, stats)
	if err != nil {
		return fmt.Errorf("attendance retrieval failed: %w", err)
	}

	// Step 7: Get the reliability board
	board, err := getBoard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("board retrieval failed: %w", err)
	}

	// Step 8: Verify results
	if err := verifyResults(config, roster, views, board, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 9: Save the roster to file
	if err := saveRosterToFile(ctx, config, roster); err != nil {
		logger.Get().Warn(ctx, "failed to save roster to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "drill completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// rosterFile is the on-disk shape of a saved drill roster.
type rosterFile struct {
	Events     []Event  `json:"events"`
	LiveEvents []Event  `json:"live_events"`
	Members    []Member `json:"members"`
}

// saveRosterToFile saves the generated roster to a JSON file.
func saveRosterToFile(ctx context.Context, config *Config, roster *Roster) error {
	if len(roster.Members) == 0 {
		return fmt.Errorf("no roster to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "drill_roster_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	out := rosterFile{
		Events:     roster.Events,
		LiveEvents: roster.LiveEvents,
		Members:    make([]Member, 0, len(roster.Members)),
	}
	for _, plan := range roster.Members {
		out.Members = append(out.Members, plan.Member)
	}

	jsonData, err := marshalJSON(out)
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}

	if err := os.WriteFile(filename, jsonData, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "roster saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final drill statistics.
func displayFinalStats(stats *Stats) {
	var expectedRate, attemptsPerSecond float64

	if stats.AttemptsSubmitted > 0 {
		expectedRate = float64(stats.AttemptsAsExpected) / float64(stats.AttemptsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		attemptsPerSecond = float64(stats.AttemptsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("membersGenerated", stats.MembersGenerated),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("rosterSubmitted", stats.RosterSubmitted),
		logger.Int("rosterFailed", stats.RosterFailed),
		logger.Int("attemptsSubmitted", stats.AttemptsSubmitted),
		logger.Int("attemptsAsExpected", stats.AttemptsAsExpected),
		logger.Int("attemptsUnexpected", stats.AttemptsUnexpected),
		logger.Int("attendanceRetrieved", stats.AttendanceRetrieved),
		logger.Int("attendanceMismatches", stats.AttendanceMismatches),
		logger.Int("boardEntries", stats.BoardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("expectedRate", expectedRate),
		logger.Float64("attemptsPerSecond", attemptsPerSecond))
}
