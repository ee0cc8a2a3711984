package drill

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/muster/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "drill_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the attendance drill tool.
func ShowHelp() {
	os.Stdout.WriteString(`Muster Attendance Drill Tool
============================

A concurrent tool for drilling the Muster check-in and attendance system.
It generates a roster of events and members with known histories, fires
live check-in attempts at controlled offsets and positions, then verifies
the attendance stats, alerts and reliability board the service reports
against locally derived expectations.

Usage:
  go run cmd/muster-drill/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -members int
        Number of members to generate (default 200)
  -events int
        Number of past events in each member's history (default 12)
  -top int
        Number of top entries to fetch from the board (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the generated roster (default: drill_roster_TIMESTAMP.json)
  -log string
        Log file for drill output (default: drill_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Drill with default settings
  go run cmd/muster-drill/main.go

  # Drill with a larger roster
  go run cmd/muster-drill/main.go -members 1000 -events 20 -workers 16

  # Drill with verbose output
  go run cmd/muster-drill/main.go -verbose -members 100

  # Drill with a custom log file
  go run cmd/muster-drill/main.go -members 500 -log my_drill.log
`)
}
