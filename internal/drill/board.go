package drill

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveAttendance retrieves attendance views for all members concurrently.
func retrieveAttendance(ctx context.Context, config *Config, roster *Roster, stats *Stats) ([]AttendanceView, error) {
	log.Printf("📈 Retrieving attendance for %d members with %d workers...",
		len(roster.Members), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	views := make([]AttendanceView, len(roster.Members))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	memberChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range memberChan {
				select {
				case <-ctx.Done():
					return
				default:
					memberID := roster.Members[index].Member.ID
					view, err := retrieveSingleAttendance(client, config.BaseURL, memberID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get attendance for %s: %v", memberID, err)
						}
					} else {
						views[index] = view
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Attendance progress: %d/%d retrieved (success: %d, failed: %d)",
								total, len(roster.Members), ret, fail)
						} else {
							log.Printf("\r📈 Attendance: %d/%d retrieved (success: %d, failed: %d)",
								total, len(roster.Members), ret, fail)
						}
					}
				}
			}
		}()
	}

	// Send member indices to workers
	go func() {
		defer close(memberChan)
		for i := range roster.Members {
			select {
			case <-ctx.Done():
				return
			case memberChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		log.Println() // New line after progress indicator
	}

	// Update stats
	stats.AttendanceRetrieved = int(atomic.LoadInt64(&retrieved))

	log.Printf(`✅ Attendance retrieval completed:
   Retrieved: %d
   Failed: %d
`, stats.AttendanceRetrieved, int(atomic.LoadInt64(&failed)))

	return views, nil
}

// retrieveSingleAttendance retrieves the attendance view for one member.
func retrieveSingleAttendance(client *HTTPClient, baseURL, memberID string) (AttendanceView, error) {
	url := fmt.Sprintf("%s/members/%s/attendance", baseURL, memberID)

	resp, err := client.Get(url)
	if err != nil {
		return AttendanceView{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return AttendanceView{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return AttendanceView{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var view AttendanceView
	if err := unmarshalJSON(body, &view); err != nil {
		return AttendanceView{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return view, nil
}

// getBoard retrieves the top N reliability board entries.
func getBoard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d board entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/board?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var board []Entry
	if err := unmarshalJSON(body, &board); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.BoardEntries = len(board)
	log.Printf("✅ Retrieved %d board entries", len(board))

	return board, nil
}

// getRank retrieves the board entry for a single member.
func getRank(config *Config, memberID string) (Entry, error) {
	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/rank/%s", config.BaseURL, memberID)

	resp, err := client.Get(url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}
