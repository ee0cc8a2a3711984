package drill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitRoster submits all events first, then all members. Events go in
// serially so every assignment target exists before check-in histories
// reference it; members are small enough that serial submission is the
// simpler trade.
func submitRoster(ctx context.Context, config *Config, roster *Roster, stats *Stats) error {
	total := len(roster.Events) + len(roster.LiveEvents) + len(roster.Members)
	log.Printf("📋 Submitting roster: %d events, %d members...",
		len(roster.Events)+len(roster.LiveEvents), len(roster.Members))

	client := newHTTPClient(config.Timeout)

	var submitted, failed int

	for _, ev := range roster.Events {
		if err := submitOne(ctx, client, config.BaseURL+"/events", ev); err != nil {
			failed++
			log.Printf("⚠️  Failed to submit event %s: %v", ev.ID, err)
			continue
		}
		submitted++
	}
	for _, ev := range roster.LiveEvents {
		if err := submitOne(ctx, client, config.BaseURL+"/events", ev); err != nil {
			failed++
			log.Printf("⚠️  Failed to submit event %s: %v", ev.ID, err)
			continue
		}
		submitted++
	}

	for i, plan := range roster.Members {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during roster submission: %w", ctx.Err())
		default:
		}

		if err := submitOne(ctx, client, config.BaseURL+"/members", plan.Member); err != nil {
			failed++
			if config.Verbose {
				log.Printf("⚠️  Failed to submit member %s: %v", plan.Member.ID, err)
			}
			continue
		}
		submitted++

		if config.Verbose && (i+1)%50 == 0 {
			log.Printf("📊 Roster progress: %d/%d submitted", submitted, total)
		}
	}

	stats.RosterSubmitted = submitted
	stats.RosterFailed = failed

	if failed > 0 {
		return fmt.Errorf("roster submission incomplete: %d of %d failed", failed, total)
	}

	log.Printf("✅ Roster submission completed: %d/%d", submitted, total)
	return nil
}

// submitOne posts a single roster item and checks for a created ack.
func submitOne(ctx context.Context, client *HTTPClient, url string, body interface{}) error {
	resp, err := client.Post(url, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	respBody, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusCreated {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var ack AckResponse
	if err := unmarshalJSON(respBody, &ack); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if ack.Status != "created" {
		return fmt.Errorf("unexpected ack status: %s", ack.Status)
	}

	return nil
}
