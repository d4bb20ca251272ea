// Package brightdata implements the scrape provider port against the Bright
// Data datasets API: trigger a collection, then fetch the snapshot by id once
// the provider finishes collecting.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/growthlabs/dispatcher/internal/core"
)

const (
	defaultBaseURL     = "https://api.brightdata.com/datasets/v3"
	defaultTimeout     = 120 * time.Second
	defaultMaxAttempts = 3
	maxErrorBodyBytes  = 400
)

// Config captures the subset of the Bright Data API behaviour we need.
type Config struct {
	APIToken    string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Client      *http.Client
	// Sleep is overridable for tests; defaults to a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client talks to the Bright Data datasets API.
type Client struct {
	token       string
	baseURL     string
	maxAttempts int
	client      *http.Client
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Bright Data client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, errors.New("bright data api token is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = defaultMaxAttempts
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Client{
		token:       token,
		baseURL:     baseURL,
		maxAttempts: attempts,
		client:      hc,
		sleep:       sleep,
	}, nil
}

// Trigger submits a dataset collection and returns the snapshot id the
// provider assigned. Rate-limited attempts honor an integer Retry-After
// header; all other failures back off exponentially. The last error wins when
// every attempt fails.
func (c *Client) Trigger(ctx context.Context, req core.TriggerRequest) (*core.TriggerReceipt, error) {
	if strings.TrimSpace(req.DatasetID) == "" || len(req.Inputs) == 0 {
		return nil, errors.New("trigger requires dataset id and non-empty inputs")
	}

	body, err := json.Marshal(req.Inputs)
	if err != nil {
		return nil, fmt.Errorf("encode trigger inputs: %w", err)
	}

	endpoint := c.baseURL + "/trigger?" + url.Values{
		"dataset_id":     {req.DatasetID},
		"format":         {"json"},
		"include_errors": {"true"},
	}.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		receipt, retryAfter, attemptErr := c.triggerOnce(ctx, endpoint, body)
		if attemptErr == nil {
			return receipt, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = attemptErr

		if attempt < c.maxAttempts {
			wait := retryAfter
			if wait <= 0 {
				wait = backoff(attempt)
			}
			if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, lastErr
}

// triggerOnce performs a single trigger attempt. A positive retryAfter means
// the provider asked us to wait that long before the next attempt.
func (c *Client) triggerOnce(ctx context.Context, endpoint string, body []byte) (*core.TriggerReceipt, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create trigger request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("trigger request failed: %w", err)
	}

	respBody, err := readAndClose(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read trigger response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), errors.New("rate limited (HTTP 429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, maxErrorBodyBytes))
	}

	var ack struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return nil, 0, fmt.Errorf("decode trigger response: %w", err)
	}
	if ack.SnapshotID == "" {
		return nil, 0, errors.New("trigger response missing snapshot_id")
	}

	return &core.TriggerReceipt{
		SnapshotID: ack.SnapshotID,
		Raw:        json.RawMessage(respBody),
	}, 0, nil
}

// FetchSnapshot downloads a finished snapshot's records. While the provider
// is still collecting it returns *core.ErrSnapshotNotReady.
func (c *Client) FetchSnapshot(ctx context.Context, snapshotID string) ([]json.RawMessage, error) {
	if strings.TrimSpace(snapshotID) == "" {
		return nil, errors.New("snapshot id is required")
	}

	endpoint := c.baseURL + "/snapshot/" + url.PathEscape(snapshotID) + "?format=json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create snapshot request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}

	respBody, err := readAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot response: %w", err)
	}

	if resp.StatusCode == http.StatusAccepted {
		return nil, &core.ErrSnapshotNotReady{SnapshotID: snapshotID}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, maxErrorBodyBytes))
	}

	records, notReady, err := decodeSnapshotBody(respBody)
	if err != nil {
		return nil, err
	}
	if notReady {
		return nil, &core.ErrSnapshotNotReady{SnapshotID: snapshotID}
	}
	return records, nil
}

// decodeSnapshotBody accepts the two shapes the API produces: a JSON array of
// records, or newline-delimited JSON objects. A lone status object means the
// snapshot is still collecting.
func decodeSnapshotBody(body []byte) ([]json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, false, fmt.Errorf("decode snapshot records: %w", err)
		}
		return records, false, nil
	}

	if statusOnly(trimmed) {
		return nil, true, nil
	}

	var records []json.RawMessage
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, false, errors.New("decode snapshot records: invalid JSON line")
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	return records, false, nil
}

// statusOnly reports whether the body is a progress marker like
// {"status":"running"} rather than a record.
func statusOnly(body []byte) bool {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	switch probe.Status {
	case "running", "collecting", "building", "scheduled":
		return true
	default:
		return false
	}
}

func parseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readAndClose fully consumes and closes a response body so the underlying
// connection can be reused.
func readAndClose(body io.ReadCloser) ([]byte, error) {
	data, readErr := io.ReadAll(body)
	if closeErr := body.Close(); closeErr != nil {
		if readErr != nil {
			return nil, errors.Join(readErr, closeErr)
		}
		return nil, closeErr
	}
	if readErr != nil {
		return nil, readErr
	}
	return data, nil
}

func truncate(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

var _ core.ScrapeProvider = (*Client)(nil)
