// Package supabase talks to the hosted items table through the PostgREST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	restPath = "/rest/v1"

	// codeUndefinedTable is the Postgres error for a missing relation.
	codeUndefinedTable = "42P01"
)

var ErrNotConfigured = errors.New("supabase url or anon key not set")

// APIError is a non-2xx PostgREST response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	anonKey    string
	userID     string
	httpClient *http.Client
	cache      *ItemCache
	logger     *slog.Logger
	maxRetries int
	sleep      func(time.Duration)
}

func NewClient(baseURL, anonKey, userID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:      NewItemCache(time.Minute),
		logger:     logger,
		maxRetries: 3,
		sleep:      time.Sleep,
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.anonKey != ""
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}, prefer string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	endpoint := c.baseURL + restPath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	c.logger.Debug("supabase request", "method", method, "path", path)

	var resp *http.Response
	requestStart := time.Now()
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil || attempt == c.maxRetries {
				c.logger.Error("supabase transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("sending request: %w", err)
			}
			c.logger.Debug("supabase transport error, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
			c.sleep(backoff(attempt))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				c.logger.Error("supabase request failed after retries", "method", method, "path", path, "status", resp.StatusCode, "attempts", c.maxRetries+1)
				return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("still failing after %d retries", c.maxRetries)}
			}
			c.logger.Debug("supabase retryable status", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(backoff(attempt))
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("supabase response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: truncate(string(respBody), 200)}
		var pgErr postgrestError
		if json.Unmarshal(respBody, &pgErr) == nil && pgErr.Message != "" {
			apiErr.Code = pgErr.Code
			apiErr.Message = pgErr.Message
		}
		c.logger.Error("supabase request failed", "method", method, "path", path, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	return respBody, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Ping checks connectivity. A missing items table still proves the project
// is reachable.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	_, err := c.doRequest(ctx, http.MethodGet, "/items", q, nil, "")
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeUndefinedTable {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pinging supabase: %w", err)
	}
	return nil
}

// ListActionableItems returns open actionable items, oldest first.
func (c *Client) ListActionableItems(ctx context.Context) ([]Item, error) {
	if cached := c.cache.Get(); cached != nil {
		return cached, nil
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("is_actionable", "eq.true")
	q.Set("status", "neq."+StatusCompleted)
	q.Set("order", "created_at.asc")
	if c.userID != "" {
		q.Set("user_id", "eq."+c.userID)
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/items", q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("listing actionable items: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing items response: %w", err)
	}
	if items == nil {
		items = []Item{}
	}

	c.cache.Set(items)
	return items, nil
}

// InsertItem stores item and returns the row as created.
func (c *Client) InsertItem(ctx context.Context, item Item) (*Item, error) {
	if item.UserID == "" {
		item.UserID = c.userID
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/items", nil, item, "return=representation")
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}
	c.cache.Invalidate()

	var created []Item
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("parsing insert response: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("insert returned no rows")
	}
	return &created[0], nil
}

// SavePlan stores rendered plan text as a plan item.
func (c *Client) SavePlan(ctx context.Context, content string) (*Item, error) {
	return c.InsertItem(ctx, NewPlanItem(c.userID, content))
}

// ItemContents extracts the content of each item, preserving order.
func ItemContents(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Content
	}
	return out
}
