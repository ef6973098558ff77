// Package planclient calls the planning API from the command line.
package planclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/christopherklint97/planr/internal/api"
	"github.com/christopherklint97/planr/internal/planner"
)

// APIError is a non-2xx response from the planning API.
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("planning API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

type PlanResult = api.Envelope[api.PlanData]

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Covers the server's own upstream timeout plus transfer.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Assemble builds a planning request for the given moment.
func Assemble(tasks []string, now time.Time, userContext, customPrompt string) planner.Request {
	if tasks == nil {
		tasks = []string{}
	}
	return planner.Request{
		IncompleteTasks:    tasks,
		CurrentDate:        now.Format("2006-01-02"),
		CurrentTime:        now.Format("15:04"),
		UserContext:        userContext,
		CustomSystemPrompt: customPrompt,
	}
}

func (c *Client) Health(ctx context.Context) (*api.Health, error) {
	var health api.Health
	if err := c.do(ctx, http.MethodGet, api.PathHealth, nil, &health); err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return &health, nil
}

func (c *Client) Plan(ctx context.Context, req planner.Request) (*PlanResult, error) {
	var result PlanResult
	if err := c.do(ctx, http.MethodPost, api.PathPlan, req, &result); err != nil {
		return nil, fmt.Errorf("requesting plan: %w", err)
	}
	if result.Data == nil {
		return nil, fmt.Errorf("requesting plan: response has no data")
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("planning API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env api.Envelope[struct{}]
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if json.Unmarshal(respBody, &env) == nil && env.Error != "" {
			apiErr.Message = env.Error
			apiErr.Details = env.Details
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
