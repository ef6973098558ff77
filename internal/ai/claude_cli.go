package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/christopherklint97/planr/internal/planner"
)

// cleanEnv returns os.Environ() with nested-session markers removed so the
// subprocess is not rejected by the CLI's own session check.
func cleanEnv() []string {
	blocked := map[string]bool{
		"CLAUDECODE":             true,
		"CLAUDE_CODE_ENTRYPOINT": true,
	}

	var env []string
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if !blocked[key] {
			env = append(env, e)
		}
	}
	return env
}

// ClaudeCLI is a Provider backed by a locally installed `claude` binary.
// Useful for running the planner without an API key.
type ClaudeCLI struct {
	Model    string
	Binary   string
	Timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

func NewClaudeCLI(model string, timeout time.Duration, logger *slog.Logger, observer Observer) *ClaudeCLI {
	if model == "" {
		model = "sonnet"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &ClaudeCLI{Model: model, Binary: "claude", Timeout: timeout, logger: logger, observer: observer}
}

func (c *ClaudeCLI) Name() string { return "claude-cli" }

func (c *ClaudeCLI) Complete(ctx context.Context, prompts planner.Prompts) (*Completion, error) {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrNotConfigured, c.Binary)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := []string{
		"-p", prompts.User,
		"--output-format", "json",
		"--model", c.Model,
		"--system-prompt", prompts.System,
		"--no-session-persistence",
	}

	c.logger.Debug("invoking claude CLI",
		"model", c.Model,
		"system_prompt_len", len(prompts.System),
		"user_prompt_len", len(prompts.User),
	)

	start := time.Now()
	text, err := c.run(ctx, args)
	latency := time.Since(start).Milliseconds()

	c.observer.OnCallComplete(CallEvent{
		Provider:  c.Name(),
		Model:     c.Model,
		LatencyMs: latency,
		Success:   err == nil,
		ErrorCode: errorCode(err),
	})
	if err != nil {
		return nil, err
	}

	return &Completion{Text: text, Model: c.Model}, nil
}

func (c *ClaudeCLI) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	err := cmd.Run()
	elapsed := time.Since(startTime)

	c.logger.Debug("claude CLI finished",
		"elapsed", elapsed,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
		"error", err,
	)

	if err != nil {
		c.logger.Error("claude CLI failed",
			"error", err,
			"elapsed", elapsed,
			"stderr", truncateStr(stderr.String(), 1000),
		)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: running claude CLI: %v (stderr: %s)", ErrUnavailable, err, truncateStr(stderr.String(), 500))
	}

	text, isError := unwrapEnvelope(stdout.Bytes())
	if isError {
		return "", fmt.Errorf("%w: claude CLI reported an error: %s", ErrUnavailable, truncateStr(text, 500))
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: claude CLI returned no output", ErrMalformedResponse)
	}
	return text, nil
}

// unwrapEnvelope extracts the result from `--output-format json`. A result
// that is itself a JSON string is unquoted; anything else is returned as is.
// The bool reports the envelope's is_error flag.
func unwrapEnvelope(out []byte) (string, bool) {
	var wrapper struct {
		Type    string          `json:"type"`
		IsError bool            `json:"is_error"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(out, &wrapper); err != nil {
		return string(out), false
	}
	if len(wrapper.Result) == 0 {
		return string(out), wrapper.IsError
	}

	var s string
	if err := json.Unmarshal(wrapper.Result, &s); err == nil {
		return s, wrapper.IsError
	}
	return string(wrapper.Result), wrapper.IsError
}
