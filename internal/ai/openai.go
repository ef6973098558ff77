package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/christopherklint97/planr/internal/planner"
)

// OpenAIConfig holds the sampling and transport settings for OpenAI.
type OpenAIConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	MaxTokens        int
	Temperature      float64
	Timeout          time.Duration
	StructuredOutput bool
}

// OpenAI calls the chat-completions endpoint of an OpenAI-compatible API.
type OpenAI struct {
	cfg      OpenAIConfig
	client   openai.Client
	logger   *slog.Logger
	observer Observer
}

func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger, observer Observer) *OpenAI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		cfg:      cfg,
		client:   openai.NewClient(opts...),
		logger:   logger,
		observer: observer,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, prompts planner.Prompts) (*Completion, error) {
	if o.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.System),
			openai.UserMessage(prompts.User),
		},
		MaxTokens:   openai.Int(int64(o.cfg.MaxTokens)),
		Temperature: openai.Float(o.cfg.Temperature),
	}
	if o.cfg.StructuredOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "daily_plan",
					Description: openai.String("A daily plan built from the user's tasks"),
					Schema:      PlanSchema(),
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	o.logger.Debug("invoking chat completion",
		"model", o.cfg.Model,
		"max_tokens", o.cfg.MaxTokens,
		"temperature", o.cfg.Temperature,
		"structured_output", o.cfg.StructuredOutput,
		"system_prompt_len", len(prompts.System),
		"user_prompt_len", len(prompts.User),
	)

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start).Milliseconds()

	completion, err := o.toCompletion(ctx, resp, err)

	event := CallEvent{
		Provider:  o.Name(),
		Model:     o.cfg.Model,
		LatencyMs: latency,
		Success:   err == nil,
		ErrorCode: errorCode(err),
	}
	if completion != nil {
		event.Usage = completion.Usage
	}
	o.observer.OnCallComplete(event)

	if err != nil {
		o.logger.Error("chat completion failed", "error", err, "elapsed_ms", latency)
		return nil, err
	}

	o.logger.Debug("chat completion finished",
		"elapsed_ms", latency,
		"content_len", len(completion.Text),
		"content", truncateStr(completion.Text, 2000),
	)
	return completion, nil
}

func (o *OpenAI) toCompletion(ctx context.Context, resp *openai.ChatCompletion, err error) (*Completion, error) {
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{StatusCode: apiErr.StatusCode, Message: truncateStr(apiErr.Message, 500)}
		}
		if isDecodeError(err) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", ErrMalformedResponse, truncateStr(msg.Refusal, 200))
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("%w: empty message content", ErrMalformedResponse)
	}

	return &Completion{
		Text:  msg.Content,
		Model: resp.Model,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// isDecodeError reports whether err came from decoding a response body the
// upstream delivered successfully.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return true
	}
	return strings.Contains(err.Error(), "error parsing response json")
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
