package ai

import (
	"context"

	"github.com/christopherklint97/planr/internal/planner"
)

// Provider turns a system/user prompt pair into model text. One call is one
// upstream attempt; providers do not retry.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompts planner.Prompts) (*Completion, error)
}

type Completion struct {
	Text  string
	Model string
	Usage *Usage
}

// Usage is token telemetry from the upstream call.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}
