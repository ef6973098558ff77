package ai

import (
	"io"
	"log/slog"
)

// CallEvent records metadata about a single upstream invocation.
type CallEvent struct {
	Provider  string
	Model     string
	LatencyMs int64
	Success   bool
	ErrorCode string
	Usage     *Usage
}

// Observer receives one event per provider call.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events to a slog.Logger.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"provider", event.Provider,
		"model", event.Model,
		"latency_ms", event.LatencyMs,
		"success", event.Success,
	}
	if event.ErrorCode != "" {
		attrs = append(attrs, "error_code", event.ErrorCode)
	}
	if event.Usage != nil {
		attrs = append(attrs, "total_tokens", event.Usage.TotalTokens)
	}
	o.logger.Info("ai call", attrs...)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
