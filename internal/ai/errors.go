package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the provider has no credentials.
	ErrNotConfigured = errors.New("ai provider not configured")

	// ErrUnavailable indicates a transport failure or a non-success
	// status from the upstream service.
	ErrUnavailable = errors.New("ai service unavailable")

	// ErrTimeout indicates the upstream call exceeded its deadline.
	ErrTimeout = errors.New("ai request timed out")

	// ErrMalformedResponse indicates the upstream answered but the
	// response carried no usable content.
	ErrMalformedResponse = errors.New("invalid ai response format")
)

// UpstreamError carries the HTTP status returned by the model provider.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUnavailable
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "NOT_CONFIGURED"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrMalformedResponse):
		return "MALFORMED"
	default:
		return "UNKNOWN"
	}
}
