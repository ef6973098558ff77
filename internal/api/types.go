// Package api holds the JSON wire types shared by the HTTP server and its
// clients.
package api

import (
	"time"

	"github.com/christopherklint97/planr/internal/ai"
	"github.com/christopherklint97/planr/internal/planner"
)

const (
	PathHealth = "/api/health"
	PathPlan   = "/api/openai/plan"
	PathIndex  = "/api"
	PathConfig = "/api/config"
)

// Envelope is the uniform response body. Failures set Error and, when
// useful, Details; successes set Data.
type Envelope[T any] struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Data      *T             `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Usage     *ai.Usage      `json:"usage,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type PlanData struct {
	Plan        planner.Plan   `json:"plan"`
	Source      planner.Source `json:"source"`
	InputTasks  []string       `json:"inputTasks"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

type Health struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	CORSOrigin  string    `json:"corsOrigin"`
	Timestamp   time.Time `json:"timestamp"`
}

type Index struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

type ConfigInfo struct {
	Environment string        `json:"environment"`
	Port        int           `json:"port"`
	CORSOrigin  string        `json:"corsOrigin"`
	RateLimit   RateLimitInfo `json:"rateLimit"`
	AI          AIInfo        `json:"ai"`
}

type RateLimitInfo struct {
	WindowMs    int `json:"windowMs"`
	MaxRequests int `json:"maxRequests"`
}

type AIInfo struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
	APIKeyPrefix     string `json:"apiKeyPrefix,omitempty"`
}
