package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/christopherklint97/planr/internal/ai"
	"github.com/christopherklint97/planr/internal/api"
	"github.com/christopherklint97/planr/internal/planner"
	"github.com/christopherklint97/planr/internal/ratelimit"
)

var endpoints = map[string]string{
	"health":   api.PathHealth,
	"planning": api.PathPlan,
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details map[string]any) {
	s.writeJSON(w, status, api.Envelope[struct{}]{
		Success:   false,
		Error:     message,
		Details:   details,
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET.", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Health{
		Success:     true,
		Message:     "Personal Assistant Backend is running",
		Version:     Version,
		Environment: s.cfg.Server.Environment,
		CORSOrigin:  s.cfg.Server.CORSOrigin,
		Timestamp:   s.now().UTC(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET.", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Envelope[api.Index]{
		Success: true,
		Message: "API information",
		Data: &api.Index{
			Message:   "Personal Assistant Backend API",
			Version:   Version,
			Endpoints: endpoints,
		},
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) handleAPIFallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == api.PathIndex+"/" {
		s.handleIndex(w, r)
		return
	}
	s.writeError(w, http.StatusNotFound, "API endpoint not found", map[string]any{
		"path":               r.URL.Path,
		"availableEndpoints": []string{api.PathHealth, api.PathPlan},
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "Endpoint not found", nil)
		return
	}
	s.handleIndex(w, r)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET.", nil)
		return
	}
	if s.cfg.Server.IsProduction() {
		s.writeError(w, http.StatusForbidden, "Configuration endpoint not available in production", nil)
		return
	}

	info := api.ConfigInfo{
		Environment: s.cfg.Server.Environment,
		Port:        s.cfg.Server.Port,
		CORSOrigin:  s.cfg.Server.CORSOrigin,
		RateLimit: api.RateLimitInfo{
			WindowMs:    s.cfg.RateLimit.WindowMs,
			MaxRequests: s.cfg.RateLimit.MaxRequests,
		},
		AI: api.AIInfo{
			Provider:         s.cfg.AI.Provider,
			Model:            s.cfg.AI.Model,
			APIKeyConfigured: s.cfg.AI.APIKey != "",
		},
	}
	if len(s.cfg.AI.APIKey) > 7 {
		info.AI.APIKeyPrefix = s.cfg.AI.APIKey[:7] + "..."
	}

	s.writeJSON(w, http.StatusOK, api.Envelope[api.ConfigInfo]{
		Success:   true,
		Message:   "Configuration loaded successfully",
		Data:      &info,
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST.", nil)
		return
	}

	clientIP := ratelimit.ClientIP(r, s.cfg.Server.TrustProxy)
	decision := s.limiter.Allow(clientIP)
	s.setRateLimitHeaders(w, decision)
	if !decision.Allowed {
		s.logger.Warn("rate limit exceeded", "client_ip", clientIP)
		s.writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return
		}
		s.writeError(w, http.StatusBadRequest, "Could not read request body", nil)
		return
	}

	req, err := planner.DecodeRequest(body, s.cfg.Planning.AllowEmptyTasks)
	if err != nil {
		var verr *planner.ValidationError
		if errors.As(err, &verr) {
			s.logger.Info("invalid planning request", "error", verr, "request_id", requestIDFrom(r.Context()))
			s.writeError(w, http.StatusBadRequest, verr.Message, verr.Details())
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid request", nil)
		return
	}

	s.logger.Info("planning request received",
		"task_count", len(req.IncompleteTasks),
		"current_time", req.CurrentTime,
		"has_custom_prompt", req.CustomSystemPrompt != "",
		"request_id", requestIDFrom(r.Context()),
	)

	prompts := planner.BuildPrompts(*req)
	completion, err := s.provider.Complete(r.Context(), prompts)
	if err != nil {
		status, message, details := providerFailure(err)
		s.logger.Error("failed to generate plan", "error", err, "request_id", requestIDFrom(r.Context()))
		s.writeError(w, status, message, details)
		return
	}

	plan, source := planner.Normalize(completion.Text, req.IncompleteTasks)
	if source == planner.SourceFallback {
		s.logger.Info("model output was not a JSON plan, using fallback", "request_id", requestIDFrom(r.Context()))
	}

	s.writeJSON(w, http.StatusOK, api.Envelope[api.PlanData]{
		Success: true,
		Message: "Daily plan generated successfully",
		Data: &api.PlanData{
			Plan:        plan,
			Source:      source,
			InputTasks:  req.IncompleteTasks,
			GeneratedAt: s.now().UTC(),
		},
		Usage:     completion.Usage,
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	h := w.Header()
	h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))

	reset := int(d.ResetAt.Sub(s.now()).Seconds())
	if reset < 0 {
		reset = 0
	}
	h.Set("RateLimit-Reset", strconv.Itoa(reset))
	if !d.Allowed {
		h.Set("Retry-After", strconv.Itoa(reset))
	}
}

// providerFailure maps a provider error onto the response taxonomy. Every
// upstream failure is terminal for the request.
func providerFailure(err error) (int, string, map[string]any) {
	var upstream *ai.UpstreamError
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusInternalServerError, "AI provider not configured", nil
	case errors.Is(err, ai.ErrTimeout):
		return http.StatusInternalServerError, "AI service timed out", nil
	case errors.As(err, &upstream):
		return http.StatusInternalServerError, "AI service unavailable", map[string]any{"status": upstream.StatusCode}
	case errors.Is(err, ai.ErrUnavailable):
		return http.StatusInternalServerError, "AI service unavailable", nil
	case errors.Is(err, ai.ErrMalformedResponse):
		return http.StatusInternalServerError, "Invalid AI response format", nil
	default:
		return http.StatusInternalServerError, "Failed to generate plan", nil
	}
}
