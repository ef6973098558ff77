package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

const fallbackBaseHour = 9

var fallbackRecommendations = []string{
	"Break tasks into smaller chunks",
	"Take breaks every hour",
}

// Normalize converts raw model output into a Plan. Output that is not a JSON
// plan object yields the deterministic fallback; Normalize never fails.
func Normalize(raw string, tasks []string) (Plan, Source) {
	if plan, ok := parsePlan(raw); ok {
		return plan, SourceAI
	}
	return Fallback(raw, tasks), SourceFallback
}

func parsePlan(raw string) (Plan, bool) {
	var shape struct {
		PlannedTasks      *[]PlannedTask `json:"plannedTasks"`
		Recommendations   []string       `json:"recommendations"`
		EstimatedDuration string         `json:"estimatedDuration"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &shape); err != nil {
		return Plan{}, false
	}
	if shape.PlannedTasks == nil {
		return Plan{}, false
	}

	plan := Plan{
		PlannedTasks:      *shape.PlannedTasks,
		Recommendations:   shape.Recommendations,
		EstimatedDuration: shape.EstimatedDuration,
	}
	if plan.Recommendations == nil {
		plan.Recommendations = []string{}
	}
	return plan, true
}

// Fallback assigns each task, in order, to consecutive one-hour slots
// starting at 9:00 AM. raw is kept for display.
func Fallback(raw string, tasks []string) Plan {
	planned := make([]PlannedTask, len(tasks))
	for i, task := range tasks {
		planned[i] = PlannedTask{
			Task:     task,
			TimeSlot: SlotLabel(fallbackBaseHour + i),
			Duration: "1 hour",
		}
	}

	recs := make([]string, len(fallbackRecommendations))
	copy(recs, fallbackRecommendations)

	return Plan{
		PlannedTasks:      planned,
		Recommendations:   recs,
		EstimatedDuration: fmt.Sprintf("%d hours", len(tasks)),
		RawResponse:       raw,
	}
}

// SlotLabel renders an hour of the day (taken mod 24) as "H:00 AM/PM".
func SlotLabel(hour int) string {
	h := ((hour % 24) + 24) % 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
