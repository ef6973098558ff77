package planner

import "encoding/json"

// Request is a single "plan my day" submission.
type Request struct {
	IncompleteTasks    []string `json:"incompleteTasks"`
	CurrentDate        string   `json:"currentDate"`
	CurrentTime        string   `json:"currentTime"`
	UserContext        string   `json:"userContext,omitempty"`
	CustomSystemPrompt string   `json:"customSystemPrompt,omitempty"`
}

type Plan struct {
	PlannedTasks      []PlannedTask `json:"plannedTasks"`
	Recommendations   []string      `json:"recommendations"`
	EstimatedDuration string        `json:"estimatedDuration"`
	RawResponse       string        `json:"rawResponse,omitempty"`
}

type PlannedTask struct {
	Task     string `json:"task"`
	TimeSlot string `json:"timeSlot"`
	Duration string `json:"duration"`
}

// UnmarshalJSON accepts "time" as an alias for "timeSlot"; models are not
// consistent about which key they emit.
func (t *PlannedTask) UnmarshalJSON(data []byte) error {
	var raw struct {
		Task     string `json:"task"`
		TimeSlot string `json:"timeSlot"`
		Time     string `json:"time"`
		Duration string `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Task = raw.Task
	t.TimeSlot = raw.TimeSlot
	if t.TimeSlot == "" {
		t.TimeSlot = raw.Time
	}
	t.Duration = raw.Duration
	return nil
}

// Source records whether a plan came from the model or was synthesized.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Prompts is the system/user message pair sent to the chat-completion service.
type Prompts struct {
	System string
	User   string
}
