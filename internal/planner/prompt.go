package planner

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSystemPrompt is used whenever a request carries no custom prompt.
const DefaultSystemPrompt = `You are a helpful personal productivity assistant. Your job is to create actionable, structured daily plans based on the user's ACTUAL logged tasks.

Rules:
- You MUST use and reference the specific tasks the user has logged, with their exact wording
- Do not suggest generic activities like "exercise" or "read" unless they are explicitly in the user's task list
- Consider the current time when planning: never schedule anything before the current time, and if it is already afternoon, do not suggest morning activities
- Only when the user has no tasks, suggest a general productivity structure instead

Return a JSON object with:
- plannedTasks: array of {"task": "exact user task", "timeSlot": "H:MM AM/PM", "duration": "X hours/minutes"}
- recommendations: array of 2-3 specific productivity tips
- estimatedDuration: total time estimate for all tasks, as text`

type dayPart int

const (
	morning dayPart = iota
	afternoon
	evening
)

// BuildPrompts produces the system and user prompts for a planning request.
// It is a pure function of the request.
func BuildPrompts(req Request) Prompts {
	system := DefaultSystemPrompt
	if strings.TrimSpace(req.CustomSystemPrompt) != "" {
		system = req.CustomSystemPrompt
	}
	return Prompts{System: system, User: buildUserPrompt(req)}
}

func buildUserPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a structured daily plan for %s starting from %s based on these incomplete tasks:\n\n",
		req.CurrentDate, req.CurrentTime)

	if len(req.IncompleteTasks) == 0 {
		b.WriteString("No incomplete tasks found. Since there are no specific tasks, suggest a productive day structure with general productivity tips that makes sense for the current time.")
		b.WriteString("\n\nStructure the rest of the day as:")
	} else {
		fmt.Fprintf(&b, "You have %d incomplete tasks to work with:\n", len(req.IncompleteTasks))
		for i, task := range req.IncompleteTasks {
			fmt.Fprintf(&b, "%d. %s\n", i+1, task)
		}
		b.WriteString("\nIMPORTANT: Your plan MUST use and reference exactly these tasks. Do not suggest generic activities.")
		b.WriteString("\n\nOrganize these into a realistic daily schedule starting from the current time:")
	}

	switch partOfDay(req.CurrentTime) {
	case morning:
		b.WriteString("\n- Morning priorities (most important tasks first)")
		b.WriteString("\n- Afternoon focus areas (remaining tasks)")
		b.WriteString("\n- Evening wrap-up items")
	case afternoon:
		b.WriteString("\n- Afternoon priorities (focus on the incomplete tasks)")
		b.WriteString("\n- Evening wrap-up items")
	default:
		b.WriteString("\n- Evening focus (what can realistically be accomplished)")
		b.WriteString("\n- Tomorrow preparation")
	}

	b.WriteString("\n- Time estimates for each section")
	b.WriteString("\n- Specific task assignments to each time block")

	if req.UserContext != "" {
		fmt.Fprintf(&b, "\n\nAdditional context: %s", req.UserContext)
	}

	b.WriteString("\n\nProvide the plan in a clear, actionable format that directly references the logged tasks. Use the exact wording of each task and be specific about which tasks go where and when.")

	return b.String()
}

// partOfDay reads the leading hour of an HH:MM string. An unparseable hour
// falls through to evening.
func partOfDay(currentTime string) dayPart {
	hour, ok := leadingHour(currentTime)
	switch {
	case !ok:
		return evening
	case hour < 12:
		return morning
	case hour < 17:
		return afternoon
	default:
		return evening
	}
}

func leadingHour(currentTime string) (int, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(currentTime), ":")
	end := 0
	for end < len(head) && head[end] >= '0' && head[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	hour, err := strconv.Atoi(head[:end])
	if err != nil {
		return 0, false
	}
	return hour, true
}
