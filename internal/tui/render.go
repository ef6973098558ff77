package tui

import (
	"fmt"
	"strings"

	"github.com/christopherklint97/planr/internal/planner"
)

// RenderPlan formats a plan for the terminal.
func RenderPlan(plan planner.Plan, source planner.Source) string {
	return boxStyle.Render(planBody(plan, source, -1))
}

// planBody renders the plan; the task at cursor is highlighted when cursor >= 0.
func planBody(plan planner.Plan, source planner.Source, cursor int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Today's Plan"))
	sb.WriteString("\n")

	if len(plan.PlannedTasks) == 0 {
		sb.WriteString(dimStyle.Render("Nothing scheduled."))
		sb.WriteString("\n")
	}
	for i, t := range plan.PlannedTasks {
		prefix := "  "
		if i == cursor {
			prefix = "> "
		}
		line := prefix + slotStyle.Render(t.TimeSlot) + " " + t.Task
		if t.Duration != "" {
			line += " " + dimStyle.Render("("+t.Duration+")")
		}
		if i == cursor {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if plan.EstimatedDuration != "" {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Estimated: %s\n", plan.EstimatedDuration)
	}

	if len(plan.Recommendations) > 0 {
		sb.WriteString("\n")
		sb.WriteString(successStyle.Render("Recommendations"))
		sb.WriteString("\n")
		for _, r := range plan.Recommendations {
			fmt.Fprintf(&sb, "• %s\n", r)
		}
	}

	if source == planner.SourceFallback {
		sb.WriteString("\n")
		sb.WriteString(warningStyle.Render("The model did not return a structured plan; showing a simple schedule."))
		sb.WriteString("\n")
		if raw := strings.TrimSpace(plan.RawResponse); raw != "" {
			sb.WriteString(dimStyle.Render(raw))
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
