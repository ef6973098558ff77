package planner

import (
	"fmt"
	"strings"
)

// Text renders the plan as plain text, one line per planned task.
func (p Plan) Text(date string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Plan (%s):\n\n", date)
	for _, t := range p.PlannedTasks {
		fmt.Fprintf(&b, "%s - %s", t.TimeSlot, t.Task)
		if t.Duration != "" {
			fmt.Fprintf(&b, " (%s)", t.Duration)
		}
		b.WriteString("\n")
	}
	if p.EstimatedDuration != "" {
		fmt.Fprintf(&b, "\nEstimated: %s\n", p.EstimatedDuration)
	}
	if len(p.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range p.Recommendations {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}
	return b.String()
}
