package planner

import (
	"fmt"
	"strings"
)

const cleanSlate = "Great! You have a clean slate today. Consider what you'd like to accomplish."

// Offline renders a plain-text plan without the model: the first two tasks
// go to the morning, the next two to the afternoon, and the rest are counted.
func Offline(date string, tasks []string) string {
	if len(tasks) == 0 {
		return cleanSlate
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Plan (%s):\n\n", date)
	b.WriteString("Morning:\n")
	writeBullets(&b, tasks, 0, 2)
	b.WriteString("\nAfternoon:\n")
	writeBullets(&b, tasks, 2, 4)
	if len(tasks) > 4 {
		fmt.Fprintf(&b, "\nRemaining items: %d tasks to schedule\n", len(tasks)-4)
	}
	return b.String()
}

func writeBullets(b *strings.Builder, tasks []string, from, to int) {
	for i := from; i < to && i < len(tasks); i++ {
		fmt.Fprintf(b, "• %s\n", tasks[i])
	}
}
