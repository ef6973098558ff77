package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/planr/internal/planner"
)

func typeText(t *testing.T, a *App, s string) {
	t.Helper()
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func press(a *App, k tea.KeyType) tea.Cmd {
	_, cmd := a.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestCaptureAddsTasksOnEnter(t *testing.T) {
	a := NewApp("Monday", []string{"Existing"}, nil)

	typeText(t, a, "Write report")
	press(a, tea.KeyEnter)
	press(a, tea.KeyEnter) // blank line is ignored
	typeText(t, a, "Call dentist")

	assert.Equal(t, []string{"Existing", "Write report", "Call dentist"}, a.input.Tasks())
	assert.Contains(t, a.View(), "Write report")

	cmd := press(a, tea.KeyCtrlD)
	require.NotNil(t, cmd)
	res := a.GetResult()
	require.NotNil(t, res)
	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"Existing", "Write report", "Call dentist"}, res.Tasks)
}

func TestCaptureCancel(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		a := NewApp("", nil, nil)
		typeText(t, a, "draft")
		press(a, k)
		res := a.GetResult()
		require.NotNil(t, res)
		assert.True(t, res.Cancelled)
		assert.Equal(t, []string{"draft"}, res.Tasks)
	}
}

func TestPlanFlow(t *testing.T) {
	var got []string
	planFn := func(ctx context.Context, tasks []string) (*Outcome, error) {
		got = tasks
		return &Outcome{Plan: planner.Fallback("", tasks), Source: planner.SourceFallback}, nil
	}

	a := NewApp("", nil, planFn)
	typeText(t, a, "Write report")
	press(a, tea.KeyEnter)
	typeText(t, a, "Review PR")
	press(a, tea.KeyEnter)

	press(a, tea.KeyCtrlD)
	assert.Equal(t, loadingView, a.state)

	msg := a.requestPlan(a.input.Tasks())()
	assert.Equal(t, []string{"Write report", "Review PR"}, got)

	a.Update(msg)
	require.Equal(t, planView, a.state)
	assert.Contains(t, a.View(), "9:00 AM")
	assert.Contains(t, a.View(), "10:00 AM")

	a.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, a.plan.cursor)
	a.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, a.plan.cursor)

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	assert.Equal(t, confirmationView, a.state)
	assert.Contains(t, a.View(), "Plan accepted.")
	assert.NotContains(t, a.View(), "saved")
	res := a.GetResult()
	require.NotNil(t, res)
	require.NotNil(t, res.Outcome)
	assert.Len(t, res.Outcome.Plan.PlannedTasks, 2)
	assert.Equal(t, planner.SourceFallback, res.Outcome.Source)
}

func TestPlanErrorCanRetry(t *testing.T) {
	a := NewApp("", []string{"x"}, func(ctx context.Context, tasks []string) (*Outcome, error) {
		return nil, errors.New("server unreachable")
	})

	press(a, tea.KeyCtrlD)
	a.Update(a.requestPlan(a.input.Tasks())())
	assert.Equal(t, confirmationView, a.state)
	assert.Contains(t, a.View(), "server unreachable")

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, inputView, a.state)
	assert.Nil(t, a.GetResult())
}

func TestRenderPlan(t *testing.T) {
	plan := planner.Plan{
		PlannedTasks: []planner.PlannedTask{
			{Task: "Write report", TimeSlot: "9:00 AM", Duration: "1 hour"},
		},
		Recommendations:   []string{"Take a break"},
		EstimatedDuration: "1 hour",
	}

	out := RenderPlan(plan, planner.SourceAI)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "9:00 AM")
	assert.Contains(t, out, "Take a break")
	assert.NotContains(t, out, "did not return a structured plan")

	fallback := RenderPlan(planner.Fallback("Just do things", []string{"a"}), planner.SourceFallback)
	assert.Contains(t, fallback, "did not return a structured plan")
	assert.Contains(t, fallback, "Just do things")
}
