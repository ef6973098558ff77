package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/planr/internal/planner"
)

type viewState int

const (
	inputView viewState = iota
	loadingView
	planView
	confirmationView
)

// Outcome is a generated plan and where it came from.
type Outcome struct {
	Plan   planner.Plan
	Source planner.Source
}

// PlanFunc turns the captured tasks into a plan.
type PlanFunc func(ctx context.Context, tasks []string) (*Outcome, error)

type Result struct {
	Cancelled bool
	Tasks     []string
	Outcome   *Outcome
}

type planResultMsg struct {
	outcome *Outcome
	err     error
}

type App struct {
	state   viewState
	input   inputModel
	spinner spinner.Model
	plan    planModel
	result  *Result
	errMsg  string

	planFn  PlanFunc
	timeout time.Duration
}

// NewApp starts in task capture, prefilled with tasks. A nil planFn makes
// Ctrl+D return the captured tasks without planning.
func NewApp(header string, tasks []string, planFn PlanFunc) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:   inputView,
		input:   newInputModel(header, tasks),
		spinner: s,
		planFn:  planFn,
		timeout: 90 * time.Second,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.result = &Result{Cancelled: true, Tasks: a.input.Tasks()}
			return a, tea.Quit
		}
	case planResultMsg:
		return a.handlePlanResult(msg)
	}

	switch a.state {
	case inputView:
		return a.updateInput(msg)
	case loadingView:
		return a.updateLoading(msg)
	case planView:
		return a.updatePlan(msg)
	case confirmationView:
		return a.updateConfirmation(msg)
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case inputView:
		return a.input.View()
	case loadingView:
		return a.spinner.View() + " Planning your day..."
	case planView:
		return a.plan.View()
	case confirmationView:
		if a.errMsg != "" {
			return errorStyle.Render("Error: ") + a.errMsg + "\n\n" + helpStyle.Render("[r]etry • any other key to exit")
		}
		return successStyle.Render("Plan accepted.") + "\n\n" + helpStyle.Render("Press any key to exit")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			a.result = &Result{Cancelled: true, Tasks: a.input.Tasks()}
			return a, tea.Quit
		case tea.KeyCtrlD:
			tasks := a.input.Tasks()
			if a.planFn == nil {
				a.result = &Result{Tasks: tasks}
				return a, tea.Quit
			}
			a.state = loadingView
			return a, tea.Batch(a.spinner.Tick, a.requestPlan(tasks))
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

func (a *App) updatePlan(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "a", "enter":
			a.result = &Result{Tasks: a.input.Tasks(), Outcome: &Outcome{Plan: a.plan.plan, Source: a.plan.source}}
			a.state = confirmationView
			return a, nil
		case "r":
			a.state = inputView
			return a, a.input.textarea.Focus()
		case "q", "esc":
			a.result = &Result{Cancelled: true, Tasks: a.input.Tasks()}
			return a, tea.Quit
		case "up", "k":
			a.plan.up()
		case "down", "j":
			a.plan.down()
		}
	}
	return a, nil
}

func (a *App) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if a.errMsg != "" && keyMsg.String() == "r" {
			a.errMsg = ""
			a.state = inputView
			return a, a.input.textarea.Focus()
		}
		if a.result == nil {
			a.result = &Result{Cancelled: true, Tasks: a.input.Tasks()}
		}
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handlePlanResult(msg planResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.plan = newPlanModel(msg.outcome.Plan, msg.outcome.Source)
	a.state = planView
	return a, nil
}

func (a *App) requestPlan(tasks []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		outcome, err := a.planFn(ctx, tasks)
		return planResultMsg{outcome: outcome, err: err}
	}
}
