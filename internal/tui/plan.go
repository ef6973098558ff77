package tui

import "github.com/christopherklint97/planr/internal/planner"

type planModel struct {
	plan   planner.Plan
	source planner.Source
	cursor int
}

func newPlanModel(plan planner.Plan, source planner.Source) planModel {
	return planModel{plan: plan, source: source}
}

func (m *planModel) up() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *planModel) down() {
	if m.cursor < len(m.plan.PlannedTasks)-1 {
		m.cursor++
	}
}

func (m planModel) View() string {
	return boxStyle.Render(planBody(m.plan, m.source, m.cursor)) + "\n" +
		helpStyle.Render("↑/↓: move • [a]ccept • [r]eplan • [q]uit")
}
