package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// inputModel collects tasks one at a time. Enter appends the current text
// to the list instead of inserting a newline.
type inputModel struct {
	textarea textarea.Model
	header   string
	tasks    []string
}

func newInputModel(header string, tasks []string) inputModel {
	ta := textarea.New()
	ta.Placeholder = "What do you need to get done?"
	ta.Focus()
	ta.CharLimit = 500
	ta.SetWidth(60)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	return inputModel{
		textarea: ta,
		header:   header,
		tasks:    append([]string(nil), tasks...),
	}
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		if task := strings.TrimSpace(m.textarea.Value()); task != "" {
			m.tasks = append(m.tasks, task)
		}
		m.textarea.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("planr · Plan my day"))
	sb.WriteString("\n")
	sb.WriteString(subtitleStyle.Render(m.header))
	sb.WriteString("\n")

	if len(m.tasks) == 0 {
		sb.WriteString(dimStyle.Render("No tasks yet."))
		sb.WriteString("\n")
	}
	for i, t := range m.tasks {
		fmt.Fprintf(&sb, "%s %s\n", dimStyle.Render(fmt.Sprintf("%2d.", i+1)), t)
	}

	sb.WriteString("\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Enter: add task • Ctrl+D: plan • Esc: cancel"))
	return sb.String()
}

// Tasks returns the captured tasks, including any text still in the editor.
func (m inputModel) Tasks() []string {
	out := append([]string(nil), m.tasks...)
	if pending := strings.TrimSpace(m.textarea.Value()); pending != "" {
		out = append(out, pending)
	}
	if out == nil {
		out = []string{}
	}
	return out
}
