package tui

import (
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateHabits:
		content = docStyle.Render(m.habitList.View())
	case StateSummary:
		content = docStyle.Render(m.summary.View())
	case StateAddHabit:
		content = docStyle.Render(m.form.View())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.viewTabs(), "  ", m.viewConnection()),
		" "+m.summary.LevelLine(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Habits", "Progress"} {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewConnection() string {
	switch {
	case m.loading:
		return offlineStyle.Render("● syncing")
	case m.snap.Online:
		return onlineStyle.Render("● online")
	default:
		return offlineStyle.Render("● offline")
	}
}

func (m Model) viewStatus() string {
	if m.snap.Unsaved {
		return " " + dangerStyle.Render("Changes not saved locally, press s to retry")
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return " " + dangerStyle.Render(m.status)
	}
	return " " + successStyle.Render(m.status)
}
