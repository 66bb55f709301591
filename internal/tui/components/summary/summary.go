package summary

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/progression"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// Model renders level progress and dashboard statistics.
type Model struct {
	viewport viewport.Model
	bar      progress.Model
	Progress models.UserProgress
	Stats    models.Stats
	Top      []models.HabitView
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{
		viewport: viewport.New(width, height),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		Progress: models.DefaultProgress(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.bar.Width = min(40, max(10, width-10))
	m.Render()
}

func (m *Model) Set(p models.UserProgress, stats models.Stats, habits []models.HabitView) {
	m.Progress = p
	m.Stats = stats
	m.Top = progression.TopStreaks(habits, 3)
	m.Render()
}

// LevelLine is the one-line level summary shown above the habit list.
func (m Model) LevelLine() string {
	info := progression.LevelInfo(m.Progress.Level)
	line := fmt.Sprintf("%s Level %d  %d XP  ", info.Icon, info.Level, m.Progress.XP)
	return line + m.bar.ViewAs(progression.LevelProgressPercent(m.Progress.XP, m.Progress.Level)/100)
}

func (m *Model) Render() {
	var b strings.Builder
	info := progression.LevelInfo(m.Progress.Level)

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s Level %d: %s", info.Icon, info.Level, info.Title)))
	b.WriteString("\n\n")
	pct := progression.LevelProgressPercent(m.Progress.XP, m.Progress.Level)
	b.WriteString(m.bar.ViewAs(pct / 100))
	if next, ok := progression.XPForNextLevel(m.Progress.Level); ok {
		b.WriteString(fmt.Sprintf("\n%d / %d XP to level %d\n\n", m.Progress.XP, next, m.Progress.Level+1))
	} else {
		b.WriteString(fmt.Sprintf("\n%d XP, maximum level reached\n\n", m.Progress.XP))
	}

	rows := []struct {
		label string
		value string
	}{
		{"Completed today", fmt.Sprintf("%d/%d", m.Stats.CompletedToday, m.Stats.TotalHabits)},
		{"Completed this week", fmt.Sprint(m.Stats.CompletedThisWeek)},
		{"Active streaks", fmt.Sprint(m.Stats.ActiveStreaks)},
		{"Longest streak", fmt.Sprint(m.Stats.LongestStreak)},
		{"Total XP", fmt.Sprint(m.Stats.TotalXP)},
	}
	for _, r := range rows {
		b.WriteString(labelStyle.Render(r.label) + valueStyle.Render(r.value) + "\n")
	}

	if len(m.Top) > 0 && m.Top[0].Streak > 0 {
		b.WriteString("\n" + titleStyle.Render("Top streaks") + "\n")
		for _, h := range m.Top {
			if h.Streak == 0 {
				break
			}
			b.WriteString(fmt.Sprintf("  🔥 %s %d\n", labelStyle.Render(h.Name), h.Streak))
		}
	}
	m.viewport.SetContent(b.String())
}
