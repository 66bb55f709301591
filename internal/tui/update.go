package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitquest/internal/coordinator"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/tui/components/habitlist"
)

// chromeHeight is the space taken by the tabs, level line, status and help rows.
const chromeHeight = 7

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateAddHabit {
		return m.updateAddHabit(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		m.habitList.SetSize(msg.Width-h, msg.Height-v-chromeHeight)
		m.summary.SetSize(msg.Width-h, msg.Height-v-chromeHeight)
		return m, nil

	case snapshotMsg:
		m.applySnapshot(coordinator.Snapshot(msg))
		return m, m.waitForSnapshot()

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case completedMsg:
		m.handleCompleted(msg)
		return m, nil

	case createdMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(fmt.Sprintf("Added %s", msg.habit.Name))
		}
		return m, nil

	case remindMsg:
		switch {
		case msg.err != nil:
			m.setError(msg.err)
		case msg.enabled:
			m.setStatus(fmt.Sprintf("Daily reminder on at %s", msg.at))
		default:
			m.setStatus("Daily reminder off")
		}
		return m, nil

	case habitlist.CompleteHabitMsg:
		return m, m.complete(msg.ID)

	case habitlist.AddHabitMsg:
		m.habitForm = &HabitFormModel{}
		m.form = newHabitForm(m.habitForm)
		m.state = StateAddHabit
		return m, m.form.Init()

	case tea.KeyMsg:
		if m.state == StateHabits && m.habitList.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Sync):
			m.loading = true
			m.setStatus("Syncing...")
			return m, m.load()
		case key.Matches(msg, m.keys.Remind):
			return m, m.toggleReminder()
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateHabits:
		m.habitList, cmd = m.habitList.Update(msg)
	case StateSummary:
		m.summary, cmd = m.summary.Update(msg)
	}
	return m, cmd
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateHabits
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		m.state = StateHabits
		cmds = append(cmds, m.createHabit(m.habitForm.Name))
	case huh.StateAborted:
		m.state = StateHabits
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleCompleted(msg completedMsg) {
	switch {
	case errors.Is(msg.err, apperrors.ErrAlreadyCompletedToday):
		m.setStatus("Already completed today. Come back tomorrow!")
		return
	case msg.err != nil:
		m.setError(msg.err)
		return
	}

	done := msg.done
	status := fmt.Sprintf("✓ %s +%d XP (streak %d)", done.Habit.Name, done.Gain.TotalXP, done.Habit.Streak)
	if done.LeveledUp {
		info := progression.LevelInfo(done.Progress.Level)
		status += fmt.Sprintf("  %s Level up! Level %d", info.Icon, info.Level)
	}
	for _, a := range done.Achievements {
		if a == habits.AchievementPerfectDay {
			status += "  🎉 Perfect day!"
		}
	}
	m.setStatus(status)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = apperrors.Format(err)
	m.statusErr = true
}
