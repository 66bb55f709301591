package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitquest/internal/coordinator"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/tui/components/habitlist"
	"github.com/julianstephens/habitquest/internal/tui/components/summary"
	"github.com/julianstephens/habitquest/internal/utils"
)

type SessionState int

const (
	StateHabits SessionState = iota
	StateSummary
	StateAddHabit
)

// tabCount is the number of tabbed views; states from tabCount on are modal.
const tabCount = 2

type HabitFormModel struct {
	Name string
}

type snapshotMsg coordinator.Snapshot

type loadedMsg struct{ err error }

type completedMsg struct {
	done habits.Completion
	err  error
}

type createdMsg struct {
	habit models.HabitView
	err   error
}

type remindMsg struct {
	enabled bool
	at      string
	err     error
}

type Model struct {
	coord     *coordinator.Coordinator
	clock     utils.Clock
	loc       *time.Location
	snapshots <-chan coordinator.Snapshot
	cancel    func()

	state     SessionState
	keys      KeyMap
	help      help.Model
	habitList habitlist.Model
	summary   summary.Model
	form      *huh.Form
	habitForm *HabitFormModel

	snap      coordinator.Snapshot
	loading   bool
	status    string
	statusErr bool
	quitting  bool
	width     int
	height    int
}

// NewModel subscribes to coord; the subscription is released when the program quits.
func NewModel(coord *coordinator.Coordinator, clock utils.Clock, loc *time.Location) Model {
	if clock == nil {
		clock = utils.RealClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	ch, cancel := coord.Subscribe()
	m := Model{
		coord:     coord,
		clock:     clock,
		loc:       loc,
		snapshots: ch,
		cancel:    cancel,
		state:     StateHabits,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		habitList: habitlist.New(0, 0),
		summary:   summary.New(0, 0),
		loading:   true,
	}
	m.applySnapshot(coord.Snapshot())
	return m
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.state == StateHabits {
		keys = append(keys, m.keys.Complete, m.keys.Add)
	}
	return append(keys, m.keys.Sync, m.keys.Remind)
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down}
	actions := []key.Binding{m.keys.Sync, m.keys.Remind}
	if m.state == StateHabits {
		actions = append([]key.Binding{m.keys.Complete, m.keys.Add}, actions...)
	}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForSnapshot())
}

func (m *Model) applySnapshot(s coordinator.Snapshot) {
	m.snap = s
	m.habitList.SetHabits(s.Habits, m.clock.Now(), m.loc)
	m.summary.Set(s.Progress, m.coord.Stats(), s.Habits)
}

func (m Model) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func (m Model) load() tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		_, err := coord.Load(context.Background())
		return loadedMsg{err: err}
	}
}

func (m Model) complete(id string) tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		done, err := coord.Complete(context.Background(), id)
		return completedMsg{done: done, err: err}
	}
}

func (m Model) createHabit(name string) tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		h, err := coord.CreateHabit(context.Background(), name)
		return createdMsg{habit: h, err: err}
	}
}

func (m Model) toggleReminder() tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		ctx := context.Background()
		if coord.RemindersEnabled(ctx) {
			return remindMsg{enabled: false, err: coord.DisableReminders(ctx)}
		}
		_, err := coord.EnableReminders(ctx)
		return remindMsg{enabled: true, at: coord.ReminderTime(), err: err}
	}
}

func newHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("New habit").
				Placeholder("Read 10 pages").
				Validate(func(s string) error {
					_, err := habits.ValidateName(s)
					return err
				}).
				Value(&fm.Name),
		),
	)
}
