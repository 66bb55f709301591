package habitlist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/utils"
)

type AddHabitMsg struct{}

type CompleteHabitMsg struct {
	ID string
}

type Item struct {
	Habit models.HabitView
	// Last is the relative label of the last completion, "" when never completed.
	Last string
}

func (i Item) Title() string {
	if i.Habit.CompletedToday {
		return "✓ " + i.Habit.Name
	}
	return "○ " + i.Habit.Name
}

func (i Item) Description() string {
	desc := fmt.Sprintf("🔥 %d day streak", i.Habit.Streak)
	if i.Habit.CompletedToday {
		return desc + " | completed today"
	}
	if i.Last != "" {
		desc += " | last " + i.Last
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Add      key.Binding
	Complete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Complete: key.NewBinding(
			key.WithKeys("enter", " ", "c"),
			key.WithHelp("enter", "complete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // We handle help globally in the main model

	return Model{list: l, keys: DefaultKeyMap()}
}

// SetHabits replaces the items, keeping the cursor on the same habit when it still exists.
func (m *Model) SetHabits(habits []models.HabitView, now time.Time, loc *time.Location) {
	selected := ""
	if i, ok := m.list.SelectedItem().(Item); ok {
		selected = i.Habit.ID
	}

	items := make([]list.Item, len(habits))
	cursor := -1
	for idx, h := range habits {
		item := Item{Habit: h}
		if h.LastCompletedDate != nil {
			item.Last = utils.RelativeLabel(*h.LastCompletedDate, now, loc)
		}
		items[idx] = item
		if h.ID == selected {
			cursor = idx
		}
	}
	m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
}

func (m Model) Selected() (models.HabitView, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Habit, ok
}

// Filtering reports whether the user is typing a filter query.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Complete):
			if i, ok := m.list.SelectedItem().(Item); ok && !i.Habit.CompletedToday {
				return m, func() tea.Msg { return CompleteHabitMsg{ID: i.Habit.ID} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
