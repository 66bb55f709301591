package models

import "time"

// Habit is the persisted habit record. The per-day completion flag is not part of it;
// see HabitView.
type Habit struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Streak            int        `json:"streak"`
	LastCompletedDate *time.Time `json:"last_completed_date"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
}

// HabitView is a Habit projected onto the current calendar day.
type HabitView struct {
	Habit
	CompletedToday bool `json:"completed_today"`
}

// HabitPatch is a partial habit update sent to the remote store.
// Nil fields are left unchanged.
type HabitPatch struct {
	Name              *string    `json:"name,omitempty"`
	Streak            *int       `json:"streak,omitempty"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
	Active            *bool      `json:"active,omitempty"`
}

// Apply returns a copy of h with the non-nil patch fields applied
func (p HabitPatch) Apply(h Habit) Habit {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Streak != nil {
		h.Streak = *p.Streak
	}
	if p.LastCompletedDate != nil {
		t := *p.LastCompletedDate
		h.LastCompletedDate = &t
	}
	if p.Active != nil {
		h.Active = *p.Active
	}
	return h
}

// Habits strips the derived fields from a list of views
func Habits(views []HabitView) []Habit {
	out := make([]Habit, len(views))
	for i, v := range views {
		out[i] = v.Habit
	}
	return out
}
