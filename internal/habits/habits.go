// Package habits holds the pure state transitions of a habit: creation, the per-day
// normalize pass and the completion event.
package habits

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/utils"
)

// ValidateName trims name and checks its length bounds.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return "", apperrors.Validation("habit name cannot be empty")
	case n < constants.HabitNameMinLen:
		return "", apperrors.Validation("habit name must be at least %d characters", constants.HabitNameMinLen)
	case n > constants.HabitNameMaxLen:
		return "", apperrors.Validation("habit name must be at most %d characters", constants.HabitNameMaxLen)
	}
	return trimmed, nil
}

// New builds a fresh, never-completed habit.
func New(id, name string, now time.Time) (models.Habit, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return models.Habit{}, err
	}
	return models.Habit{
		ID:        id,
		Name:      trimmed,
		Streak:    0,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// Normalize projects h onto the calendar day of now: a broken streak is reset to 0 and
// CompletedToday is recomputed from LastCompletedDate. It is idempotent.
func Normalize(h models.Habit, now time.Time, loc *time.Location) models.HabitView {
	if h.Streak < 0 {
		h.Streak = 0
	}
	if progression.ShouldResetStreak(h.LastCompletedDate, now, loc) {
		h.Streak = 0
		return models.HabitView{Habit: h, CompletedToday: false}
	}

	completed := h.LastCompletedDate != nil && utils.SameCalendarDay(now, *h.LastCompletedDate, loc)
	return models.HabitView{Habit: h, CompletedToday: completed}
}

// NormalizeAll applies Normalize to every habit, preserving order.
func NormalizeAll(hs []models.Habit, now time.Time, loc *time.Location) []models.HabitView {
	views := make([]models.HabitView, len(hs))
	for i, h := range hs {
		views[i] = Normalize(h, now, loc)
	}
	return views
}

// AllCompletedToday reports whether there is at least one habit and every habit is done today.
func AllCompletedToday(views []models.HabitView) bool {
	if len(views) == 0 {
		return false
	}
	for _, v := range views {
		if !v.CompletedToday {
			return false
		}
	}
	return true
}
