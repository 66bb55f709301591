// Package remote is the server-side copy of the user's data. Store is implemented by
// Simulated (a latency-injecting stand-in over a key-value store) and Client (JSON over
// HTTP to a Server wrapping any Store).
package remote

import (
	"context"
	"time"

	"github.com/julianstephens/habitquest/internal/models"
)

// Store is the remote collaborator. Transport and backend failures are reported as
// errors.ErrNetwork; unknown habit ids as errors.ErrNotFound.
type Store interface {
	FetchHabits(ctx context.Context) ([]models.Habit, error)
	// CreateHabit lets the server assign the id.
	CreateHabit(ctx context.Context, name string) (models.Habit, error)
	// UpdateHabit merges patch into the stored habit and returns the result.
	UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error)
	DeleteHabit(ctx context.Context, id string) error

	SaveDailyRecord(ctx context.Context, rec models.DailyRecord) (models.DailyRecord, error)
	// FetchDailyRecords returns records whose date lies in [start, end]; nil bounds are open.
	FetchDailyRecords(ctx context.Context, start, end *time.Time) ([]models.DailyRecord, error)

	FetchProgress(ctx context.Context) (models.UserProgress, error)
	SaveProgress(ctx context.Context, p models.UserProgress) (models.UserProgress, error)

	// ClearAll deletes every remote habit, record and the progress document.
	ClearAll(ctx context.Context) error
}

// InRange reports whether t lies within the optional closed interval [start, end].
func InRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}
