package habits

import (
	"time"

	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/progression"
)

// Achievement identifies a milestone worth announcing to the user
type Achievement string

const (
	AchievementStreak5    Achievement = "streak_5"
	AchievementStreak10   Achievement = "streak_10"
	AchievementLevelUp    Achievement = "level_up"
	AchievementPerfectDay Achievement = "all_habits_completed"
)

// Completion is the outcome of an accepted completion event
type Completion struct {
	Habit        models.HabitView
	Progress     models.UserProgress
	Record       models.DailyRecord
	Gain         progression.Gain
	LeveledUp    bool
	Achievements []Achievement
}

// Complete marks h done at now. It fails with ErrAlreadyCompletedToday, leaving
// everything untouched, when h was already completed on the calendar day of now.
// The caller supplies recordID so the reducer stays free of side effects.
func Complete(h models.Habit, progress models.UserProgress, recordID string, now time.Time, loc *time.Location) (Completion, error) {
	if !progression.CanCompleteToday(h.LastCompletedDate, now, loc) {
		return Completion{}, apperrors.ErrAlreadyCompletedToday
	}

	gain := progression.XPGainForCompletion(h.Streak)

	completedAt := now
	h.Streak = gain.NewStreak
	h.LastCompletedDate = &completedAt

	prevLevel := progression.LevelForXP(progress.XP)
	next := models.UserProgress{XP: progress.XP + gain.TotalXP}
	next.Level = progression.LevelForXP(next.XP)

	c := Completion{
		Habit:    models.HabitView{Habit: h, CompletedToday: true},
		Progress: next,
		Record: models.DailyRecord{
			ID:                 recordID,
			HabitID:            h.ID,
			Date:               now,
			XPGained:           gain.TotalXP,
			StreakAtCompletion: gain.NewStreak,
			CompletedAt:        now,
		},
		Gain:      gain,
		LeveledUp: next.Level > prevLevel,
	}

	switch gain.NewStreak {
	case 5:
		c.Achievements = append(c.Achievements, AchievementStreak5)
	case 10:
		c.Achievements = append(c.Achievements, AchievementStreak10)
	}
	if c.LeveledUp {
		c.Achievements = append(c.Achievements, AchievementLevelUp)
	}

	return c, nil
}
