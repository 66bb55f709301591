package progression

import (
	"sort"
	"time"

	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/utils"
)

// weekDays is the window used for CompletedThisWeek, today included
const weekDays = 7

// ComputeStats derives the dashboard summary from the current habit views, the
// completion log and the user's progress.
func ComputeStats(habits []models.HabitView, records []models.DailyRecord, progress models.UserProgress, now time.Time, loc *time.Location) models.Stats {
	stats := models.Stats{
		TotalHabits: len(habits),
		TotalXP:     progress.XP,
	}

	for _, h := range habits {
		if h.Streak > 0 {
			stats.ActiveStreaks++
		}
		if h.Streak > stats.LongestStreak {
			stats.LongestStreak = h.Streak
		}
		if h.CompletedToday {
			stats.CompletedToday++
		}
	}

	for _, r := range records {
		if r.Date.After(now) {
			continue
		}
		if utils.DaysBetween(r.Date, now, loc) < weekDays {
			stats.CompletedThisWeek++
		}
	}

	return stats
}

// MonthCompletions reports for each day of month's calendar month whether habitID
// has a record on that day in loc. Index 0 is the 1st.
func MonthCompletions(records []models.DailyRecord, habitID string, month time.Time, loc *time.Location) []bool {
	start := utils.StartOfMonth(month, loc)
	days := make([]bool, utils.DaysInMonth(month, loc))
	for _, r := range records {
		if r.HabitID != habitID {
			continue
		}
		d := utils.StartOfDay(r.Date, loc)
		if d.Year() != start.Year() || d.Month() != start.Month() {
			continue
		}
		days[d.Day()-1] = true
	}
	return days
}

// TopStreaks returns up to n habits ordered by streak, longest first.
// Ties keep their original order.
func TopStreaks(habits []models.HabitView, n int) []models.HabitView {
	sorted := make([]models.HabitView, len(habits))
	copy(sorted, habits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Streak > sorted[j].Streak
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
