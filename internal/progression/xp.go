package progression

import (
	"time"

	"github.com/julianstephens/habitquest/internal/utils"
)

// XP rules. Nothing outside this package may restate these numbers.
const (
	XPPerHabit          = 10
	XPStreakBonus       = 5
	StreakBonusInterval = 5

	// StreakBreakDays is the calendar-day gap at which a streak is lost
	StreakBreakDays = 2
)

// Gain is the XP outcome of a single completion
type Gain struct {
	BaseXP    int `json:"base_xp"`
	BonusXP   int `json:"bonus_xp"`
	TotalXP   int `json:"total_xp"`
	NewStreak int `json:"new_streak"`
}

// XPGainForCompletion computes the XP earned by completing a habit whose streak is currentStreak.
// Every StreakBonusInterval-th consecutive day earns the streak bonus.
func XPGainForCompletion(currentStreak int) Gain {
	if currentStreak < 0 {
		currentStreak = 0
	}
	newStreak := currentStreak + 1

	bonus := 0
	if newStreak%StreakBonusInterval == 0 {
		bonus = XPStreakBonus
	}

	return Gain{
		BaseXP:    XPPerHabit,
		BonusXP:   bonus,
		TotalXP:   XPPerHabit + bonus,
		NewStreak: newStreak,
	}
}

// CanCompleteToday reports whether a habit last completed at last may be completed at now.
func CanCompleteToday(last *time.Time, now time.Time, loc *time.Location) bool {
	if last == nil {
		return true
	}
	return !utils.SameCalendarDay(now, *last, loc)
}

// ShouldResetStreak reports whether the gap since last has broken the streak.
// A single missed day is tolerated; a habit that was never completed has nothing to lose.
func ShouldResetStreak(last *time.Time, now time.Time, loc *time.Location) bool {
	if last == nil {
		return false
	}
	return utils.DaysBetween(now, *last, loc) >= StreakBreakDays
}
