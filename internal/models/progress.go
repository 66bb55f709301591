package models

import "time"

// UserProgress is the singleton XP/level record. Level is always derived from XP.
type UserProgress struct {
	XP    int `json:"xp"`
	Level int `json:"level"`
}

// DefaultProgress is the progress of a fresh install
func DefaultProgress() UserProgress {
	return UserProgress{XP: 0, Level: 1}
}

// DailyRecord is an append-only log entry written for each accepted completion
type DailyRecord struct {
	ID                 string    `json:"id"`
	HabitID            string    `json:"habit_id"`
	Date               time.Time `json:"date"`
	XPGained           int       `json:"xp_gained"`
	StreakAtCompletion int       `json:"streak_at_completion"`
	CompletedAt        time.Time `json:"completed_at"`
}

// Stats is the dashboard summary derived from current state
type Stats struct {
	TotalHabits       int `json:"total_habits"`
	ActiveStreaks     int `json:"active_streaks"`
	LongestStreak     int `json:"longest_streak"`
	CompletedToday    int `json:"completed_today"`
	CompletedThisWeek int `json:"completed_this_week"`
	TotalXP           int `json:"total_xp"`
}
