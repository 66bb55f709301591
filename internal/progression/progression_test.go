package progression

import (
	"testing"
	"time"

	"github.com/julianstephens/habitquest/internal/models"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{499, 3},
		{500, 4},
		{999, 4},
		{1000, 5},
		{1_000_000, 5},
		{-5, 1},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestLevelForXPMonotonicAndBounded(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 0; xp <= 2000; xp++ {
		lvl := LevelForXP(xp)
		if lvl < 1 || lvl > MaxLevel {
			t.Fatalf("LevelForXP(%d) = %d out of range", xp, lvl)
		}
		if lvl < prev {
			t.Fatalf("LevelForXP not monotonic at xp=%d: %d < %d", xp, lvl, prev)
		}
		prev = lvl
	}
}

func TestXPGainForCompletion(t *testing.T) {
	tests := []struct {
		name   string
		streak int
		want   Gain
	}{
		{
			name:   "first ever completion",
			streak: 0,
			want:   Gain{BaseXP: 10, BonusXP: 0, TotalXP: 10, NewStreak: 1},
		},
		{
			name:   "fifth day earns bonus",
			streak: 4,
			want:   Gain{BaseXP: 10, BonusXP: 5, TotalXP: 15, NewStreak: 5},
		},
		{
			name:   "sixth day no bonus",
			streak: 5,
			want:   Gain{BaseXP: 10, BonusXP: 0, TotalXP: 10, NewStreak: 6},
		},
		{
			name:   "tenth day earns bonus",
			streak: 9,
			want:   Gain{BaseXP: 10, BonusXP: 5, TotalXP: 15, NewStreak: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XPGainForCompletion(tt.streak); got != tt.want {
				t.Errorf("XPGainForCompletion(%d) = %+v, want %+v", tt.streak, got, tt.want)
			}
		})
	}
}

func TestXPGainProperties(t *testing.T) {
	for streak := 0; streak < 200; streak++ {
		g := XPGainForCompletion(streak)
		if g.NewStreak != streak+1 {
			t.Fatalf("streak %d: NewStreak = %d", streak, g.NewStreak)
		}
		if g.BonusXP != 0 && g.BonusXP != 5 {
			t.Fatalf("streak %d: BonusXP = %d", streak, g.BonusXP)
		}
		if (g.BonusXP == 5) != ((streak+1)%5 == 0) {
			t.Fatalf("streak %d: bonus mismatch", streak)
		}
		if g.TotalXP != g.BaseXP+g.BonusXP {
			t.Fatalf("streak %d: TotalXP = %d", streak, g.TotalXP)
		}
	}
}

func TestLevelUpBoundary(t *testing.T) {
	xp := 95 + XPGainForCompletion(0).TotalXP
	if xp != 105 {
		t.Fatalf("xp = %d, want 105", xp)
	}
	if LevelForXP(xp) != 2 {
		t.Errorf("LevelForXP(105) = %d, want 2", LevelForXP(xp))
	}
}

func TestLevelProgressPercent(t *testing.T) {
	tests := []struct {
		name  string
		xp    int
		level int
		want  float64
	}{
		{"start of level 1", 0, 1, 0},
		{"half of level 1", 50, 1, 50},
		{"start of level 2", 100, 2, 0},
		{"mid level 2", 175, 2, 50},
		{"level 4", 750, 4, 50},
		{"max level", 1200, 5, 100},
		{"stale level clamps high", 300, 1, 100},
		{"stale level clamps low", 10, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelProgressPercent(tt.xp, tt.level); got != tt.want {
				t.Errorf("LevelProgressPercent(%d, %d) = %v, want %v", tt.xp, tt.level, got, tt.want)
			}
		})
	}
}

func TestXPForNextLevel(t *testing.T) {
	if got, ok := XPForNextLevel(1); !ok || got != 100 {
		t.Errorf("XPForNextLevel(1) = %d, %v", got, ok)
	}
	if _, ok := XPForNextLevel(MaxLevel); ok {
		t.Error("XPForNextLevel(max) should report no next level")
	}
	if LevelInfo(0).Level != 1 || LevelInfo(9).Level != MaxLevel {
		t.Error("LevelInfo should clamp out-of-range levels")
	}
}

func TestCanCompleteToday(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 4, 10, 10, 0, 0, 0, loc)

	minus25h := now.Add(-25 * time.Hour)
	if !CanCompleteToday(nil, now, loc) {
		t.Error("CanCompleteToday(nil) = false, want true")
	}
	if CanCompleteToday(&now, now, loc) {
		t.Error("CanCompleteToday(now) = true, want false")
	}
	if !CanCompleteToday(&minus25h, now, loc) {
		t.Error("CanCompleteToday(now-25h) = false, want true on a different calendar day")
	}

	// 20 hours before 23:30 is still the same calendar day
	lateNight := time.Date(2025, 4, 10, 23, 30, 0, 0, loc)
	earlier := lateNight.Add(-20 * time.Hour)
	if CanCompleteToday(&earlier, lateNight, loc) {
		t.Error("CanCompleteToday() should be false when local midnight has not passed")
	}
}

func TestShouldResetStreak(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 4, 10, 10, 0, 0, 0, loc)

	oneDay := now.AddDate(0, 0, -1)
	twoDays := now.AddDate(0, 0, -2)
	threeDays := now.AddDate(0, 0, -3)

	if ShouldResetStreak(nil, now, loc) {
		t.Error("ShouldResetStreak(nil) = true, want false")
	}
	if ShouldResetStreak(&now, now, loc) {
		t.Error("ShouldResetStreak(now) = true, want false")
	}
	if ShouldResetStreak(&oneDay, now, loc) {
		t.Error("ShouldResetStreak(now-1d) = true, want false")
	}
	if !ShouldResetStreak(&twoDays, now, loc) {
		t.Error("ShouldResetStreak(now-2d) = false, want true")
	}
	if !ShouldResetStreak(&threeDays, now, loc) {
		t.Error("ShouldResetStreak(now-3d) = false, want true")
	}
}

func TestComputeStats(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 4, 10, 10, 0, 0, 0, loc)

	habits := []models.HabitView{
		{Habit: models.Habit{ID: "a", Streak: 3}, CompletedToday: true},
		{Habit: models.Habit{ID: "b", Streak: 0}},
		{Habit: models.Habit{ID: "c", Streak: 8}},
	}
	records := []models.DailyRecord{
		{HabitID: "a", Date: now},
		{HabitID: "c", Date: now.AddDate(0, 0, -1)},
		{HabitID: "c", Date: now.AddDate(0, 0, -6)},
		{HabitID: "c", Date: now.AddDate(0, 0, -7)},
	}

	got := ComputeStats(habits, records, models.UserProgress{XP: 120, Level: 2}, now, loc)
	want := models.Stats{
		TotalHabits:       3,
		ActiveStreaks:     2,
		LongestStreak:     8,
		CompletedToday:    1,
		CompletedThisWeek: 3,
		TotalXP:           120,
	}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}
}

func TestMonthCompletions(t *testing.T) {
	loc := time.UTC
	month := time.Date(2025, 2, 14, 12, 0, 0, 0, loc)
	records := []models.DailyRecord{
		{HabitID: "a", Date: time.Date(2025, 2, 1, 7, 0, 0, 0, loc)},
		{HabitID: "a", Date: time.Date(2025, 2, 14, 23, 0, 0, 0, loc)},
		{HabitID: "a", Date: time.Date(2025, 2, 28, 9, 0, 0, 0, loc)},
		{HabitID: "a", Date: time.Date(2025, 1, 31, 9, 0, 0, 0, loc)},
		{HabitID: "a", Date: time.Date(2025, 3, 1, 9, 0, 0, 0, loc)},
		{HabitID: "b", Date: time.Date(2025, 2, 2, 9, 0, 0, 0, loc)},
	}

	days := MonthCompletions(records, "a", month, loc)
	if len(days) != 28 {
		t.Fatalf("len(MonthCompletions()) = %d, want 28", len(days))
	}
	var got []int
	for i, done := range days {
		if done {
			got = append(got, i+1)
		}
	}
	want := []int{1, 14, 28}
	if len(got) != len(want) {
		t.Fatalf("completed days = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("completed days = %v, want %v", got, want)
			break
		}
	}

	// 23:00 UTC on the 14th is the 15th in UTC+3.
	plus3 := time.FixedZone("UTC+3", 3*60*60)
	shifted := MonthCompletions(records, "a", month, plus3)
	if shifted[13] || !shifted[14] {
		t.Errorf("MonthCompletions(UTC+3) day 14 = %v, day 15 = %v, want false, true", shifted[13], shifted[14])
	}
}

func TestTopStreaks(t *testing.T) {
	habits := []models.HabitView{
		{Habit: models.Habit{ID: "a", Streak: 1}},
		{Habit: models.Habit{ID: "b", Streak: 9}},
		{Habit: models.Habit{ID: "c", Streak: 4}},
		{Habit: models.Habit{ID: "d", Streak: 4}},
	}

	top := TopStreaks(habits, 3)
	ids := []string{top[0].ID, top[1].ID, top[2].ID}
	want := []string{"b", "c", "d"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("TopStreaks() ids = %v, want %v", ids, want)
			break
		}
	}
	if habits[0].ID != "a" {
		t.Error("TopStreaks() must not reorder its input")
	}
}
