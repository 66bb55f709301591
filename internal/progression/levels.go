package progression

import "math"

// MaxLevel is the highest reachable level
const MaxLevel = 5

// Threshold is the inclusive XP bracket of a level. The last bracket is open-ended.
type Threshold struct {
	Level int
	MinXP int
	MaxXP int
}

// Thresholds is the fixed level table, ordered by level.
var Thresholds = []Threshold{
	{Level: 1, MinXP: 0, MaxXP: 99},
	{Level: 2, MinXP: 100, MaxXP: 249},
	{Level: 3, MinXP: 250, MaxXP: 499},
	{Level: 4, MinXP: 500, MaxXP: 999},
	{Level: 5, MinXP: 1000, MaxXP: math.MaxInt},
}

// Info describes a level for display
type Info struct {
	Level int
	Title string
	Icon  string
}

var levelInfo = map[int]Info{
	1: {Level: 1, Title: "Beginner - start your journey!", Icon: "🌱"},
	2: {Level: 2, Title: "Apprentice - keep it up!", Icon: "🌿"},
	3: {Level: 3, Title: "Dedicated - you are growing!", Icon: "🌳"},
	4: {Level: 4, Title: "Experienced - almost at the top!", Icon: "⭐"},
	5: {Level: 5, Title: "Master - maximum level reached!", Icon: "👑"},
}

func init() {
	// The lookups below assume contiguous, ascending brackets starting at 0
	if len(Thresholds) != MaxLevel || Thresholds[0].MinXP != 0 {
		panic("progression: level table must start at 0 XP and cover every level")
	}
	for i := 1; i < len(Thresholds); i++ {
		if Thresholds[i].MinXP != Thresholds[i-1].MaxXP+1 || Thresholds[i].Level != Thresholds[i-1].Level+1 {
			panic("progression: level brackets must be contiguous and ascending")
		}
	}
}

// LevelForXP returns the level whose bracket contains xp. Negative XP is treated as 0.
func LevelForXP(xp int) int {
	for _, t := range Thresholds {
		if xp >= t.MinXP && xp <= t.MaxXP {
			return t.Level
		}
	}
	if xp < 0 {
		return 1
	}
	return MaxLevel
}

// MinXPForLevel returns the XP at which level starts. Levels are clamped to [1, MaxLevel].
func MinXPForLevel(level int) int {
	return Thresholds[clampLevel(level)-1].MinXP
}

// XPForNextLevel returns the XP needed to reach level+1, or false at the maximum level.
func XPForNextLevel(level int) (int, bool) {
	if level >= MaxLevel {
		return 0, false
	}
	return MinXPForLevel(level + 1), true
}

// LevelProgressPercent returns how far xp is through the current level's bracket, in [0, 100].
func LevelProgressPercent(xp, currentLevel int) float64 {
	if currentLevel >= MaxLevel {
		return 100
	}
	lo := MinXPForLevel(currentLevel)
	hi := MinXPForLevel(currentLevel + 1)

	pct := float64(xp-lo) / float64(hi-lo) * 100
	return math.Max(0, math.Min(100, pct))
}

// LevelInfo returns the display info for level, falling back to level 1.
func LevelInfo(level int) Info {
	return levelInfo[clampLevel(level)]
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
