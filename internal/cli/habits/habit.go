package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/coordinator"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/utils"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	List     HabitListCmd     `cmd:"" help:"List habits and today's status."`
	Complete HabitCompleteCmd `cmd:"" help:"Complete a habit for today."`
}

type HabitAddCmd struct {
	Name string `arg:"" optional:"" help:"Habit name (prompted for when omitted)."`
}

// promptName asks for a habit name interactively; replaced in tests.
var promptName = func() (string, error) {
	var name string
	err := huh.NewInput().
		Title("Habit name").
		Placeholder("Drink water").
		Validate(func(s string) error {
			_, err := habits.ValidateName(s)
			return err
		}).
		Value(&name).
		Run()
	return name, err
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	name := c.Name
	if strings.TrimSpace(name) == "" {
		var err error
		if name, err = promptName(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}

	coord := ctx.Coordinator()
	if _, err := coord.Load(context.Background()); err != nil {
		return err
	}
	habit, err := coord.CreateHabit(context.Background(), name)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Added habit: %s (%s)\n", habit.Name, habit.ID)
	if !coord.Snapshot().Online {
		fmt.Println("  Saved locally; it will sync when the remote store is reachable.")
	}
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	snap, err := ctx.Coordinator().Load(context.Background())
	if err != nil {
		return err
	}

	if len(snap.Habits) == 0 {
		fmt.Println("No habits yet. Add one with 'habitquest habit add'.")
		return nil
	}

	now := ctx.Now()
	for _, h := range snap.Habits {
		mark := "[ ]"
		if h.CompletedToday {
			mark = "[✓]"
		}
		last := "never"
		if h.LastCompletedDate != nil {
			last = utils.RelativeLabel(*h.LastCompletedDate, now, ctx.Location())
		}
		fmt.Printf("%s %-30s streak %-3d last %-12s %s\n", mark, h.Name, h.Streak, last, h.ID)
	}
	if !snap.Online {
		fmt.Println("\n(offline: showing locally cached habits)")
	}
	return nil
}

type HabitCompleteCmd struct {
	Habit string `arg:"" help:"Habit ID or name."`
}

func (c *HabitCompleteCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator()
	if _, err := coord.Load(context.Background()); err != nil {
		return err
	}
	habit, err := coord.Find(c.Habit)
	if err != nil {
		return err
	}

	done, err := coord.Complete(context.Background(), habit.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyCompletedToday) {
			fmt.Printf("%s is already completed today. Come back tomorrow!\n", habit.Name)
			return nil
		}
		if errors.Is(err, apperrors.ErrStorage) {
			fmt.Println("⚠️  Completion kept in memory but could not be saved locally.")
		}
		return err
	}

	fmt.Printf("✓ %s completed! +%d XP (streak %d)\n", done.Habit.Name, done.Gain.TotalXP, done.Habit.Streak)
	if done.Gain.BonusXP > 0 {
		fmt.Printf("  Includes a %d XP streak bonus\n", done.Gain.BonusXP)
	}
	if done.LeveledUp {
		info := progression.LevelInfo(done.Progress.Level)
		fmt.Printf("%s Level up! You reached level %d: %s\n", info.Icon, info.Level, info.Title)
	}
	for _, a := range done.Achievements {
		if a == habits.AchievementPerfectDay {
			fmt.Println("🎉 Perfect day: every habit completed!")
		}
	}
	return nil
}

// ProgressCmd shows XP and level.
type ProgressCmd struct{}

func (c *ProgressCmd) Run(ctx *cli.Context) error {
	snap, err := ctx.Coordinator().Load(context.Background())
	if err != nil {
		return err
	}
	p := snap.Progress
	info := progression.LevelInfo(p.Level)

	fmt.Printf("%s Level %d: %s\n", info.Icon, info.Level, info.Title)
	fmt.Printf("XP: %d\n", p.XP)
	if next, ok := progression.XPForNextLevel(p.Level); ok {
		pct := progression.LevelProgressPercent(p.XP, p.Level)
		fmt.Printf("Progress: %s %.0f%% (%d XP to level %d)\n", bar(pct, 20), pct, next-p.XP, p.Level+1)
	} else {
		fmt.Println("Maximum level reached.")
	}
	return nil
}

func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator()
	snap, err := coord.Load(context.Background())
	if err != nil {
		return err
	}
	s := coord.Stats()

	fmt.Printf("Habits:              %d\n", s.TotalHabits)
	fmt.Printf("Completed today:     %d/%d\n", s.CompletedToday, s.TotalHabits)
	fmt.Printf("Completed this week: %d\n", s.CompletedThisWeek)
	fmt.Printf("Active streaks:      %d\n", s.ActiveStreaks)
	fmt.Printf("Longest streak:      %d\n", s.LongestStreak)
	fmt.Printf("Total XP:            %d\n", s.TotalXP)

	top := progression.TopStreaks(snap.Habits, 3)
	if len(top) > 0 && top[0].Streak > 0 {
		fmt.Println("\nTop streaks:")
		for _, h := range top {
			if h.Streak == 0 {
				break
			}
			fmt.Printf("  🔥 %-30s %d\n", h.Name, h.Streak)
		}
	}
	return nil
}

type HistoryCmd struct {
	Days  int    `help:"Number of days to show, including today." default:"7"`
	Habit string `help:"Show a month calendar for this habit (ID or name)."`
	Month string `help:"Month for --habit (YYYY-MM). Defaults to the current month."`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	if c.Days < 1 {
		return apperrors.Validation("--days must be at least 1")
	}
	coord := ctx.Coordinator()
	snap, err := coord.Load(context.Background())
	if err != nil {
		return err
	}
	if c.Habit != "" {
		return c.runMonth(ctx, coord)
	}

	now := ctx.Now()
	days := utils.LastNDays(now, c.Days, ctx.Location())
	start := days[0]
	end := utils.EndOfDay(now, ctx.Location())
	records, err := coord.History(context.Background(), &start, &end)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(snap.Habits))
	for _, h := range snap.Habits {
		names[h.ID] = h.Name
	}

	if len(records) == 0 {
		fmt.Printf("No completions in the last %d day(s).\n", c.Days)
		return nil
	}
	for _, day := range days {
		var lines []string
		xp := 0
		for _, r := range records {
			if !utils.SameCalendarDay(r.Date, day, ctx.Location()) {
				continue
			}
			name, ok := names[r.HabitID]
			if !ok {
				name = r.HabitID
			}
			xp += r.XPGained
			lines = append(lines, fmt.Sprintf("    %-30s +%d XP (streak %d)", name, r.XPGained, r.StreakAtCompletion))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Printf("%s (%s) +%d XP\n", day.Format(constants.DateFormat), utils.RelativeLabel(day, now, ctx.Location()), xp)
		fmt.Println(strings.Join(lines, "\n"))
	}
	return nil
}

func (c *HistoryCmd) runMonth(ctx *cli.Context, coord *coordinator.Coordinator) error {
	habit, err := coord.Find(c.Habit)
	if err != nil {
		return err
	}

	loc := ctx.Location()
	month := ctx.Now()
	if c.Month != "" {
		if month, err = time.ParseInLocation(constants.MonthFormat, c.Month, loc); err != nil {
			return apperrors.Validation("invalid month %q (expected YYYY-MM)", c.Month)
		}
	}
	start := utils.StartOfMonth(month, loc)
	end := utils.EndOfDay(start.AddDate(0, 1, -1), loc)
	records, err := coord.History(context.Background(), &start, &end)
	if err != nil {
		return err
	}

	days := progression.MonthCompletions(records, habit.ID, start, loc)
	fmt.Printf("%s, %s\n", habit.Name, start.Format("January 2006"))
	fmt.Print(renderMonth(start, days, utils.StartOfDay(ctx.Now(), loc)))
	return nil
}

// renderMonth lays days out as a Sunday-first grid. Completed days carry a ✓ and
// today is bracketed.
func renderMonth(start time.Time, days []bool, today time.Time) string {
	var b strings.Builder
	b.WriteString(" Sun Mon Tue Wed Thu Fri Sat\n")
	col := int(start.Weekday())
	b.WriteString(strings.Repeat("    ", col))

	done := 0
	for i, completed := range days {
		mark := " "
		if completed {
			mark = "✓"
			done++
		}
		day := start.AddDate(0, 0, i)
		if day.Equal(today) {
			fmt.Fprintf(&b, "[%2d%s", i+1, mark)
		} else {
			fmt.Fprintf(&b, " %2d%s", i+1, mark)
		}
		col++
		if col == 7 && i < len(days)-1 {
			b.WriteString("\n")
			col = 0
		}
	}
	fmt.Fprintf(&b, "\n%d of %d days completed\n", done, len(days))
	return b.String()
}

type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator()
	snap, err := coord.Load(context.Background())
	if err != nil {
		return err
	}
	if !snap.Online {
		fmt.Printf("⚠️  Remote store unreachable; working offline with %d cached habit(s).\n", len(snap.Habits))
		return nil
	}
	fmt.Printf("✓ Synced %d habit(s)\n", len(snap.Habits))
	if snap.LastSync != nil {
		fmt.Printf("  Last sync: %s\n", snap.LastSync.In(ctx.Location()).Format("2006-01-02 15:04:05"))
	}
	return nil
}
