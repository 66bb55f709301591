package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/utils"
)

type DebugCmd struct {
	DBPath       DebugDBPathCmd       `cmd:"" help:"Show database path."`
	DumpHabits   DebugDumpHabitsCmd   `cmd:"" help:"Dump habit data as JSON."`
	DumpHabit    DebugDumpHabitCmd    `cmd:"" help:"Dump a single habit as JSON."`
	DumpProgress DebugDumpProgressCmd `cmd:"" help:"Dump XP and level as JSON."`
	DumpRecords  DebugDumpRecordsCmd  `cmd:"" help:"Dump the completion log as JSON."`
	DumpSettings DebugDumpSettingsCmd `cmd:"" help:"Dump settings data as JSON."`
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

type DebugDumpHabitsCmd struct{}

func (cmd *DebugDumpHabitsCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx.Repository().LoadHabits(ctx.Now()))
}

type DebugDumpHabitCmd struct {
	Habit string `arg:"" help:"Habit ID or name."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *cli.Context) error {
	for _, h := range ctx.Repository().LoadHabits(ctx.Now()) {
		if h.ID == cmd.Habit || h.Name == cmd.Habit {
			return printJSON(h)
		}
	}
	return fmt.Errorf("habit not found: %s", cmd.Habit)
}

type DebugDumpProgressCmd struct{}

func (cmd *DebugDumpProgressCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx.Repository().LoadProgress())
}

type DebugDumpRecordsCmd struct {
	Date string `help:"Only records for this day (YYYY-MM-DD or 'today')."`
}

func (cmd *DebugDumpRecordsCmd) Run(ctx *cli.Context) error {
	recs, err := ctx.Repository().LoadDailyRecords()
	if err != nil {
		return err
	}
	if cmd.Date == "" {
		return printJSON(recs)
	}

	date := cmd.Date
	if date == "today" {
		date = ctx.Now().Format(constants.DateFormat)
	}
	day, err := utils.ParseDate(date, ctx.Location())
	if err != nil {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD or 'today')", cmd.Date)
	}

	filtered := recs[:0]
	for _, rec := range recs {
		if utils.SameCalendarDay(rec.Date, day, ctx.Location()) {
			filtered = append(filtered, rec)
		}
	}
	return printJSON(filtered)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	repo := ctx.Repository()
	schedule, err := ctx.Scheduler().Current(context.Background())
	if err != nil {
		return err
	}
	settings := map[string]any{
		"notification_time": repo.NotificationTime(),
		"schedule":          schedule,
		"timezone":          ctx.Location().String(),
		"remote":            ctx.RemoteMode,
		"last_sync":         repo.LastSync(),
	}
	return printJSON(settings)
}
