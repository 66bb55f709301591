package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/models"
)

func setupDebugContext(t *testing.T) *cli.Context {
	t.Helper()
	ctx, _, _ := setupMemoryContext(t)
	repo := ctx.Repository()
	require.NoError(t, repo.SaveHabits([]models.Habit{
		{ID: "habit-1", Name: "Read", Active: true, CreatedAt: epoch},
	}))
	require.NoError(t, repo.AppendDailyRecord(models.DailyRecord{
		ID: "rec-1", HabitID: "habit-1", Date: epoch, XPGained: 10, StreakAtCompletion: 1, CompletedAt: epoch,
	}))
	return ctx
}

func TestDebugDBPathCmd(t *testing.T) {
	ctx := setupDebugContext(t)
	assert.NoError(t, (&DebugDBPathCmd{}).Run(ctx))
}

func TestDebugDumpCmds(t *testing.T) {
	ctx := setupDebugContext(t)

	assert.NoError(t, (&DebugDumpHabitsCmd{}).Run(ctx))
	assert.NoError(t, (&DebugDumpProgressCmd{}).Run(ctx))
	assert.NoError(t, (&DebugDumpSettingsCmd{}).Run(ctx))
	assert.NoError(t, (&DebugDumpRecordsCmd{}).Run(ctx))
	assert.NoError(t, (&DebugDumpRecordsCmd{Date: "today"}).Run(ctx))
	assert.NoError(t, (&DebugDumpRecordsCmd{Date: "2025-06-01"}).Run(ctx))
}

func TestDebugDumpHabitCmd(t *testing.T) {
	ctx := setupDebugContext(t)

	assert.NoError(t, (&DebugDumpHabitCmd{Habit: "habit-1"}).Run(ctx))
	assert.NoError(t, (&DebugDumpHabitCmd{Habit: "Read"}).Run(ctx))
	assert.Error(t, (&DebugDumpHabitCmd{Habit: "missing"}).Run(ctx))
}

func TestDebugDumpRecordsCmd_InvalidDate(t *testing.T) {
	ctx := setupDebugContext(t)
	assert.Error(t, (&DebugDumpRecordsCmd{Date: "06/01/2025"}).Run(ctx))
}
