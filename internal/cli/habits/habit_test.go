package habits

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/storage/memory"
	"github.com/julianstephens/habitquest/internal/utils"
)

func setupContext(t *testing.T, remoteMode string) (*cli.Context, *utils.FakeClock) {
	t.Helper()
	clock := utils.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := &cli.Context{
		Store:      memory.New(),
		Loc:        time.UTC,
		Clock:      clock,
		RemoteMode: remoteMode,
	}
	t.Cleanup(ctx.Finish)
	return ctx, clock
}

func TestHabitAddAndComplete(t *testing.T) {
	ctx, clock := setupContext(t, constants.RemoteOff)

	require.NoError(t, (&HabitAddCmd{Name: "  Drink water  "}).Run(ctx))
	snap := ctx.Coordinator().Snapshot()
	require.Len(t, snap.Habits, 1)
	assert.Equal(t, "Drink water", snap.Habits[0].Name)

	require.NoError(t, (&HabitCompleteCmd{Habit: "drink WATER"}).Run(ctx))
	snap = ctx.Coordinator().Snapshot()
	assert.True(t, snap.Habits[0].CompletedToday)
	assert.Equal(t, 1, snap.Habits[0].Streak)
	assert.Equal(t, 10, snap.Progress.XP)

	// A second completion on the same day is reported, not failed.
	require.NoError(t, (&HabitCompleteCmd{Habit: snap.Habits[0].ID}).Run(ctx))
	assert.Equal(t, 10, ctx.Coordinator().Snapshot().Progress.XP)

	clock.Advance(24 * time.Hour)
	require.NoError(t, (&HabitCompleteCmd{Habit: snap.Habits[0].ID}).Run(ctx))
	assert.Equal(t, 20, ctx.Coordinator().Snapshot().Progress.XP)
}

func TestHabitAddValidation(t *testing.T) {
	ctx, _ := setupContext(t, constants.RemoteOff)

	err := (&HabitAddCmd{Name: "ab"}).Run(ctx)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, ctx.Coordinator().Snapshot().Habits)
}

func TestHabitAddPrompt(t *testing.T) {
	ctx, _ := setupContext(t, constants.RemoteOff)
	prev := promptName
	t.Cleanup(func() { promptName = prev })

	promptName = func() (string, error) { return "Stretch", nil }
	require.NoError(t, (&HabitAddCmd{}).Run(ctx))
	require.Len(t, ctx.Coordinator().Snapshot().Habits, 1)

	promptName = func() (string, error) { return "", errors.New("no tty") }
	assert.Error(t, (&HabitAddCmd{}).Run(ctx))
}

func TestHabitCompleteUnknown(t *testing.T) {
	ctx, _ := setupContext(t, constants.RemoteOff)
	err := (&HabitCompleteCmd{Habit: "missing"}).Run(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReadOnlyCommands(t *testing.T) {
	ctx, clock := setupContext(t, constants.RemoteLocal)
	bg := context.Background()

	h, err := ctx.Coordinator().CreateHabit(bg, "Meditate")
	require.NoError(t, err)
	_, err = ctx.Coordinator().Complete(bg, h.ID)
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)

	assert.NoError(t, (&HabitListCmd{}).Run(ctx))
	assert.NoError(t, (&ProgressCmd{}).Run(ctx))
	assert.NoError(t, (&StatsCmd{}).Run(ctx))
	assert.NoError(t, (&HistoryCmd{Days: 7}).Run(ctx))
	assert.NoError(t, (&SyncCmd{}).Run(ctx))

	assert.ErrorIs(t, (&HistoryCmd{Days: 0}).Run(ctx), apperrors.ErrValidation)
}

func TestBar(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "[░░░░░░░░░░]"},
		{50, "[█████░░░░░]"},
		{100, "[██████████]"},
		{150, "[██████████]"},
		{-5, "[░░░░░░░░░░]"},
	}
	for _, tt := range tests {
		if got := bar(tt.pct, 10); got != tt.want {
			t.Errorf("bar(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestHistoryMonthCalendar(t *testing.T) {
	ctx, clock := setupContext(t, constants.RemoteOff)
	bg := context.Background()

	h, err := ctx.Coordinator().CreateHabit(bg, "Meditate")
	require.NoError(t, err)
	_, err = ctx.Coordinator().Complete(bg, h.ID)
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	_, err = ctx.Coordinator().Complete(bg, h.ID)
	require.NoError(t, err)

	assert.NoError(t, (&HistoryCmd{Days: 7, Habit: "meditate"}).Run(ctx))
	assert.NoError(t, (&HistoryCmd{Days: 7, Habit: h.ID, Month: "2025-05"}).Run(ctx))
	assert.ErrorIs(t, (&HistoryCmd{Days: 7, Habit: h.ID, Month: "May"}).Run(ctx), apperrors.ErrValidation)
	assert.ErrorIs(t, (&HistoryCmd{Days: 7, Habit: "missing"}).Run(ctx), apperrors.ErrNotFound)
}

func TestRenderMonth(t *testing.T) {
	// June 2025 starts on a Sunday.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	days := make([]bool, 30)
	days[0], days[1] = true, true

	out := renderMonth(start, days, start.AddDate(0, 0, 1))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, " Sun Mon Tue Wed Thu Fri Sat", lines[0])
	assert.Equal(t, "  1✓[ 2✓  3   4   5   6   7 ", lines[1])
	assert.Equal(t, " 29  30 ", lines[5])
	assert.Equal(t, "2 of 30 days completed", lines[6])
}
