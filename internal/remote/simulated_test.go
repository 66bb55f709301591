package remote

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/storage/memory"
	"github.com/julianstephens/habitquest/internal/utils"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestSimulated(t *testing.T) *Simulated {
	t.Helper()
	n := 0
	return NewSimulated(memory.New(),
		WithLatency(0),
		WithClock(utils.NewFakeClock(epoch)),
		WithIDFunc(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func TestSimulatedHabitLifecycle(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulated(t)

	hs, err := sim.FetchHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, hs)

	h, err := sim.CreateHabit(ctx, "  Drink water ")
	require.NoError(t, err)
	assert.Equal(t, "id-1", h.ID)
	assert.Equal(t, "Drink water", h.Name)
	assert.True(t, h.Active)
	assert.Nil(t, h.LastCompletedDate)
	assert.True(t, h.CreatedAt.Equal(epoch))

	streak := 1
	done := epoch.Add(time.Hour)
	updated, err := sim.UpdateHabit(ctx, h.ID, models.HabitPatch{Streak: &streak, LastCompletedDate: &done})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Streak)
	assert.Equal(t, "Drink water", updated.Name, "unpatched fields are kept")

	_, err = sim.UpdateHabit(ctx, "nope", models.HabitPatch{Streak: &streak})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, sim.DeleteHabit(ctx, h.ID))
	require.NoError(t, sim.DeleteHabit(ctx, h.ID), "delete is idempotent")

	hs, err = sim.FetchHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, hs)
}

func TestSimulatedCreateRejectsInvalidName(t *testing.T) {
	_, err := newTestSimulated(t).CreateHabit(context.Background(), "ab")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSimulatedOffline(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulated(t)
	sim.SetOffline(true)

	_, err := sim.FetchHabits(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	_, err = sim.SaveProgress(ctx, models.UserProgress{XP: 10})
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.EqualValues(t, 2, sim.Calls())

	sim.SetOffline(false)
	_, err = sim.FetchHabits(ctx)
	assert.NoError(t, err)
}

func TestSimulatedLatencyHonoursContext(t *testing.T) {
	sim := NewSimulated(memory.New(), WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.FetchHabits(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestSimulatedDailyRecords(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulated(t)

	for i := 0; i < 3; i++ {
		_, err := sim.SaveDailyRecord(ctx, models.DailyRecord{
			ID:       fmt.Sprintf("r%d", i),
			HabitID:  "h",
			Date:     epoch.AddDate(0, 0, -i),
			XPGained: 10,
		})
		require.NoError(t, err)
	}

	// Replaying a record is a no-op.
	again, err := sim.SaveDailyRecord(ctx, models.DailyRecord{ID: "r0", HabitID: "h", Date: epoch, XPGained: 99})
	require.NoError(t, err)
	assert.Equal(t, 10, again.XPGained)

	generated, err := sim.SaveDailyRecord(ctx, models.DailyRecord{HabitID: "other", Date: epoch.AddDate(0, 0, -10)})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.False(t, generated.CompletedAt.IsZero(), "completion time is stamped when missing")

	all, err := sim.FetchDailyRecords(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	start := epoch.AddDate(0, 0, -1)
	ranged, err := sim.FetchDailyRecords(ctx, &start, &epoch)
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.ElementsMatch(t, []string{"r0", "r1"}, []string{ranged[0].ID, ranged[1].ID})
}

func TestSimulatedProgress(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulated(t)

	p, err := sim.FetchProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProgress(), p)

	saved, err := sim.SaveProgress(ctx, models.UserProgress{XP: 260, Level: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Level, "level is derived from xp")

	_, err = sim.SaveProgress(ctx, models.UserProgress{XP: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSimulatedClearAll(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulated(t)

	_, err := sim.CreateHabit(ctx, "Read a book")
	require.NoError(t, err)
	_, err = sim.SaveProgress(ctx, models.UserProgress{XP: 50})
	require.NoError(t, err)
	_, err = sim.SaveDailyRecord(ctx, models.DailyRecord{HabitID: "h", Date: epoch})
	require.NoError(t, err)

	require.NoError(t, sim.ClearAll(ctx))

	hs, _ := sim.FetchHabits(ctx)
	recs, _ := sim.FetchDailyRecords(ctx, nil, nil)
	p, _ := sim.FetchProgress(ctx)
	assert.Empty(t, hs)
	assert.Empty(t, recs)
	assert.Equal(t, models.DefaultProgress(), p)
}

func TestInRange(t *testing.T) {
	before := epoch.Add(-time.Hour)
	after := epoch.Add(time.Hour)

	assert.True(t, InRange(epoch, nil, nil))
	assert.True(t, InRange(epoch, &epoch, &epoch), "bounds are inclusive")
	assert.False(t, InRange(before, &epoch, nil))
	assert.False(t, InRange(after, nil, &epoch))
}
