package coordinator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/notifier"
)

// replication is the remote payload of one completion, captured at commit time.
type replication struct {
	habit    models.Habit
	record   models.DailyRecord
	progress models.UserProgress
}

func (c *Coordinator) replicate(ctx context.Context, ticket uint64, job replication, done habits.Completion) {
	defer c.wg.Done()

	c.announce(ctx, done)

	c.awaitTurn(ticket)
	defer c.endTurn()
	if c.remote == nil {
		return
	}
	// A remote call that never returns must not hold up the replications queued behind it.
	ctx, cancel := context.WithTimeout(ctx, c.replTimeout)
	defer cancel()

	patch := models.HabitPatch{
		Streak:            &job.habit.Streak,
		LastCompletedDate: job.habit.LastCompletedDate,
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := c.remote.UpdateHabit(ctx, job.habit.ID, patch)
		return err
	})
	g.Go(func() error {
		_, err := c.remote.SaveDailyRecord(ctx, job.record)
		return err
	})
	g.Go(func() error {
		_, err := c.remote.SaveProgress(ctx, job.progress)
		return err
	})

	err := g.Wait()
	switch {
	case err == nil:
		c.setOnline(true)
	case errors.Is(err, apperrors.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Replication failed, working offline", "habit", job.habit.ID, "error", err)
		c.setOnline(false)
	default:
		// Reachable but rejected, e.g. a habit created while offline is unknown remotely.
		logger.Warn("Replication rejected", "habit", job.habit.ID, "error", err)
	}
}

func (c *Coordinator) awaitTurn(ticket uint64) {
	c.replMu.Lock()
	for c.replNext != ticket {
		c.replCond.Wait()
	}
	c.replMu.Unlock()
}

func (c *Coordinator) endTurn() {
	c.replMu.Lock()
	c.replNext++
	c.replMu.Unlock()
	c.replCond.Broadcast()
}

// announce delivers achievement messages. Delivery failures are only logged.
func (c *Coordinator) announce(ctx context.Context, done habits.Completion) {
	for _, a := range done.Achievements {
		msg, ok := notifier.AchievementMessage(a, done.Progress.Level)
		if !ok {
			continue
		}
		if err := c.sender.Send(ctx, msg); err != nil {
			logger.Debug("Achievement notification not delivered", "achievement", a, "error", err)
		}
	}
}
