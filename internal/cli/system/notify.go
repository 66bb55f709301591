package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/coordinator"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/notifier"
)

type NotifyCmd struct {
	DryRun bool `help:"Print notifications to stdout instead of sending them."`
	Force  bool `help:"Send the reminder even if it is not due."`
}

// newSender is replaced in tests.
var newSender = func() notifier.Sender { return notifier.New() }

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	sched := ctx.Scheduler()
	now := ctx.Now()

	if !c.Force {
		due, err := sched.Due(bg, now, ctx.Location())
		if err != nil {
			return err
		}
		if !due {
			if c.DryRun {
				fmt.Println("No reminder due.")
			}
			return nil
		}
	}

	// Local-only session over the cached habit list.
	coord := coordinator.New(ctx.Repository(), nil, coordinator.WithClock(ctx.SessionClock()))
	if _, err := coord.Load(bg); err != nil {
		return err
	}
	msg := coord.Reminder()

	if c.DryRun {
		fmt.Println("[DryRun] " + msg.String())
	} else if err := newSender().Send(bg, msg); err != nil {
		if errors.Is(err, notifier.ErrTrayNotRunning) {
			logger.Debug("Tray app not running, reminder skipped")
			return nil
		}
		return fmt.Errorf("failed to send notification: %w", err)
	}

	if !c.Force {
		return sched.MarkFired(bg, now)
	}
	return nil
}
