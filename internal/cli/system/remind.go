package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitquest/internal/cli"
)

type RemindCmd struct {
	On     RemindOnCmd     `cmd:"" help:"Enable the daily reminder."`
	Off    RemindOffCmd    `cmd:"" help:"Disable the daily reminder."`
	Time   RemindTimeCmd   `cmd:"" help:"Set the daily reminder time (HH:MM)."`
	Status RemindStatusCmd `cmd:"" help:"Show reminder settings." default:"1"`
}

type RemindOnCmd struct{}

func (c *RemindOnCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator()
	id, err := coord.EnableReminders(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("✓ Daily reminder scheduled at %s (%s)\n", coord.ReminderTime(), id)
	fmt.Println("  Run 'habitquest notify' every minute (e.g. from cron) to deliver it.")
	return nil
}

type RemindOffCmd struct{}

func (c *RemindOffCmd) Run(ctx *cli.Context) error {
	if err := ctx.Coordinator().DisableReminders(context.Background()); err != nil {
		return err
	}
	fmt.Println("✓ Daily reminder disabled")
	return nil
}

type RemindTimeCmd struct {
	Time string `arg:"" help:"Reminder time in 24h HH:MM format."`
}

func (c *RemindTimeCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator()
	if err := coord.SetReminderTime(context.Background(), c.Time); err != nil {
		return err
	}
	fmt.Printf("✓ Reminder time set to %s\n", coord.ReminderTime())
	if !coord.RemindersEnabled(context.Background()) {
		fmt.Println("  Reminders are off; enable them with 'habitquest remind on'.")
	}
	return nil
}

type RemindStatusCmd struct{}

func (c *RemindStatusCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator()
	state := "off"
	if coord.RemindersEnabled(context.Background()) {
		state = "on"
	}
	fmt.Printf("Reminders: %s\n", state)
	fmt.Printf("Time:      %s\n", coord.ReminderTime())

	sched, err := ctx.Scheduler().Current(context.Background())
	if err != nil {
		return err
	}
	if sched != nil && sched.LastFiredAt != nil {
		fmt.Printf("Last sent: %s\n", sched.LastFiredAt.In(ctx.Location()).Format("2006-01-02 15:04"))
	}
	return nil
}
