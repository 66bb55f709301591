package coordinator

import (
	"context"

	"github.com/julianstephens/habitquest/internal/notifier"
)

// EnableReminders schedules the daily reminder at the stored preferred time.
func (c *Coordinator) EnableReminders(ctx context.Context) (string, error) {
	if c.scheduler == nil {
		return "", ErrRemindersUnavailable
	}
	return c.scheduler.ScheduleDaily(ctx, c.repo.NotificationTime())
}

func (c *Coordinator) DisableReminders(ctx context.Context) error {
	if c.scheduler == nil {
		return ErrRemindersUnavailable
	}
	return c.scheduler.CancelAll(ctx)
}

func (c *Coordinator) RemindersEnabled(ctx context.Context) bool {
	return c.scheduler != nil && c.scheduler.HasScheduled(ctx)
}

func (c *Coordinator) ReminderTime() string {
	return c.repo.NotificationTime()
}

// SetReminderTime stores hhmm as the preferred time and moves an active reminder to it.
func (c *Coordinator) SetReminderTime(ctx context.Context, hhmm string) error {
	if err := c.repo.SetNotificationTime(hhmm); err != nil {
		return err
	}
	if c.RemindersEnabled(ctx) {
		if _, err := c.scheduler.ScheduleDaily(ctx, hhmm); err != nil {
			return err
		}
	}
	return nil
}

// Reminder builds the daily reminder: a nudge about the habits still open today, or a
// motivational message when none are.
func (c *Coordinator) Reminder() notifier.Message {
	remaining := 0
	for _, h := range c.Snapshot().Habits {
		if !h.CompletedToday {
			remaining++
		}
	}
	if msg, ok := notifier.PendingReminder(remaining); ok {
		return msg
	}
	return notifier.DailyReminder(nil)
}
