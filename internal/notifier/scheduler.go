package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/storage"
	"github.com/julianstephens/habitquest/internal/utils"
)

// Scheduler manages the single daily reminder.
type Scheduler interface {
	// ScheduleDaily replaces any existing reminder with one firing every day at hhmm.
	ScheduleDaily(ctx context.Context, hhmm string) (string, error)
	CancelAll(ctx context.Context) error
	HasScheduled(ctx context.Context) bool
}

// Schedule is the persisted daily reminder.
type Schedule struct {
	ID          string     `json:"id"`
	Time        string     `json:"time"`
	CreatedAt   time.Time  `json:"created_at"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}

// StoreScheduler keeps the schedule in the key-value store. The reminder itself is
// delivered by `habitquest notify`, run periodically from cron or a systemd timer.
type StoreScheduler struct {
	store storage.Store
	clock utils.Clock
}

var _ Scheduler = (*StoreScheduler)(nil)

func NewStoreScheduler(store storage.Store, clock utils.Clock) *StoreScheduler {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &StoreScheduler{store: store, clock: clock}
}

func (s *StoreScheduler) ScheduleDaily(_ context.Context, hhmm string) (string, error) {
	if !utils.ValidateTimeFormat(hhmm) {
		return "", apperrors.Validation("invalid reminder time %q, expected HH:MM", hhmm)
	}
	sched := Schedule{
		ID:        uuid.NewString(),
		Time:      hhmm,
		CreatedAt: s.clock.Now(),
	}
	if err := storage.SetJSON(s.store, constants.KeyNotificationSchedule, sched); err != nil {
		return "", apperrors.Storage("schedule reminder", err)
	}
	return sched.ID, nil
}

func (s *StoreScheduler) CancelAll(_ context.Context) error {
	return apperrors.Storage("cancel reminders", s.store.Remove(constants.KeyNotificationSchedule))
}

func (s *StoreScheduler) HasScheduled(ctx context.Context) bool {
	sched, err := s.Current(ctx)
	return err == nil && sched != nil
}

// Current returns the stored schedule, or nil when none exists.
func (s *StoreScheduler) Current(_ context.Context) (*Schedule, error) {
	var sched Schedule
	if err := storage.GetJSON(s.store, constants.KeyNotificationSchedule, &sched); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, apperrors.Storage("load reminder schedule", err)
	}
	return &sched, nil
}

// Due reports whether the reminder should fire at now: the scheduled time has passed
// by less than the grace period and it has not fired yet on this calendar day.
func (s *StoreScheduler) Due(ctx context.Context, now time.Time, loc *time.Location) (bool, error) {
	sched, err := s.Current(ctx)
	if err != nil || sched == nil {
		return false, err
	}
	at, err := utils.TimeOnDay(sched.Time, now, loc)
	if err != nil {
		return false, fmt.Errorf("stored reminder time: %w", err)
	}
	if now.Before(at) || now.Sub(at) >= constants.NotifyGracePeriod {
		return false, nil
	}
	if sched.LastFiredAt != nil && utils.SameCalendarDay(*sched.LastFiredAt, now, loc) {
		return false, nil
	}
	return true, nil
}

// MarkFired records that the reminder went out at now.
func (s *StoreScheduler) MarkFired(ctx context.Context, now time.Time) error {
	sched, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if sched == nil {
		return nil
	}
	sched.LastFiredAt = &now
	return apperrors.Storage("mark reminder fired", storage.SetJSON(s.store, constants.KeyNotificationSchedule, sched))
}
