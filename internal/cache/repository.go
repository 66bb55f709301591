// Package cache is the local, authoritative-while-offline copy of the user's habits,
// progress and completion log, persisted as JSON values in a storage.Store.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/storage"
	"github.com/julianstephens/habitquest/internal/utils"
)

// ownedKeys are removed by ClearAll. The notification schedule belongs to the
// scheduler and is cancelled through it.
var ownedKeys = []string{
	constants.KeyHabits,
	constants.KeyUserProgress,
	constants.KeyDailyRecords,
	constants.KeyNotificationTime,
	constants.KeyLastSync,
}

type Repository struct {
	store storage.Store
	loc   *time.Location
}

func New(store storage.Store, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.Local
	}
	return &Repository{store: store, loc: loc}
}

// Location is the time zone calendar days are evaluated in.
func (r *Repository) Location() *time.Location {
	return r.loc
}

// ReadHabits returns the stored habits normalized for now. A missing key is an empty
// list. A read or decode failure returns an empty list with an ErrStorage error; the
// stored value is left alone and must not be overwritten from that empty list.
func (r *Repository) ReadHabits(now time.Time) ([]models.HabitView, error) {
	var hs []models.Habit
	if err := storage.GetJSON(r.store, constants.KeyHabits, &hs); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return []models.HabitView{}, nil
		}
		return []models.HabitView{}, apperrors.Storage("load habits", err)
	}
	return habits.NormalizeAll(hs, now, r.loc), nil
}

// LoadHabits is ReadHabits for display: failures are logged and yield an empty list.
func (r *Repository) LoadHabits(now time.Time) []models.HabitView {
	views, err := r.ReadHabits(now)
	if err != nil {
		logger.Error("Failed to load habits", "error", err)
	}
	return views
}

func (r *Repository) SaveHabits(hs []models.Habit) error {
	return apperrors.Storage("save habits", storage.SetJSON(r.store, constants.KeyHabits, nonNil(hs)))
}

// ReadProgress returns the stored progress with its level re-derived from XP. A missing
// key is the default progress; a read or decode failure returns the default together
// with an ErrStorage error.
func (r *Repository) ReadProgress() (models.UserProgress, error) {
	var p models.UserProgress
	if err := storage.GetJSON(r.store, constants.KeyUserProgress, &p); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return models.DefaultProgress(), nil
		}
		return models.DefaultProgress(), apperrors.Storage("load progress", err)
	}
	if p.XP < 0 {
		p.XP = 0
	}
	p.Level = progression.LevelForXP(p.XP)
	return p, nil
}

// LoadProgress is ReadProgress for display: failures are logged and yield the default.
func (r *Repository) LoadProgress() models.UserProgress {
	p, err := r.ReadProgress()
	if err != nil {
		logger.Error("Failed to load progress", "error", err)
	}
	return p
}

func (r *Repository) SaveProgress(p models.UserProgress) error {
	p.Level = progression.LevelForXP(p.XP)
	return apperrors.Storage("save progress", storage.SetJSON(r.store, constants.KeyUserProgress, p))
}

// LoadDailyRecords returns the completion log, oldest first.
func (r *Repository) LoadDailyRecords() ([]models.DailyRecord, error) {
	var recs []models.DailyRecord
	if err := storage.GetJSON(r.store, constants.KeyDailyRecords, &recs); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return []models.DailyRecord{}, nil
		}
		return nil, apperrors.Storage("load daily records", err)
	}
	return recs, nil
}

// AppendDailyRecord adds rec to the log. A second record for the same habit on the
// same calendar day is rejected with ErrAlreadyCompletedToday.
func (r *Repository) AppendDailyRecord(rec models.DailyRecord) error {
	recs, err := r.LoadDailyRecords()
	if err != nil {
		return err
	}
	merged, err := r.mergeRecords(recs, rec)
	if err != nil {
		return err
	}
	return apperrors.Storage("append daily record", storage.SetJSON(r.store, constants.KeyDailyRecords, merged))
}

// CommitCompletion persists the post-completion habits, progress and the new records
// in one atomic write. Records already in the log (same id) are skipped so a retried
// commit is harmless.
func (r *Repository) CommitCompletion(hs []models.Habit, p models.UserProgress, recs ...models.DailyRecord) error {
	existing, err := r.LoadDailyRecords()
	if err != nil {
		return err
	}
	merged, err := r.mergeRecords(existing, recs...)
	if err != nil {
		return err
	}

	p.Level = progression.LevelForXP(p.XP)
	entries := map[string]any{
		constants.KeyHabits:       nonNil(hs),
		constants.KeyUserProgress: p,
		constants.KeyDailyRecords: merged,
	}
	return r.setMany("commit completion", entries)
}

// ReplaceAll overwrites habits and progress together, used when remote state wins.
func (r *Repository) ReplaceAll(hs []models.Habit, p models.UserProgress) error {
	p.Level = progression.LevelForXP(p.XP)
	return r.setMany("replace state", map[string]any{
		constants.KeyHabits:       nonNil(hs),
		constants.KeyUserProgress: p,
	})
}

func (r *Repository) setMany(op string, values map[string]any) error {
	entries := make(map[string]string, len(values))
	for key, v := range values {
		encoded, err := storage.EncodeJSON(key, v)
		if err != nil {
			return apperrors.Storage(op, err)
		}
		entries[key] = encoded
	}
	return apperrors.Storage(op, r.store.SetMany(entries))
}

func (r *Repository) mergeRecords(existing []models.DailyRecord, add ...models.DailyRecord) ([]models.DailyRecord, error) {
	merged := append([]models.DailyRecord{}, existing...)
	for _, rec := range add {
		dup := false
		for _, e := range merged {
			if e.ID == rec.ID {
				dup = true
				break
			}
			if e.HabitID == rec.HabitID && utils.SameCalendarDay(e.Date, rec.Date, r.loc) {
				return nil, fmt.Errorf("%w: habit %q already has a record for %s",
					apperrors.ErrAlreadyCompletedToday, rec.HabitID, rec.Date.In(r.loc).Format(constants.DateFormat))
			}
		}
		if !dup {
			merged = append(merged, rec)
		}
	}
	return merged, nil
}

// NotificationTime returns the preferred reminder time, defaulting to 20:00.
func (r *Repository) NotificationTime() string {
	v, err := r.store.Get(constants.KeyNotificationTime)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Warn("Failed to read notification time", "error", err)
		}
		return constants.DefaultNotificationTime
	}
	if !utils.ValidateTimeFormat(v) {
		logger.Warn("Ignoring malformed notification time", "value", v)
		return constants.DefaultNotificationTime
	}
	return v
}

func (r *Repository) SetNotificationTime(hhmm string) error {
	if !utils.ValidateTimeFormat(hhmm) {
		return apperrors.Validation("invalid time %q, expected HH:MM", hhmm)
	}
	return apperrors.Storage("save notification time", r.store.Set(constants.KeyNotificationTime, hhmm))
}

// LastSync returns when remote state was last applied, or nil if never.
func (r *Repository) LastSync() *time.Time {
	v, err := r.store.Get(constants.KeyLastSync)
	if err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		logger.Warn("Ignoring malformed last sync timestamp", "value", v)
		return nil
	}
	return &t
}

func (r *Repository) MarkSynced(t time.Time) error {
	return apperrors.Storage("mark synced", r.store.Set(constants.KeyLastSync, t.UTC().Format(time.RFC3339)))
}

// HasStoredData reports whether any habit or progress has been persisted.
func (r *Repository) HasStoredData() bool {
	for _, key := range []string{constants.KeyHabits, constants.KeyUserProgress} {
		if _, err := r.store.Get(key); err == nil {
			return true
		}
	}
	return false
}

// ClearAll removes every key this repository owns in one store operation.
func (r *Repository) ClearAll() error {
	return apperrors.Storage("clear local data", r.store.Remove(ownedKeys...))
}

func nonNil(hs []models.Habit) []models.Habit {
	if hs == nil {
		return []models.Habit{}
	}
	return hs
}
