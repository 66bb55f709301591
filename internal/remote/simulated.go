package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/storage"
	"github.com/julianstephens/habitquest/internal/utils"
)

// ErrOffline is the cause reported while a Simulated store is switched off.
var ErrOffline = errors.New("remote store unreachable")

// Simulated keeps remote state in a storage.Store under the api_* keys and delays every
// call to mimic a network round trip.
type Simulated struct {
	store   storage.Store
	latency time.Duration
	clock   utils.Clock
	newID   func() string

	mu      sync.Mutex
	offline atomic.Bool
	calls   atomic.Int64
}

var _ Store = (*Simulated)(nil)

type SimulatedOption func(*Simulated)

// WithLatency sets the artificial delay applied to every call.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

func WithClock(c utils.Clock) SimulatedOption {
	return func(s *Simulated) { s.clock = c }
}

func WithIDFunc(f func() string) SimulatedOption {
	return func(s *Simulated) { s.newID = f }
}

func NewSimulated(store storage.Store, opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		store:   store,
		latency: constants.SimulatedNetworkDelay,
		clock:   utils.RealClock{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOffline makes every subsequent call fail with ErrNetwork until switched back.
func (s *Simulated) SetOffline(offline bool) {
	s.offline.Store(offline)
}

// Calls returns how many operations have been attempted, failed ones included.
func (s *Simulated) Calls() int64 {
	return s.calls.Load()
}

func (s *Simulated) roundTrip(ctx context.Context, op string) error {
	s.calls.Add(1)
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return apperrors.Network(op, ctx.Err())
		case <-timer.C:
		}
	}
	if s.offline.Load() {
		return apperrors.Network(op, ErrOffline)
	}
	return nil
}

func (s *Simulated) loadHabits() ([]models.Habit, error) {
	var hs []models.Habit
	if err := storage.GetJSON(s.store, constants.KeyRemoteHabits, &hs); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return []models.Habit{}, nil
		}
		return nil, err
	}
	return hs, nil
}

func (s *Simulated) loadRecords() ([]models.DailyRecord, error) {
	var recs []models.DailyRecord
	if err := storage.GetJSON(s.store, constants.KeyRemoteDailyRecords, &recs); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return []models.DailyRecord{}, nil
		}
		return nil, err
	}
	return recs, nil
}

func (s *Simulated) FetchHabits(ctx context.Context) ([]models.Habit, error) {
	if err := s.roundTrip(ctx, "fetch habits"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.loadHabits()
	return hs, apperrors.Network("fetch habits", err)
}

func (s *Simulated) CreateHabit(ctx context.Context, name string) (models.Habit, error) {
	if err := s.roundTrip(ctx, "create habit"); err != nil {
		return models.Habit{}, err
	}

	h, err := habits.New(s.newID(), name, s.clock.Now())
	if err != nil {
		return models.Habit{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.loadHabits()
	if err != nil {
		return models.Habit{}, apperrors.Network("create habit", err)
	}
	hs = append(hs, h)
	if err := storage.SetJSON(s.store, constants.KeyRemoteHabits, hs); err != nil {
		return models.Habit{}, apperrors.Network("create habit", err)
	}
	return h, nil
}

func (s *Simulated) UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error) {
	if err := s.roundTrip(ctx, "update habit"); err != nil {
		return models.Habit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.loadHabits()
	if err != nil {
		return models.Habit{}, apperrors.Network("update habit", err)
	}
	for i := range hs {
		if hs[i].ID != id {
			continue
		}
		hs[i] = patch.Apply(hs[i])
		if err := storage.SetJSON(s.store, constants.KeyRemoteHabits, hs); err != nil {
			return models.Habit{}, apperrors.Network("update habit", err)
		}
		return hs[i], nil
	}
	return models.Habit{}, apperrors.NotFound("habit", id)
}

// DeleteHabit is idempotent: deleting an unknown id succeeds.
func (s *Simulated) DeleteHabit(ctx context.Context, id string) error {
	if err := s.roundTrip(ctx, "delete habit"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.loadHabits()
	if err != nil {
		return apperrors.Network("delete habit", err)
	}
	kept := hs[:0]
	for _, h := range hs {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	return apperrors.Network("delete habit", storage.SetJSON(s.store, constants.KeyRemoteHabits, kept))
}

// SaveDailyRecord appends rec. A record whose id is already stored is returned as is,
// so replaying a replication is harmless.
func (s *Simulated) SaveDailyRecord(ctx context.Context, rec models.DailyRecord) (models.DailyRecord, error) {
	if err := s.roundTrip(ctx, "save daily record"); err != nil {
		return models.DailyRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.loadRecords()
	if err != nil {
		return models.DailyRecord{}, apperrors.Network("save daily record", err)
	}

	if rec.ID == "" {
		rec.ID = s.newID()
	}
	for _, existing := range recs {
		if existing.ID == rec.ID {
			return existing, nil
		}
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.clock.Now()
	}
	if rec.StreakAtCompletion < 0 {
		rec.StreakAtCompletion = 0
	}

	recs = append(recs, rec)
	if err := storage.SetJSON(s.store, constants.KeyRemoteDailyRecords, recs); err != nil {
		return models.DailyRecord{}, apperrors.Network("save daily record", err)
	}
	return rec, nil
}

func (s *Simulated) FetchDailyRecords(ctx context.Context, start, end *time.Time) ([]models.DailyRecord, error) {
	if err := s.roundTrip(ctx, "fetch daily records"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.loadRecords()
	if err != nil {
		return nil, apperrors.Network("fetch daily records", err)
	}
	out := make([]models.DailyRecord, 0, len(recs))
	for _, r := range recs {
		if InRange(r.Date, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Simulated) FetchProgress(ctx context.Context) (models.UserProgress, error) {
	if err := s.roundTrip(ctx, "fetch progress"); err != nil {
		return models.UserProgress{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var p models.UserProgress
	if err := storage.GetJSON(s.store, constants.KeyRemoteUserProgress, &p); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return models.DefaultProgress(), nil
		}
		return models.UserProgress{}, apperrors.Network("fetch progress", err)
	}
	p.Level = progression.LevelForXP(p.XP)
	return p, nil
}

func (s *Simulated) SaveProgress(ctx context.Context, p models.UserProgress) (models.UserProgress, error) {
	if err := s.roundTrip(ctx, "save progress"); err != nil {
		return models.UserProgress{}, err
	}
	if p.XP < 0 {
		return models.UserProgress{}, apperrors.Validation("xp cannot be negative: %d", p.XP)
	}
	p.Level = progression.LevelForXP(p.XP)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.SetJSON(s.store, constants.KeyRemoteUserProgress, p); err != nil {
		return models.UserProgress{}, apperrors.Network("save progress", err)
	}
	return p, nil
}

func (s *Simulated) ClearAll(ctx context.Context) error {
	if err := s.roundTrip(ctx, "clear remote data"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Remove(constants.KeyRemoteHabits, constants.KeyRemoteUserProgress, constants.KeyRemoteDailyRecords)
	if err != nil {
		return apperrors.Network("clear remote data", fmt.Errorf("removing remote keys: %w", err))
	}
	return nil
}
