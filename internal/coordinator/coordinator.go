// Package coordinator owns the session's habit list and progress. Mutations are
// committed to the local cache first and replicated to the remote store afterwards,
// in the background; remote failures only flip the session offline.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/habitquest/internal/cache"
	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/notifier"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/remote"
	"github.com/julianstephens/habitquest/internal/utils"
)

// ErrRemindersUnavailable is returned by reminder operations when no scheduler is configured
var ErrRemindersUnavailable = errors.New("reminders are not available")

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	Habits   []models.HabitView
	Progress models.UserProgress
	Online   bool
	LastSync *time.Time
	// Unsaved is set while a local write has failed and Flush has not yet succeeded.
	Unsaved bool
}

type Coordinator struct {
	repo      *cache.Repository
	remote    remote.Store
	scheduler notifier.Scheduler
	sender    notifier.Sender
	clock     utils.Clock
	loc       *time.Location
	newID     func() string

	mu       sync.Mutex
	habits   []models.Habit
	progress models.UserProgress
	online   bool
	lastSync *time.Time
	// generation counts local mutations; Load drops a remote list fetched under an older one.
	generation uint64
	unsaved    bool
	pending    []models.DailyRecord
	// loaded is set once local data has been read successfully. Until then a read
	// failure is kept in readErr and every local write is refused.
	loaded  bool
	readErr error

	replTimeout time.Duration

	loads singleflight.Group

	// Replications run one at a time in commit order: each takes a ticket under mu
	// and waits on replCond for its turn.
	replSeq  uint64
	replMu   sync.Mutex
	replCond *sync.Cond
	replNext uint64
	wg       sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

type Option func(*Coordinator)

func WithClock(c utils.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

func WithScheduler(s notifier.Scheduler) Option {
	return func(co *Coordinator) { co.scheduler = s }
}

// WithSender sets where achievement messages are delivered.
func WithSender(s notifier.Sender) Option {
	return func(co *Coordinator) { co.sender = s }
}

func WithIDFunc(f func() string) Option {
	return func(co *Coordinator) { co.newID = f }
}

// WithReplicationTimeout bounds each background replication.
func WithReplicationTimeout(d time.Duration) Option {
	return func(co *Coordinator) {
		if d > 0 {
			co.replTimeout = d
		}
	}
}

// New creates a coordinator over repo. A nil remote runs the session local-only.
func New(repo *cache.Repository, rs remote.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:     repo,
		remote:   rs,
		sender:   notifier.Discard{},
		clock:    utils.RealClock{},
		loc:      repo.Location(),
		newID:    uuid.NewString,
		habits:   []models.Habit{},
		progress: models.DefaultProgress(),
		subs:     make(map[int]chan Snapshot),

		replTimeout: constants.RemoteRequestTimeout,
	}
	c.replCond = sync.NewCond(&c.replMu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the local cache, normalizes it for today and writes it back, then tries
// the remote store. A non-empty remote list replaces the local one; an empty list or a
// failure leaves the local state in charge. Concurrent calls share one execution.
//
// State left unsaved by an earlier write failure is flushed first; if that still fails
// the in-memory state is kept and nothing is reloaded. When the cache cannot be read,
// nothing is written back and the error is returned.
func (c *Coordinator) Load(ctx context.Context) (Snapshot, error) {
	v, err, _ := c.loads.Do("load", func() (any, error) {
		return c.load(ctx)
	})
	return v.(Snapshot), err
}

func (c *Coordinator) load(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.unsaved {
		if err := c.commitLocked(); err != nil {
			c.mu.Unlock()
			logger.Warn("Keeping unsaved session state instead of reloading", "error", err)
			c.publish()
			return c.Snapshot(), err
		}
	}
	c.mu.Unlock()

	now := c.clock.Now()
	views, readErr := c.repo.ReadHabits(now)
	progress, progressErr := c.repo.ReadProgress()
	if readErr == nil {
		readErr = progressErr
	}
	if readErr != nil {
		logger.Error("Local data unreadable, leaving it untouched", "error", readErr)
		c.mu.Lock()
		if !c.loaded {
			c.readErr = readErr
		}
		c.mu.Unlock()
		c.publish()
		return c.Snapshot(), readErr
	}

	normalized := models.Habits(views)
	writeErr := c.repo.SaveHabits(normalized)
	if writeErr != nil {
		logger.Error("Failed to write normalized habits", "error", writeErr)
	}

	c.mu.Lock()
	c.habits = normalized
	c.progress = progress
	c.lastSync = c.repo.LastSync()
	c.unsaved = writeErr != nil
	c.pending = nil
	c.loaded = true
	c.readErr = nil
	gen := c.generation
	c.mu.Unlock()
	c.publish()

	if c.remote == nil {
		return c.Snapshot(), writeErr
	}

	remoteHabits, err := c.remote.FetchHabits(ctx)
	if err != nil {
		logger.Warn("Remote fetch failed, using local data", "error", err)
		c.setOnline(false)
		return c.Snapshot(), writeErr
	}
	if len(remoteHabits) == 0 {
		c.setOnline(true)
		return c.Snapshot(), writeErr
	}

	now = c.clock.Now()
	applied := models.Habits(habits.NormalizeAll(remoteHabits, now, c.loc))

	c.mu.Lock()
	c.online = true
	if c.generation != gen {
		c.mu.Unlock()
		logger.Debug("Dropping remote habits fetched before a local change", "count", len(applied))
		c.publish()
		return c.Snapshot(), writeErr
	}
	c.habits = applied
	if err := c.repo.SaveHabits(applied); err != nil {
		logger.Error("Failed to persist remote habits", "error", err)
		c.unsaved = true
		writeErr = err
	} else if err := c.repo.MarkSynced(now); err != nil {
		logger.Warn("Failed to record sync time", "error", err)
	} else {
		c.lastSync = &now
	}
	c.mu.Unlock()
	c.publish()

	return c.Snapshot(), writeErr
}

// Complete records a completion of habit id. The new state is committed locally and
// published before Complete returns; replication to the remote store continues in the
// background and is unaffected by ctx being cancelled afterwards.
//
// On ErrStorage the completion is kept in memory and returned alongside the error;
// Flush retries the write.
func (c *Coordinator) Complete(ctx context.Context, id string) (habits.Completion, error) {
	c.mu.Lock()
	if err := c.writableLocked(); err != nil {
		c.mu.Unlock()
		return habits.Completion{}, err
	}
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return habits.Completion{}, apperrors.NotFound("habit", id)
	}

	now := c.clock.Now()
	current := habits.Normalize(c.habits[idx], now, c.loc)
	done, err := habits.Complete(current.Habit, c.progress, c.newID(), now, c.loc)
	if err != nil {
		c.mu.Unlock()
		return habits.Completion{}, err
	}

	next := append([]models.Habit(nil), c.habits...)
	next[idx] = done.Habit.Habit
	if habits.AllCompletedToday(habits.NormalizeAll(next, now, c.loc)) {
		done.Achievements = append(done.Achievements, habits.AchievementPerfectDay)
	}

	prevHabits, prevProgress, prevPending, prevUnsaved := c.habits, c.progress, c.pending, c.unsaved
	c.habits = next
	c.progress = done.Progress
	c.pending = append(append([]models.DailyRecord(nil), c.pending...), done.Record)
	writeErr := c.commitLocked()
	if errors.Is(writeErr, apperrors.ErrAlreadyCompletedToday) {
		// The log already holds a record for today, e.g. after a stale remote list won.
		c.habits, c.progress, c.pending, c.unsaved = prevHabits, prevProgress, prevPending, prevUnsaved
		c.mu.Unlock()
		return habits.Completion{}, writeErr
	}
	c.generation++
	ticket := c.replSeq
	c.replSeq++
	c.mu.Unlock()
	c.publish()

	job := replication{
		habit:    done.Habit.Habit,
		record:   done.Record,
		progress: done.Progress,
	}
	c.wg.Add(1)
	go c.replicate(context.WithoutCancel(ctx), ticket, job, done)

	return done, writeErr
}

// commitLocked writes the in-memory state and pending records in one store operation.
// Callers hold c.mu.
func (c *Coordinator) commitLocked() error {
	if err := c.repo.CommitCompletion(c.habits, c.progress, c.pending...); err != nil {
		c.unsaved = true
		logger.Error("Failed to commit completion locally", "error", err)
		return err
	}
	c.unsaved = false
	c.pending = nil
	return nil
}

// writableLocked refuses local writes while the cache could not be read, so an empty
// session never replaces stored data. Callers hold c.mu.
func (c *Coordinator) writableLocked() error {
	if c.readErr != nil {
		return fmt.Errorf("local data could not be read, not overwriting it: %w", c.readErr)
	}
	return nil
}

// Flush retries a failed local write. It is a no-op when everything is saved.
func (c *Coordinator) Flush() error {
	c.mu.Lock()
	if !c.unsaved || c.readErr != nil {
		c.mu.Unlock()
		return nil
	}
	err := c.commitLocked()
	c.mu.Unlock()
	c.publish()
	return err
}

// CreateHabit validates name and creates the habit remotely so the server assigns its
// id. When the remote store is unreachable the habit is created locally instead.
func (c *Coordinator) CreateHabit(ctx context.Context, name string) (models.HabitView, error) {
	trimmed, err := habits.ValidateName(name)
	if err != nil {
		return models.HabitView{}, err
	}
	c.mu.Lock()
	err = c.writableLocked()
	c.mu.Unlock()
	if err != nil {
		return models.HabitView{}, err
	}

	var h models.Habit
	if c.remote != nil {
		h, err = c.remote.CreateHabit(ctx, trimmed)
		switch {
		case err == nil:
			c.setOnline(true)
		case errors.Is(err, apperrors.ErrNetwork):
			logger.Warn("Creating habit offline", "name", trimmed, "error", err)
			c.setOnline(false)
		default:
			return models.HabitView{}, err
		}
	}
	if h.ID == "" {
		if h, err = habits.New(c.newID(), trimmed, c.clock.Now()); err != nil {
			return models.HabitView{}, err
		}
	}

	c.mu.Lock()
	c.habits = append(append([]models.Habit(nil), c.habits...), h)
	c.generation++
	writeErr := c.repo.SaveHabits(c.habits)
	if writeErr != nil {
		c.unsaved = true
		logger.Error("Failed to save new habit", "error", writeErr)
	}
	c.mu.Unlock()
	c.publish()

	return habits.Normalize(h, c.clock.Now(), c.loc), writeErr
}

// Find resolves ref to a habit by id, then by case-insensitive name.
func (c *Coordinator) Find(ref string) (models.HabitView, error) {
	snap := c.Snapshot()
	for _, h := range snap.Habits {
		if h.ID == ref {
			return h, nil
		}
	}
	var match []models.HabitView
	for _, h := range snap.Habits {
		if strings.EqualFold(h.Name, strings.TrimSpace(ref)) {
			match = append(match, h)
		}
	}
	switch len(match) {
	case 0:
		return models.HabitView{}, apperrors.NotFound("habit", ref)
	case 1:
		return match[0], nil
	}
	return models.HabitView{}, apperrors.Validation("%d habits are named %q, use the id instead", len(match), ref)
}

func (c *Coordinator) indexOf(id string) int {
	for i, h := range c.habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns the current state with completedToday computed for now.
func (c *Coordinator) Snapshot() Snapshot {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Habits:   habits.NormalizeAll(c.habits, now, c.loc),
		Progress: c.progress,
		Online:   c.online,
		Unsaved:  c.unsaved,
	}
	if c.lastSync != nil {
		t := *c.lastSync
		snap.LastSync = &t
	}
	return snap
}

func (c *Coordinator) setOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	if changed {
		c.publish()
	}
}

// Subscribe returns a channel receiving the latest snapshot after every change. Slow
// readers only ever see the most recent snapshot. cancel closes the channel.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			close(ch)
			c.subsMu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Coordinator) publish() {
	snap := c.Snapshot()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Wait blocks until every replication started so far has finished or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for replication: %w", ctx.Err())
	}
}

// Stats summarizes the session for now.
func (c *Coordinator) Stats() models.Stats {
	snap := c.Snapshot()
	recs, err := c.repo.LoadDailyRecords()
	if err != nil {
		logger.Error("Failed to load daily records", "error", err)
		recs = nil
	}
	return progression.ComputeStats(snap.Habits, recs, snap.Progress, c.clock.Now(), c.loc)
}

// History returns completion records between start and end (inclusive, either may be
// nil). The remote log is preferred; the local one is used when it is unreachable.
func (c *Coordinator) History(ctx context.Context, start, end *time.Time) ([]models.DailyRecord, error) {
	if c.remote != nil {
		recs, err := c.remote.FetchDailyRecords(ctx, start, end)
		if err == nil {
			c.setOnline(true)
			return recs, nil
		}
		logger.Warn("Remote history unavailable, using local log", "error", err)
		c.setOnline(false)
	}

	local, err := c.repo.LoadDailyRecords()
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyRecord, 0, len(local))
	for _, r := range local {
		if remote.InRange(r.Date, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Reset erases all local and remote data and cancels reminders. Replications already
// in flight are awaited first so they cannot repopulate the remote store.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.Wait(ctx); err != nil {
		return err
	}

	if c.scheduler != nil {
		if err := c.scheduler.CancelAll(ctx); err != nil {
			logger.Warn("Failed to cancel reminders", "error", err)
		}
	}
	if err := c.repo.ClearAll(); err != nil {
		return err
	}

	c.mu.Lock()
	c.habits = []models.Habit{}
	c.progress = models.DefaultProgress()
	c.lastSync = nil
	c.unsaved = false
	c.pending = nil
	c.loaded = true
	c.readErr = nil
	c.generation++
	c.mu.Unlock()
	c.publish()

	if c.remote != nil {
		if err := c.remote.ClearAll(ctx); err != nil {
			logger.Warn("Failed to clear remote data", "error", err)
			c.setOnline(false)
		} else {
			c.setOnline(true)
		}
	}
	return nil
}
