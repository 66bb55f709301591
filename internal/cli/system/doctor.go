package system

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/habits"
	"github.com/julianstephens/habitquest/internal/migration"
	"github.com/julianstephens/habitquest/internal/models"
	"github.com/julianstephens/habitquest/internal/progression"
	"github.com/julianstephens/habitquest/internal/remote"
	"github.com/julianstephens/habitquest/internal/storage"
	"github.com/julianstephens/habitquest/internal/storage/sqlite"
	"github.com/julianstephens/habitquest/internal/utils"
	"github.com/julianstephens/habitquest/migrations"
)

// checkWarning is reported but does not fail the run.
type checkWarning struct{ msg string }

func (w *checkWarning) Error() string { return w.msg }

func warning(format string, args ...any) error {
	return &checkWarning{msg: fmt.Sprintf(format, args...)}
}

type DoctorCmd struct{}

type healthCheck struct {
	name    string
	needsDB bool
	run     func(ctx *cli.Context) error
}

var healthChecks = []healthCheck{
	{"Schema version", true, checkSchemaVersion},
	{"Migrations complete", true, checkMigrationsComplete},
	{"Backups present", false, checkBackupsPresent},
	{"Clock/timezone", false, checkClockTimezone},
	{"Habit integrity", true, checkHabitsIntegrity},
	{"Daily records", true, checkDailyRecords},
	{"Progress", true, checkProgress},
	{"Remote store", false, checkRemote},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
	}

	for _, check := range healthChecks {
		if check.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", check.name)
			continue
		}
		err := check.run(ctx)
		var warn *checkWarning
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", check.name)
		case errors.As(err, &warn):
			fmt.Printf("⚠ %s: WARNING\n", check.name)
			fmt.Printf("   %s\n", warn.msg)
		default:
			fmt.Printf("❌ %s: FAIL\n", check.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if sqliteStore, ok := ctx.Store.(*sqlite.Store); ok {
		db := sqliteStore.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

// sqliteRunner returns nil for backends without a local schema.
func sqliteRunner(ctx *cli.Context) (*migration.Runner, error) {
	sqliteStore, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return nil, nil
	}
	db := sqliteStore.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(db, subFS, migration.SQLite), nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	runner, err := sqliteRunner(ctx)
	if err != nil || runner == nil {
		return err
	}
	return runner.ValidateVersion()
}

func checkMigrationsComplete(ctx *cli.Context) error {
	runner, err := sqliteRunner(ctx)
	if err != nil || runner == nil {
		return err
	}

	currentVersion, err := runner.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latestVersion, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	if currentVersion < latestVersion {
		return fmt.Errorf("database is at version %d, latest is %d; run 'habitquest init'", currentVersion, latestVersion)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	mgr := ctx.BackupManager()
	backups, err := mgr.List()
	if err != nil {
		return warning("failed to list backups: %v", err)
	}
	if len(backups) == 0 {
		return warning("no backups found in %s", mgr.Dir())
	}

	newest := backups[0].Timestamp
	if age := ctx.Now().Sub(newest); age > 7*24*time.Hour {
		return warning("most recent backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now, loc := ctx.Now(), ctx.Location()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock reports %s", now.Format(time.RFC3339))
	}
	start := utils.StartOfDay(now, loc)
	if !utils.SameCalendarDay(start, now, loc) {
		return fmt.Errorf("calendar day boundaries are inconsistent in %s", loc)
	}
	return nil
}

func checkHabitsIntegrity(ctx *cli.Context) error {
	var hs []models.Habit
	if err := storage.GetJSON(ctx.Store, constants.KeyHabits, &hs); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to decode habits: %w", err)
	}
	return validateHabits(hs, ctx.Now())
}

func validateHabits(hs []models.Habit, now time.Time) error {
	seen := make(map[string]bool, len(hs))
	for _, h := range hs {
		if h.ID == "" {
			return fmt.Errorf("habit %q has no id", h.Name)
		}
		if seen[h.ID] {
			return fmt.Errorf("duplicate habit id %s", h.ID)
		}
		seen[h.ID] = true
		if _, err := habits.ValidateName(h.Name); err != nil {
			return fmt.Errorf("habit %s: %w", h.ID, err)
		}
		if h.Streak < 0 {
			return fmt.Errorf("habit %q has negative streak %d", h.Name, h.Streak)
		}
		if h.LastCompletedDate != nil && h.LastCompletedDate.After(now) {
			return fmt.Errorf("habit %q was completed in the future (%s)", h.Name, h.LastCompletedDate.Format(time.RFC3339))
		}
	}
	return nil
}

func checkDailyRecords(ctx *cli.Context) error {
	recs, err := ctx.Repository().LoadDailyRecords()
	if err != nil {
		return err
	}
	return validateDailyRecords(recs, ctx.Location())
}

// validateDailyRecords enforces one record per habit per calendar day.
func validateDailyRecords(recs []models.DailyRecord, loc *time.Location) error {
	type dayKey struct {
		habit string
		day   string
	}
	seen := make(map[dayKey]string, len(recs))
	for _, rec := range recs {
		if rec.XPGained <= 0 {
			return fmt.Errorf("record %s has non-positive XP %d", rec.ID, rec.XPGained)
		}
		k := dayKey{rec.HabitID, rec.Date.In(loc).Format(constants.DateFormat)}
		if other, ok := seen[k]; ok {
			return fmt.Errorf("habit %s has duplicate records on %s (%s, %s)", rec.HabitID, k.day, other, rec.ID)
		}
		seen[k] = rec.ID
	}
	return nil
}

func checkProgress(ctx *cli.Context) error {
	var p models.UserProgress
	if err := storage.GetJSON(ctx.Store, constants.KeyUserProgress, &p); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to decode progress: %w", err)
	}
	if p.XP < 0 {
		return fmt.Errorf("negative XP %d", p.XP)
	}
	if want := progression.LevelForXP(p.XP); p.Level != want {
		return fmt.Errorf("stored level %d does not match %d XP (expected level %d)", p.Level, p.XP, want)
	}
	return nil
}

func checkRemote(ctx *cli.Context) error {
	switch rs := ctx.Remote().(type) {
	case nil:
		return warning("remote sync is disabled (--remote=off)")
	case *remote.Client:
		pingCtx, cancel := context.WithTimeout(context.Background(), constants.RemoteRequestTimeout)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			return warning("%s is unreachable: %v", rs.BaseURL(), err)
		}
	}
	return nil
}
