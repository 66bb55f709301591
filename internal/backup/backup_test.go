package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/storage/sqlite"
	"github.com/julianstephens/habitquest/internal/utils"
)

func setupTestDB(t *testing.T, habits string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "habitquest.db")

	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.Set(constants.KeyHabits, habits); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	return dbPath
}

func readHabits(t *testing.T, dbPath string) string {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer store.Close()
	v, err := store.Get(constants.KeyHabits)
	if err != nil {
		t.Fatalf("Get(habits) error = %v", err)
	}
	return v
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t, `[{"id":"a"}]`)
	clock := utils.NewFakeClock(time.Date(2025, 5, 1, 9, 30, 15, 0, time.Local))
	m := NewManager(dbPath).WithClock(clock)

	path, err := m.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if filepath.Dir(path) != m.Dir() {
		t.Errorf("backup written to %s, want dir %s", path, m.Dir())
	}
	if want := "habitquest-20250501-093015.db"; filepath.Base(path) != want {
		t.Errorf("backup name = %s, want %s", filepath.Base(path), want)
	}
	if got := readHabits(t, path); got != `[{"id":"a"}]` {
		t.Errorf("backup content = %s", got)
	}
}

func TestCreateBackupWithoutDatabase(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := m.Create(); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Create() error = %v, want ErrNoDatabase", err)
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t, "[]")
	clock := utils.NewFakeClock(time.Date(2025, 5, 1, 9, 30, 0, 0, time.Local))
	m := NewManager(dbPath).WithClock(clock)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := m.Create()
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
		if seen[path] {
			t.Fatalf("duplicate backup path %s", path)
		}
		seen[path] = true
	}

	backups, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 3 {
		t.Errorf("List() returned %d backups, want 3", len(backups))
	}
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t, "[]")
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.Local)
	clock := utils.NewFakeClock(start)
	m := NewManager(dbPath).WithClock(clock).WithRetention(3)

	for i := 0; i < 5; i++ {
		if _, err := m.Create(); err != nil {
			t.Fatal(err)
		}
		clock.Advance(24 * time.Hour)
	}

	backups, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() after rotation = %d backups, want 3", len(backups))
	}
	if newest := start.AddDate(0, 0, 4); !backups[0].Timestamp.Equal(newest) {
		t.Errorf("newest backup = %v, want %v", backups[0].Timestamp, newest)
	}
	if oldest := start.AddDate(0, 0, 2); !backups[2].Timestamp.Equal(oldest) {
		t.Errorf("oldest kept backup = %v, want %v", backups[2].Timestamp, oldest)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "habitquest.db"))

	backups, err := m.List()
	if err != nil || len(backups) != 0 {
		t.Fatalf("List() on missing dir = %v, %v", backups, err)
	}

	if err := os.MkdirAll(m.Dir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"notes.txt",
		"habitquest-garbage.db",
		"habitquest-20250501-093015-x.db",
		"habitquest-20250501-093015.db",
		"habitquest-20250501-093015-2.db",
	} {
		if err := os.WriteFile(filepath.Join(m.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err = m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("List() = %d backups, want 2", len(backups))
	}
	if filepath.Base(backups[0].Path) != "habitquest-20250501-093015-2.db" {
		t.Errorf("counter suffix should sort first on equal timestamps, got %s", backups[0].Path)
	}
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t, `["before"]`)
	clock := utils.NewFakeClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.Local))
	m := NewManager(dbPath).WithClock(clock)

	snapshot, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(constants.KeyHabits, `["after"]`); err != nil {
		t.Fatal(err)
	}
	store.Close()

	clock.Advance(time.Minute)
	saved, err := m.Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if saved == "" {
		t.Fatal("Restore() should back up the current database first")
	}

	if got := readHabits(t, dbPath); got != `["before"]` {
		t.Errorf("restored content = %s", got)
	}
	if got := readHabits(t, saved); got != `["after"]` {
		t.Errorf("pre-restore backup content = %s", got)
	}
}

func TestRestoreRejectsInvalidBackup(t *testing.T) {
	dbPath := setupTestDB(t, "[]")
	m := NewManager(dbPath)

	if _, err := m.Restore(filepath.Join(t.TempDir(), "nope.db")); err == nil {
		t.Error("expected error for missing backup")
	}

	corrupt := filepath.Join(t.TempDir(), "corrupt.db")
	if err := os.WriteFile(corrupt, []byte("this is definitely not a sqlite database file"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Restore(corrupt); err == nil {
		t.Error("expected error for corrupted backup")
	}
	if got := readHabits(t, dbPath); got != "[]" {
		t.Errorf("failed restore changed the database: %s", got)
	}
}
