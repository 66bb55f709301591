package backups

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/storage/memory"
	"github.com/julianstephens/habitquest/internal/storage/sqlite"
	"github.com/julianstephens/habitquest/internal/utils"
)

func setupTestContext(t *testing.T) (*cli.Context, *utils.FakeClock) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "habitquest.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := utils.NewFakeClock(time.Date(2025, 5, 1, 9, 30, 15, 0, time.Local))
	return &cli.Context{Store: store, Clock: clock, RemoteMode: constants.RemoteOff}, clock
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, clock := setupTestContext(t)

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	clock.Advance(time.Minute)
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("second backup create failed: %v", err)
	}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}

	backups, err := ctx.BackupManager().List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups, got %d", len(backups))
	}
}

func TestBackupRestore(t *testing.T) {
	ctx, clock := setupTestContext(t)

	if err := ctx.Store.Set(constants.KeyNotificationTime, "06:00"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	backupPath, err := ctx.BackupManager().Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := ctx.Store.Set(constants.KeyNotificationTime, "22:00"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(time.Minute)

	prev := confirmRestore
	t.Cleanup(func() { confirmRestore = prev })

	confirmRestore = func(string) (bool, error) { return false, nil }
	if err := (&BackupRestoreCmd{BackupFile: filepath.Base(backupPath)}).Run(ctx); err != nil {
		t.Fatalf("cancelled restore failed: %v", err)
	}
	if v, _ := ctx.Store.Get(constants.KeyNotificationTime); v != "22:00" {
		t.Errorf("cancelled restore changed data: %q", v)
	}

	confirmRestore = func(string) (bool, error) { return true, nil }
	if err := (&BackupRestoreCmd{BackupFile: filepath.Base(backupPath)}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	reopened := sqlite.NewStore(ctx.Store.GetConfigPath())
	if err := reopened.Load(); err != nil {
		t.Fatalf("failed to reopen restored database: %v", err)
	}
	defer reopened.Close()
	if v, _ := reopened.Get(constants.KeyNotificationTime); v != "06:00" {
		t.Errorf("expected restored value 06:00, got %q", v)
	}
}

func TestBackupRestore_NotFound(t *testing.T) {
	ctx, _ := setupTestContext(t)
	err := (&BackupRestoreCmd{BackupFile: "habitquest-19990101-000000.db", Yes: true}).Run(ctx)
	if err == nil {
		t.Fatal("expected an error for a missing backup")
	}
}

func TestBackupCommandsRequireSQLite(t *testing.T) {
	ctx := &cli.Context{Store: memory.New()}
	for name, cmd := range map[string]interface{ Run(*cli.Context) error }{
		"create":  &BackupCreateCmd{},
		"list":    &BackupListCmd{},
		"restore": &BackupRestoreCmd{BackupFile: "x.db", Yes: true},
	} {
		if err := cmd.Run(ctx); !errors.Is(err, errNotSQLite) {
			t.Errorf("%s: expected errNotSQLite, got %v", name, err)
		}
	}
}

func TestResolveBackupPath(t *testing.T) {
	dir := t.TempDir()
	name := "habitquest-20250501-093015.db"
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := resolveBackupPath(full, dir)
	if err != nil || got != full {
		t.Errorf("absolute path: got %q, %v", got, err)
	}
	got, err = resolveBackupPath(name, dir)
	if err != nil || got != full {
		t.Errorf("file name: got %q, %v", got, err)
	}
	if _, err := resolveBackupPath("missing.db", dir); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := resolveBackupPath(filepath.Join(dir, "missing.db"), dir); err == nil {
		t.Error("expected error for missing absolute path")
	}
}
