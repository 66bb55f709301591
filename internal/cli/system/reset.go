package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitquest/internal/backup"
	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/storage/sqlite"
)

type ResetCmd struct {
	Yes bool `short:"y" help:"Skip the confirmation prompt."`
}

// confirmReset asks before wiping data; replaced in tests.
var confirmReset = func() (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title("Delete all habits, progress and history?").
		Description("A backup of the local database is taken first.").
		Affirmative("Reset").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func (c *ResetCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		ok, err := confirmReset()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !ok {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	if _, ok := ctx.Store.(*sqlite.Store); ok {
		path, err := ctx.BackupManager().Create()
		if err != nil && !errors.Is(err, backup.ErrNoDatabase) {
			return fmt.Errorf("backup before reset failed: %w", err)
		}
		if path != "" {
			fmt.Printf("✓ Backup created: %s\n", path)
		}
	}

	coord := ctx.Coordinator()
	if err := coord.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Println("✓ All habits, progress and history deleted")
	if !coord.Snapshot().Online {
		fmt.Println("⚠️  Remote store unreachable; remote data was not cleared.")
	}
	return nil
}
