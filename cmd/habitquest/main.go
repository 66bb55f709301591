package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/cli/backups"
	"github.com/julianstephens/habitquest/internal/cli/habits"
	"github.com/julianstephens/habitquest/internal/cli/system"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/notifier"
	"github.com/julianstephens/habitquest/internal/utils"
)

var CLI struct {
	Version      kong.VersionFlag
	Config       string `help:"SQLite database path or PostgreSQL connection string. PostgreSQL passwords must NOT be embedded; use HABITQUEST_DB_CONNECTION, the OS keyring or .pgpass instead." type:"string" default:"${default_config}" env:"HABITQUEST_CONFIG"`
	DBConnection string `name:"db-connection" help:"PostgreSQL connection string (overrides the keyring)." env:"HABITQUEST_DB_CONNECTION"`
	Remote       string `help:"Remote store: host:port of a 'habitquest serve' instance, 'local' for the built-in simulation, or 'off'." default:"local" env:"HABITQUEST_REMOTE"`
	Timezone     string `help:"IANA time zone that defines calendar days." default:"Local" env:"HABITQUEST_TIMEZONE"`
	Debug        bool   `help:"Write debug logs to stderr." env:"HABITQUEST_DEBUG"`

	Init     system.InitCmd     `cmd:"" help:"Initialize habitquest storage."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive dashboard." default:"1"`
	Habit    habits.HabitCmd    `cmd:"" help:"Manage and complete habits."`
	Progress habits.ProgressCmd `cmd:"" help:"Show XP and level."`
	Stats    habits.StatsCmd    `cmd:"" help:"Show habit statistics."`
	History  habits.HistoryCmd  `cmd:"" help:"Show recent completions."`
	Sync     habits.SyncCmd     `cmd:"" help:"Sync habits with the remote store."`
	Remind   system.RemindCmd   `cmd:"" help:"Manage the daily reminder."`
	Reset    system.ResetCmd    `cmd:"" help:"Delete all habits, progress and history."`
	Serve    system.ServeCmd    `cmd:"" help:"Serve the remote store API."`
	Keyring  system.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks on storage, data and remote sync."`
	Notify   system.NotifyCmd   `cmd:"" hidden:"" help:"Send the daily reminder when due (run from cron)."`
	Inspect  system.DebugCmd    `cmd:"" hidden:"" help:"Dump stored data as JSON for debugging."`
	Backup   struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	vars := kong.Vars{
		"version":        constants.Version,
		"default_config": constants.DefaultConfigPath,
	}
	for k, v := range system.Vars() {
		vars[k] = v
	}

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with XP, levels and streaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		vars,
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: cli.ConfigDir(CLI.Config)}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	loc, err := utils.LoadLocation(CLI.Timezone)
	errors.Fatal(err)

	store, err := cli.OpenStore(CLI.Config, CLI.DBConnection)
	errors.Fatal(err)
	defer store.Close()

	appCtx := &cli.Context{
		Store:      store,
		Loc:        loc,
		Clock:      utils.RealClock{},
		RemoteMode: CLI.Remote,
		Sender:     notifier.New(),
	}

	// Load the store before running the command (init, doctor and keyring handle their own storage)
	command := ctx.Command()
	if command != "init" && command != "doctor" && !strings.HasPrefix(command, "keyring") {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	appCtx.Finish()
	if err != nil {
		store.Close()
		errors.Fatal(err)
	}
}
