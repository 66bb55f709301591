package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/habitquest/internal/backup"
	"github.com/julianstephens/habitquest/internal/cache"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/coordinator"
	"github.com/julianstephens/habitquest/internal/keyring"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/notifier"
	"github.com/julianstephens/habitquest/internal/remote"
	"github.com/julianstephens/habitquest/internal/storage"
	"github.com/julianstephens/habitquest/internal/storage/postgres"
	"github.com/julianstephens/habitquest/internal/storage/sqlite"
	"github.com/julianstephens/habitquest/internal/utils"
)

// Context carries the dependencies shared by every command.
type Context struct {
	Store storage.Store
	Loc   *time.Location
	Clock utils.Clock
	// RemoteMode is an address, constants.RemoteLocal or constants.RemoteOff.
	RemoteMode string
	Sender     notifier.Sender

	repo  *cache.Repository
	coord *coordinator.Coordinator
}

// IsPostgres reports whether config is a PostgreSQL connection string.
func IsPostgres(config string) bool {
	return strings.HasPrefix(config, "postgres://") || strings.HasPrefix(config, "postgresql://")
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// OpenStore picks the key-value backend. A PostgreSQL URL in config must not embed a
// password. With the default config, an explicit connection string or one stored in the
// OS keyring selects PostgreSQL; otherwise config is a SQLite file path.
func OpenStore(config, connStr string) (storage.Store, error) {
	if IsPostgres(config) {
		if _, err := postgres.ValidateConnString(config); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w; store it with 'habitquest keyring set' or set HABITQUEST_DB_CONNECTION instead", err)
			}
			return nil, err
		}
		return postgres.New(config), nil
	}

	if config == constants.DefaultConfigPath || strings.TrimSpace(connStr) != "" {
		resolved, err := keyring.ResolveConnectionString(connStr)
		if err != nil {
			logger.Warn("Failed to read connection string from keyring", "error", err)
		}
		if resolved != "" {
			return postgres.New(resolved), nil
		}
	}
	return sqlite.NewStore(ExpandHome(config)), nil
}

// ConfigDir is where logs live: next to the SQLite file, or the default config directory.
func ConfigDir(config string) string {
	if IsPostgres(config) {
		config = constants.DefaultConfigPath
	}
	return filepath.Dir(ExpandHome(config))
}

// Repository returns the local cache over the loaded store.
func (c *Context) Repository() *cache.Repository {
	if c.repo == nil {
		c.repo = cache.New(c.Store, c.Location())
	}
	return c.repo
}

// Coordinator builds the session coordinator on first use.
func (c *Context) Coordinator() *coordinator.Coordinator {
	if c.coord != nil {
		return c.coord
	}
	opts := []coordinator.Option{
		coordinator.WithScheduler(c.Scheduler()),
	}
	if c.Clock != nil {
		opts = append(opts, coordinator.WithClock(c.Clock))
	}
	if c.Sender != nil {
		opts = append(opts, coordinator.WithSender(c.Sender))
	}
	c.coord = coordinator.New(c.Repository(), c.Remote(), opts...)
	return c.coord
}

// Scheduler returns the store-backed reminder scheduler.
func (c *Context) Scheduler() *notifier.StoreScheduler {
	return notifier.NewStoreScheduler(c.Store, c.Clock)
}

// Remote resolves RemoteMode to a remote store, or nil when the session is local-only.
func (c *Context) Remote() remote.Store {
	switch mode := strings.TrimSpace(c.RemoteMode); mode {
	case constants.RemoteOff:
		return nil
	case "", constants.RemoteLocal:
		opts := []remote.SimulatedOption{remote.WithLatency(constants.SimulatedNetworkDelay)}
		if c.Clock != nil {
			opts = append(opts, remote.WithClock(c.Clock))
		}
		return remote.NewSimulated(c.Store, opts...)
	default:
		return remote.NewClient(mode, &http.Client{Timeout: constants.RemoteRequestTimeout})
	}
}

// Finish retries any local write that failed during the session, then waits for
// background replication so completions reach the remote store before the process exits.
func (c *Context) Finish() {
	if c.coord == nil {
		return
	}
	if err := c.coord.Flush(); err != nil {
		logger.Error("Unsaved changes could not be written", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.ReplicationWaitTimeout)
	defer cancel()
	if err := c.coord.Wait(ctx); err != nil {
		logger.Warn("Replication still running at exit", "error", err)
	}
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	if _, err := c.BackupManager().Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

func (c *Context) BackupManager() *backup.Manager {
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if c.Clock != nil {
		mgr.WithClock(c.Clock)
	}
	return mgr
}

// SessionClock returns Clock, defaulting to the wall clock.
func (c *Context) SessionClock() utils.Clock {
	if c.Clock == nil {
		return utils.RealClock{}
	}
	return c.Clock
}

// Now returns the current time in the configured location.
func (c *Context) Now() time.Time {
	return c.SessionClock().Now().In(c.Location())
}

// Location is the time zone that defines calendar days.
func (c *Context) Location() *time.Location {
	if c.Loc == nil {
		return time.Local
	}
	return c.Loc
}
