package constants

import "time"

const (
	AppName            = "habitquest"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/habitquest/habitquest.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// MonthFormat selects a calendar month (YYYY-MM)
	MonthFormat = "2006-01"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Persistence keys owned by the local cache repository
	KeyHabits           = "habits"
	KeyUserProgress     = "user_progress"
	KeyDailyRecords     = "daily_records"
	KeyNotificationTime = "notification_time"
	KeyLastSync         = "last_sync"

	// KeyNotificationSchedule is owned by the notification scheduler
	KeyNotificationSchedule = "notification_schedule"

	// Keys used by the simulated remote store
	KeyRemoteHabits       = "api_habits"
	KeyRemoteUserProgress = "api_user_progress"
	KeyRemoteDailyRecords = "api_daily_records"

	DefaultNotificationTime = "20:00"

	// Habit name bounds, counted in runes after trimming
	HabitNameMinLen = 3
	HabitNameMaxLen = 50

	// Remote constants
	DefaultRemoteAddr      = "127.0.0.1:8787"
	RemoteLocal            = "local"
	RemoteOff              = "off"
	RemoteRequestTimeout   = 10 * time.Second
	SimulatedNetworkDelay  = 300 * time.Millisecond
	ReplicationWaitTimeout = 5 * time.Second
	RateLimitPerSecond     = 5
	RateLimitBurst         = 30

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitquest-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "habitquest-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.habitquest"
	NotifyGracePeriod      = 10 * time.Minute
)
