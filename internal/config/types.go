package config

// Config is the full on-disk configuration.
//
// The file may be JSON or YAML; YAML is coerced to JSON so both formats go
// through the same strict decoder (unknown fields are rejected).
type Config struct {
	// Timezone is the IANA zone all due-time parsing and comparison happens
	// in, e.g. "Asia/Jakarta". Empty means the process-local zone.
	Timezone string `json:"timezone,omitempty"`

	Logging   LoggingConfig   `json:"logging"`
	Telegram  TelegramConfig  `json:"telegram"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Media     MediaConfig     `json:"media"`

	// StatusRecipients is the static recipient list used for status
	// broadcasts when no external contact directory is wired in.
	StatusRecipients []string `json:"status_recipients,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"` // TRACE..ERROR, default INFO
	Console *bool             `json:"console,omitempty"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
}

// SchedulerConfig controls the deferred-delivery schedulers.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - tick_interval: "60s"
//   - startup_delay: "5s"
//   - delivery_timeout: "30s"
//   - rate_per_sec: 10
type SchedulerConfig struct {
	TickInterval    string `json:"tick_interval,omitempty"`
	StartupDelay    string `json:"startup_delay,omitempty"`
	DeliveryTimeout string `json:"delivery_timeout,omitempty"`
	RatePerSec      int    `json:"rate_per_sec,omitempty"`
}

// StorageConfig controls job persistence.
//
// Driver values:
//   - "file": flat JSON file per scheduler instance (default)
//   - "sqlite": SQLite database file per scheduler instance
//
// Message jobs and status jobs always use separate stores.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	MessagePath string `json:"message_path,omitempty"`
	StatusPath  string `json:"status_path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type MediaConfig struct {
	// SpoolDir is where inbound media is staged until its job is terminal.
	SpoolDir string `json:"spool_dir,omitempty"`
}

// ConsoleEnabled treats an omitted logging.console as true.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}
