package config

// Config is the daemon configuration file (YAML or JSON).
//
// Unset keys keep the values from Default(); unknown keys are rejected.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Store     StoreConfig     `json:"store"`
	Notifier  NotifierConfig  `json:"notifier"`
	Instance  InstanceConfig  `json:"instance"`
	Systemd   SystemdConfig   `json:"systemd"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the reminder tick.
//
// Interval is a Go duration string (e.g. "10s"). It must stay well under a
// minute or due minutes could be skipped.
type SchedulerConfig struct {
	Interval string `json:"interval"`
	// Timezone is an IANA name (e.g. "Asia/Shanghai"); empty means the system zone.
	Timezone string `json:"timezone,omitempty"`
}

// StoreConfig selects the task persistence backend.
//
// Example:
//
//	store: { driver: json, path: ~/.config/weeklyreminder/tasks_data.json }
type StoreConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifierConfig controls how fired reminders are delivered.
//
// All durations are Go duration strings (e.g. "500ms", "8s").
type NotifierConfig struct {
	// Popup keeps the desktop notification on screen until dismissed.
	Popup         bool   `json:"popup"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	// Expire is how long a non-popup notification stays visible.
	Expire string `json:"expire,omitempty"`

	Desktop  DesktopConfig  `json:"desktop"`
	Telegram TelegramConfig `json:"telegram"`
}

type DesktopConfig struct {
	Enabled bool   `json:"enabled"`
	AppName string `json:"app_name,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// TelegramConfig mirrors reminders to a Telegram chat.
// The token may also come from REMINDER_TELEGRAM_TOKEN.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// InstanceConfig controls the single-instance loopback guard.
type InstanceConfig struct {
	Addr string `json:"addr"`
}

type SystemdConfig struct {
	// Notify sends READY=1/STOPPING=1 when running under systemd. No-op otherwise.
	Notify bool `json:"notify"`
}
