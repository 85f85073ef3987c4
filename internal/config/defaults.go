package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AppDir = "weeklyreminder"

	DefaultInterval     = "10s"
	DefaultInstanceAddr = "127.0.0.1:54321"
	DefaultExpire       = "8s"

	EnvConfigPath    = "REMINDER_CONFIG"
	EnvTelegramToken = "REMINDER_TELEGRAM_TOKEN"
	EnvLogLevel      = "REMINDER_LOG_LEVEL"
)

// LoadEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadEnv() {
	_ = godotenv.Load()
}

// DefaultPath is $REMINDER_CONFIG or <user config dir>/weeklyreminder/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return filepath.Join(baseDir(), "config.yaml")
}

func baseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", "data")
	}
	return filepath.Join(dir, AppDir)
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Path: filepath.Join(baseDir(), "reminder.log")},
		},
		Scheduler: SchedulerConfig{Interval: DefaultInterval},
		Store: StoreConfig{
			Driver: "json",
			Path:   filepath.Join(baseDir(), "tasks_data.json"),
		},
		Notifier: NotifierConfig{
			Popup:      true,
			Workers:    1,
			QueueSize:  64,
			RatePerSec: 2,
			RetryMax:   2,
			Expire:     DefaultExpire,
			Desktop:    DesktopConfig{Enabled: true, AppName: "Weekly Reminder"},
		},
		Instance: InstanceConfig{Addr: DefaultInstanceAddr},
		Systemd:  SystemdConfig{Notify: true},
	}
}

// applyEnv overlays environment overrides onto cfg.
func applyEnv(cfg *Config) {
	if tok := strings.TrimSpace(os.Getenv(EnvTelegramToken)); tok != "" {
		cfg.Notifier.Telegram.Token = tok
	}
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		cfg.Logging.Level = lvl
	}
}

// expandPaths resolves a leading "~/" in file paths against the home directory.
func expandPaths(cfg *Config) {
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Logging.File.Path = expandHome(cfg.Logging.File.Path)
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
