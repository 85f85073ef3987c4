package storage

import (
	"fmt"
	"strings"

	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

// Open initializes the configured backend.
func Open(cfg Config, log logx.Logger) (task.Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("storage.path is required")
	}

	switch NormalizeDriver(cfg.Driver) {
	case "json":
		return openJSON(cfg, log)
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// NormalizeDriver maps aliases onto canonical driver names. Empty means "json".
func NormalizeDriver(driver string) string {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "", "json", "file":
		return "json"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return d
	}
}
