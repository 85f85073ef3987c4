package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	logx "weeklyreminder/pkg/logx"
)

// MaxInterval keeps at least two ticks per minute so no minute is skipped.
const MaxInterval = 30 * time.Second

// Validate checks values the decoder cannot. It returns all problems joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}

	if _, err := ParseDurationBetween("scheduler.interval", cfg.Scheduler.Interval, time.Second, MaxInterval); err != nil {
		errs = append(errs, err)
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "", "json", "file", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", cfg.Store.Driver))
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		errs = append(errs, errors.New("store.path: required"))
	}
	if _, err := ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	n := cfg.Notifier
	if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || n.RetryMax < 0 {
		errs = append(errs, errors.New("notifier: workers, queue_size, rate_per_sec and retry_max must be >= 0"))
	}
	for path, raw := range map[string]string{
		"notifier.retry_base":      n.RetryBase,
		"notifier.retry_max_delay": n.RetryMaxDelay,
		"notifier.expire":          n.Expire,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.Token) == "" {
			errs = append(errs, fmt.Errorf("notifier.telegram.token: required when enabled (or set %s)", EnvTelegramToken))
		}
		if n.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("notifier.telegram.chat_id: required when enabled"))
		}
	}

	if _, port, err := net.SplitHostPort(strings.TrimSpace(cfg.Instance.Addr)); err != nil {
		errs = append(errs, fmt.Errorf("instance.addr: %w", err))
	} else if port == "" || port == "0" {
		errs = append(errs, errors.New("instance.addr: a fixed port is required"))
	}

	return errors.Join(errs...)
}
