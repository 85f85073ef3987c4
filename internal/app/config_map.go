package app

import (
	"context"
	"errors"
	"time"

	"weeklyreminder/internal/config"
	"weeklyreminder/internal/notifier"
	"weeklyreminder/internal/scheduler"
	"weeklyreminder/internal/storage"
	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("store.busy_timeout", cfg.Store.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      storage.NormalizeDriver(cfg.Store.Driver),
		Path:        cfg.Store.Path,
		BusyTimeout: busy,
	}, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	iv, err := config.ParseDurationOrDefault("scheduler.interval", cfg.Scheduler.Interval, scheduler.DefaultInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{Interval: iv, Timezone: cfg.Scheduler.Timezone}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	base, err := config.ParseDurationOrDefault("notifier.retry_base", n.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Popup:         n.Popup,
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}

// buildSinks returns the log sink plus whichever of desktop and telegram are
// enabled. A desktop sink that has no backend on this OS is skipped with a warning.
func buildSinks(cfg *config.Config, log logx.Logger) ([]notifier.Sink, error) {
	sinks := []notifier.Sink{notifier.NewLogSink(log.With(logx.String("comp", "notify.log")))}
	n := cfg.Notifier

	if n.Desktop.Enabled {
		expire, err := config.ParseDurationOrDefault("notifier.expire", n.Expire, 0)
		if err != nil {
			return nil, err
		}
		ds, err := notifier.NewDesktopSink(notifier.DesktopConfig{
			AppName: n.Desktop.AppName,
			Icon:    n.Desktop.Icon,
			Expire:  expire,
		})
		switch {
		case errors.Is(err, notifier.ErrUnsupported):
			log.Warn("desktop notifications unavailable; skipping", logx.Err(err))
		case err != nil:
			return nil, err
		default:
			sinks = append(sinks, ds)
		}
	}

	if n.Telegram.Enabled {
		ts, err := notifier.NewTelegramSink(notifier.TelegramConfig{
			Token:    n.Telegram.Token,
			ChatID:   n.Telegram.ChatID,
			ThreadID: n.Telegram.ThreadID,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ts)
	}
	return sinks, nil
}

func closeSinks(sinks []notifier.Sink) {
	for _, s := range sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}

// OpenStore opens the configured task store. The CLI uses it to edit tasks
// while the daemon may be running; the daemon picks changes up by watching the file.
func OpenStore(ctx context.Context, cfg *config.Config, log logx.Logger) (*task.Store, error) {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	return task.Open(ctx, backend, log.With(logx.String("comp", "store"))), nil
}

// validateMapped checks that every section maps onto its component config.
func validateMapped(cfg *config.Config) error {
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapSchedulerConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	return nil
}
