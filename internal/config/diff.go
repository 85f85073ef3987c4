package config

import (
	"strings"

	logx "weeklyreminder/pkg/logx"
)

// SummarizeConfigChange returns the changed section names and safe
// structured attrs for logging. Tokens are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Scheduler.Interval) != strings.TrimSpace(newCfg.Scheduler.Interval) ||
		strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.interval", strings.TrimSpace(newCfg.Scheduler.Interval)),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
		)
	}

	if oldCfg.Store != newCfg.Store {
		changed = append(changed, "store")
		attrs = append(attrs,
			logx.String("store.driver", newCfg.Store.Driver),
			logx.String("store.path", newCfg.Store.Path),
		)
	}

	on, nn := oldCfg.Notifier, newCfg.Notifier
	tgOld, tgNew := on.Telegram, nn.Telegram
	tokenChanged := tgOld.Token != tgNew.Token
	tgOld.Token, tgNew.Token = "", ""
	on.Telegram, nn.Telegram = tgOld, tgNew
	if on != nn || tokenChanged {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.popup", nn.Popup),
			logx.Int("notifier.workers", nn.Workers),
			logx.Int("notifier.rate_per_sec", nn.RatePerSec),
			logx.Bool("notifier.desktop", nn.Desktop.Enabled),
			logx.Bool("notifier.telegram", nn.Telegram.Enabled),
			logx.Bool("notifier.telegram.token_set", strings.TrimSpace(newCfg.Notifier.Telegram.Token) != ""),
			logx.Bool("notifier.telegram.token_changed", tokenChanged),
		)
	}

	if strings.TrimSpace(oldCfg.Instance.Addr) != strings.TrimSpace(newCfg.Instance.Addr) {
		changed = append(changed, "instance")
		attrs = append(attrs, logx.String("instance.addr", newCfg.Instance.Addr))
	}

	if oldCfg.Systemd != newCfg.Systemd {
		changed = append(changed, "systemd")
		attrs = append(attrs, logx.Bool("systemd.notify", newCfg.Systemd.Notify))
	}

	return changed, attrs
}
