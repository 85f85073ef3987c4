package notifier

import (
	"errors"
	"strings"
	"time"
)

// ErrUnsupported is returned by sinks that have no backend on this OS.
var ErrUnsupported = errors.New("notifier: desktop notifications unsupported on this OS")

// DesktopConfig configures the freedesktop notification sink.
type DesktopConfig struct {
	AppName string
	Icon    string
	// Expire applies to non-persistent messages. 0 leaves it to the server.
	Expire time.Duration
}

const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// desktopParams maps a Message onto Notify's urgency hint and expire_timeout
// (milliseconds; 0 = never expire, -1 = server default).
func desktopParams(cfg DesktopConfig, m Message) (urgency byte, expireMs int32) {
	if m.Persistent {
		return urgencyCritical, 0
	}
	if cfg.Expire <= 0 {
		return urgencyNormal, -1
	}
	return urgencyNormal, int32(cfg.Expire / time.Millisecond)
}

func (c DesktopConfig) appName() string {
	if n := strings.TrimSpace(c.AppName); n != "" {
		return n
	}
	return "Weekly Reminder"
}
