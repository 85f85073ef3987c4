//go:build linux

package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = "org.freedesktop.Notifications.Notify"
)

// DesktopSink shows messages through org.freedesktop.Notifications on the
// session bus. The connection is opened lazily and reopened after a failed call.
type DesktopSink struct {
	cfg DesktopConfig

	mu   sync.Mutex
	conn *dbus.Conn
}

func NewDesktopSink(cfg DesktopConfig) (*DesktopSink, error) {
	return &DesktopSink{cfg: cfg}, nil
}

func (s *DesktopSink) Name() string { return "desktop" }

func (s *DesktopSink) connLocked() (*dbus.Conn, error) {
	if s.conn != nil && s.conn.Connected() {
		return s.conn, nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	s.conn = conn
	return conn, nil
}

func (s *DesktopSink) Send(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.connLocked()
	if err != nil {
		return err
	}
	urgency, expire := desktopParams(s.cfg, m)
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency)}

	call := conn.Object(notifyDest, notifyPath).CallWithContext(ctx, notifyMethod, 0,
		s.cfg.appName(), uint32(0), s.cfg.Icon, m.Title, m.Body, []string{}, hints, expire)
	if call.Err != nil {
		_ = conn.Close()
		s.conn = nil
		return fmt.Errorf("desktop notify: %w", call.Err)
	}
	return nil
}

func (s *DesktopSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
