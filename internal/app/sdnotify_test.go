package app

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weeklyreminder/internal/config"
	logx "weeklyreminder/pkg/logx"
)

// listenNotifySocket stands in for systemd: it binds a unixgram socket and
// points NOTIFY_SOCKET at it.
func listenNotifySocket(t *testing.T) *net.UnixConn {
	t.Helper()
	// t.TempDir paths can exceed the unix socket path limit.
	dir, err := os.MkdirTemp("", "sdn")
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram not available: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func readNotify(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read sd_notify datagram: %v", err)
	}
	return strings.TrimSpace(string(buf[:n]))
}

func TestSdNotifySendsState(t *testing.T) {
	conn := listenNotifySocket(t)

	sdNotify(logx.Nop(), sdReady)
	if got := readNotify(t, conn); got != "READY=1" {
		t.Fatalf("got %q, want READY=1", got)
	}
	sdNotify(logx.Nop(), sdStopping)
	if got := readNotify(t, conn); got != "STOPPING=1" {
		t.Fatalf("got %q, want STOPPING=1", got)
	}
}

func TestSdNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	sdNotify(logx.Nop(), sdReady)
}

func TestAppReportsReadyAndStopping(t *testing.T) {
	t.Setenv(config.EnvTelegramToken, "")
	t.Setenv(config.EnvLogLevel, "")
	conn := listenNotifySocket(t)

	dir := t.TempDir()
	a, err := NewApp(writeConfig(t, dir, freeAddr(t), true))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := readNotify(t, conn); got != "READY=1" {
		t.Fatalf("after Start got %q, want READY=1", got)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := readNotify(t, conn); got != "STOPPING=1" {
		t.Fatalf("after Stop got %q, want STOPPING=1", got)
	}
}
