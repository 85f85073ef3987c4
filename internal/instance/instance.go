// Package instance keeps a single daemon per user session.
//
// The first process binds a fixed loopback TCP port. A later process fails
// to bind, connects instead, sends ActivateMessage and exits; the running
// daemon treats any connection as an activation request. There is no
// authentication: anything that can reach the port can trigger it.
package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	logx "weeklyreminder/pkg/logx"
)

const (
	DefaultAddr     = "127.0.0.1:54321"
	ActivateMessage = "ACTIVATE"

	maxMessage  = 1024
	readTimeout = 2 * time.Second
	dialTimeout = 2 * time.Second

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard owns the listening socket for the lifetime of the daemon.
type Guard struct {
	ln  net.Listener
	log logx.Logger

	closeOnce sync.Once
}

// Acquire binds addr. Any bind failure is reported as ErrAlreadyRunning
// (wrapping the cause).
func Acquire(addr string, log logx.Logger) (*Guard, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
	}
	return &Guard{ln: ln, log: log}, nil
}

func (g *Guard) Addr() string { return g.ln.Addr().String() }

// Serve accepts connections until ctx is done or the guard is closed. Each
// connection is drained (up to 1024 bytes) in its own goroutine, closed, and
// onActivate is called with what was read. Other accept errors are logged and
// retried with backoff.
func (g *Guard) Serve(ctx context.Context, onActivate func(msg string)) error {
	stop := context.AfterFunc(ctx, func() { _ = g.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	var delay time.Duration
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = acceptBackoff(delay)
			g.log.Warn("accept failed", logx.Err(err), logx.Duration("retry_in", delay))
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
			continue
		}
		delay = 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			remote := conn.RemoteAddr().String()
			msg := drain(conn)
			g.log.Debug("activation received", logx.String("remote", remote), logx.String("msg", msg))
			if onActivate != nil {
				onActivate(msg)
			}
		}()
	}
}

func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	if next := prev * 2; next < maxAcceptDelay {
		return next
	}
	return maxAcceptDelay
}

func drain(conn net.Conn) string {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	buf, _ := io.ReadAll(io.LimitReader(conn, maxMessage))
	return string(buf)
}

// Close releases the port. It is safe to call more than once.
func (g *Guard) Close() error {
	var err error
	g.closeOnce.Do(func() { err = g.ln.Close() })
	return err
}

// Activate asks the running instance at addr to show itself.
func Activate(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if _, err := conn.Write([]byte(ActivateMessage)); err != nil {
		return fmt.Errorf("send activate: %w", err)
	}
	return nil
}
