package instance

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	logx "weeklyreminder/pkg/logx"
)

func TestSecondAcquireFails(t *testing.T) {
	t.Parallel()
	g, err := Acquire("127.0.0.1:0", logx.Nop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer g.Close()

	if _, err := Acquire(g.Addr(), logx.Nop()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Acquire err = %v, want ErrAlreadyRunning", err)
	}
}

func TestActivateReachesServe(t *testing.T) {
	t.Parallel()
	g, err := Acquire("127.0.0.1:0", logx.Nop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- g.Serve(ctx, func(msg string) { got <- msg }) }()

	if err := Activate(ctx, g.Addr()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	select {
	case msg := <-got:
		if msg != ActivateMessage {
			t.Fatalf("msg = %q", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("activation not received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop on cancel")
	}
}

func TestActivateWithoutInstanceFails(t *testing.T) {
	t.Parallel()
	g, err := Acquire("127.0.0.1:0", logx.Nop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	addr := g.Addr()
	_ = g.Close()
	_ = g.Close() // idempotent

	if err := Activate(context.Background(), addr); err == nil {
		t.Fatal("expected dial error with nothing listening")
	}
}

func TestPortFreedAfterClose(t *testing.T) {
	t.Parallel()
	g, err := Acquire("127.0.0.1:0", logx.Nop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	addr := g.Addr()
	_ = g.Close()

	g2, err := Acquire(addr, logx.Nop())
	if err != nil {
		t.Fatalf("re-Acquire after Close: %v", err)
	}
	_ = g2.Close()
}

type flakyListener struct {
	net.Listener

	mu    sync.Mutex
	fails int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	if l.fails > 0 {
		l.fails--
		l.mu.Unlock()
		return nil, &net.OpError{Op: "accept", Net: "tcp", Err: syscall.EMFILE}
	}
	l.mu.Unlock()
	return l.Listener.Accept()
}

func TestServeSurvivesAcceptErrors(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	g := &Guard{ln: &flakyListener{Listener: ln, fails: 3}, log: logx.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- g.Serve(ctx, func(msg string) { got <- msg }) }()

	if err := Activate(ctx, g.Addr()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	select {
	case msg := <-got:
		if msg != ActivateMessage {
			t.Fatalf("msg = %q", msg)
		}
	case err := <-done:
		t.Fatalf("Serve returned early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("activation not received after accept errors")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop on cancel")
	}
}

func TestSilentClientDoesNotBlockActivation(t *testing.T) {
	t.Parallel()
	g, err := Acquire("127.0.0.1:0", logx.Nop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	go func() { _ = g.Serve(ctx, func(msg string) { got <- msg }) }()

	idle, err := net.Dial("tcp", g.Addr())
	if err != nil {
		t.Fatalf("dial idle client: %v", err)
	}
	defer idle.Close()

	if err := Activate(ctx, g.Addr()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	select {
	case msg := <-got:
		if msg != ActivateMessage {
			t.Fatalf("msg = %q, want %q", msg, ActivateMessage)
		}
	case <-time.After(readTimeout / 2):
		t.Fatal("activation waited behind an idle connection")
	}
}

func TestAcceptBackoff(t *testing.T) {
	t.Parallel()
	cases := []struct {
		prev, want time.Duration
	}{
		{0, minAcceptDelay},
		{minAcceptDelay, 2 * minAcceptDelay},
		{maxAcceptDelay / 2, maxAcceptDelay},
		{maxAcceptDelay, maxAcceptDelay},
	}
	for _, tc := range cases {
		if got := acceptBackoff(tc.prev); got != tc.want {
			t.Errorf("acceptBackoff(%v) = %v, want %v", tc.prev, got, tc.want)
		}
	}
}
