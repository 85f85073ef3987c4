package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"weeklyreminder/internal/eventbus"
	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

type fakeSink struct {
	name string

	mu       sync.Mutex
	failures int // fail this many calls before succeeding
	calls    int
	got      []Message
	sent     chan Message
}

func newFakeSink(name string, failures int) *fakeSink {
	return &fakeSink{name: name, failures: failures, sent: make(chan Message, 16)}
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(ctx context.Context, m Message) error {
	f.mu.Lock()
	f.calls++
	if f.calls <= f.failures {
		f.mu.Unlock()
		return errors.New("boom")
	}
	f.got = append(f.got, m)
	f.mu.Unlock()
	f.sent <- m
	return nil
}

func (f *fakeSink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() Config {
	return Config{
		Workers:       1,
		QueueSize:     8,
		RatePerSec:    100,
		RetryMax:      2,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 5 * time.Millisecond,
	}
}

func waitMessage(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return Message{}
	}
}

func TestFromTaskFormatsBody(t *testing.T) {
	t.Parallel()
	m := FromTask(task.Task{ID: 3, Content: "Stand-up", Time: "09:00"}, true)
	if m.Body != "⏰ 09:00\n\nStand-up" {
		t.Fatalf("body = %q", m.Body)
	}
	if !m.Persistent || m.TaskID != 3 || m.Kind != KindTask {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestSummaryListsTasks(t *testing.T) {
	t.Parallel()
	m := Summary([]task.Task{{Time: "14:00", Content: "Call"}, {Time: "20:00", Content: "Read"}})
	if !strings.HasPrefix(m.Body, "2 more today:") || !strings.Contains(m.Body, "⏰ 20:00  Read") {
		t.Fatalf("body = %q", m.Body)
	}
	if empty := Summary(nil); empty.Body != "No more reminders today." {
		t.Fatalf("empty body = %q", empty.Body)
	}
}

func TestNotifyDeliversToAllSinks(t *testing.T) {
	t.Parallel()
	a, b := newFakeSink("a", 0), newFakeSink("b", 0)
	svc := New(testConfig(), []Sink{a, b}, logx.Nop(), nil)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop(ctx)

	if err := svc.NotifyTask(ctx, task.Task{ID: 1, Content: "x", Time: "10:00"}); err != nil {
		t.Fatalf("NotifyTask: %v", err)
	}
	if got := waitMessage(t, a.sent); got.TaskID != 1 {
		t.Fatalf("sink a got %+v", got)
	}
	if got := waitMessage(t, b.sent); got.TaskID != 1 {
		t.Fatalf("sink b got %+v", got)
	}
}

func TestPopupMarksTaskPersistent(t *testing.T) {
	t.Parallel()
	sk := newFakeSink("a", 0)
	cfg := testConfig()
	cfg.Popup = true
	svc := New(cfg, []Sink{sk}, logx.Nop(), nil)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop(ctx)

	_ = svc.NotifyTask(ctx, task.Task{ID: 2, Time: "08:00"})
	if m := waitMessage(t, sk.sent); !m.Persistent {
		t.Fatal("popup mode should mark task messages persistent")
	}
}

func TestRetryThenSucceed(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	sk := newFakeSink("flaky", 2)
	svc := New(testConfig(), []Sink{sk}, logx.Nop(), bus)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop(ctx)

	_ = svc.Notify(ctx, Message{Kind: KindTask, TaskID: 9, Title: "t", Body: "b"})
	waitMessage(t, sk.sent)
	if sk.callCount() != 3 {
		t.Fatalf("calls = %d, want 3", sk.callCount())
	}

	select {
	case e := <-events:
		if e.Type != eventbus.NotifySent {
			t.Fatalf("event = %q, want %q", e.Type, eventbus.NotifySent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sent event")
	}
}

func TestRetryExhaustedPublishesFailure(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	bad := newFakeSink("bad", 100)
	svc := New(testConfig(), []Sink{bad}, logx.Nop(), bus)
	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop(ctx)

	_ = svc.Notify(ctx, Message{Kind: KindTask, TaskID: 4})
	select {
	case e := <-events:
		if e.Type != eventbus.NotifyFailed {
			t.Fatalf("event = %q", e.Type)
		}
		if ev := e.Data.(NotificationEvent); ev.Sink != "bad" || ev.Error == "" {
			t.Fatalf("payload = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no failure event")
	}
	if bad.callCount() != 3 {
		t.Fatalf("calls = %d, want 1 + RetryMax", bad.callCount())
	}
	if len(svc.Snapshot()) != 0 {
		t.Fatal("failed delivery should not enter history")
	}
}

func TestNotifyBeforeStartIsStopped(t *testing.T) {
	t.Parallel()
	svc := New(testConfig(), nil, logx.Nop(), nil)
	if err := svc.Notify(context.Background(), Message{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestStopDrainsQueue(t *testing.T) {
	t.Parallel()
	sk := newFakeSink("a", 0)
	svc := New(testConfig(), []Sink{sk}, logx.Nop(), nil)
	ctx := context.Background()
	svc.Start(ctx)
	for i := 1; i <= 3; i++ {
		if err := svc.Notify(ctx, Message{TaskID: i}); err != nil {
			t.Fatalf("Notify %d: %v", i, err)
		}
	}
	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	svc.Stop(stopCtx)

	if len(sk.sent) != 3 {
		t.Fatalf("delivered %d, want 3", len(sk.sent))
	}
	if n := len(svc.Snapshot()); n != 3 {
		t.Fatalf("history = %d, want 3", n)
	}
	if err := svc.Notify(ctx, Message{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("after stop err = %v", err)
	}
}

func TestDesktopParams(t *testing.T) {
	t.Parallel()
	cfg := DesktopConfig{Expire: 8 * time.Second}
	if u, e := desktopParams(cfg, Message{Persistent: true}); u != urgencyCritical || e != 0 {
		t.Fatalf("persistent = (%d, %d)", u, e)
	}
	if u, e := desktopParams(cfg, Message{}); u != urgencyNormal || e != 8000 {
		t.Fatalf("transient = (%d, %d)", u, e)
	}
	if _, e := desktopParams(DesktopConfig{}, Message{}); e != -1 {
		t.Fatalf("default expire = %d", e)
	}
}

func TestRetryDelayBounded(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v out of range", attempt, d)
		}
	}
}

func TestTelegramSinkRequiresConfig(t *testing.T) {
	t.Parallel()
	if _, err := NewTelegramSink(TelegramConfig{ChatID: 1}); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewTelegramSink(TelegramConfig{Token: "x"}); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestTelegramHTMLEscapesAndTruncates(t *testing.T) {
	t.Parallel()
	got := telegramHTML(Message{Title: "T", Body: "a <b> & c"})
	if got != "<b>T</b>\na &lt;b&gt; &amp; c" {
		t.Fatalf("html = %q", got)
	}
	long := telegramHTML(Message{Body: strings.Repeat("é", telegramMaxRunes+10)})
	if n := len([]rune(long)); n != telegramMaxRunes {
		t.Fatalf("runes = %d, want %d", n, telegramMaxRunes)
	}
}
