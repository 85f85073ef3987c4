package notifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"weeklyreminder/internal/eventbus"
	rtsup "weeklyreminder/internal/runtime/supervisor"
	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

const historyMax = 100

// Service implements an async notification pipeline:
// queue + worker pool + rate limit + per-sink retry.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log   logx.Logger
	bus   eventbus.Bus
	sinks []Sink

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan Message
	sup      *rtsup.Supervisor
	stopDone chan struct{} // non-nil while stopping

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sinks []Sink, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, bus: bus, sinks: append([]Sink(nil), sinks...)}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	s.cfg = cfg
	// burst = rate so a handful of tasks sharing a minute go out together.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// SetSinks replaces the delivery targets. Old sinks implementing io.Closer
// are not closed here; the caller owns them.
func (s *Service) SetSinks(sinks []Sink) {
	s.mu.Lock()
	s.sinks = append([]Sink(nil), sinks...)
	s.mu.Unlock()
}

func (s *Service) SinkNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sinks))
	for _, sk := range s.sinks {
		out = append(out, sk.Name())
	}
	return out
}

// Start launches the workers. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
	}
	if s.queue != nil {
		s.mu.Unlock()
		return
	}

	s.queue = make(chan Message, s.cfg.QueueSize)
	s.accepting = true
	workers := s.cfg.Workers
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log),
		// a broken sink must not take down the daemon
		rtsup.WithCancelOnError(false),
	)
	sup := s.sup
	q := s.queue
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		sup.GoRestart(fmt.Sprintf("worker.%d", i), 250*time.Millisecond, 5*time.Second, func(c context.Context) error {
			s.workerLoop(c, q)
			s.mu.Lock()
			stopping := s.stopDone != nil
			s.mu.Unlock()
			if stopping || c.Err() != nil {
				return context.Canceled
			}
			return errors.New("notifier worker exited unexpectedly")
		})
	}
	s.log.Info("service started", logx.Int("workers", workers), logx.Int("queue", cap(q)))
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	sup := s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	s.accepting = false
	s.mu.Unlock()

	go func() {
		defer close(done)
		// in-flight Notify calls finish before the queue closes
		s.sendWG.Wait()
		close(q)
		_ = sup.Wait(context.Background())

		s.mu.Lock()
		s.queue = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
		s.log.Info("service stopped")
	case <-ctx.Done():
		sup.Cancel()
		s.log.Warn("stop deadline reached; pending notifications dropped")
	}
}

// Notify enqueues m. It never blocks on delivery.
func (s *Service) Notify(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	select {
	case q <- m:
		return nil
	default:
		s.publish(eventbus.NotifyDropped, m, "", ErrQueueFull)
		return ErrQueueFull
	}
}

// NotifyTask enqueues the reminder for a fired task.
func (s *Service) NotifyTask(ctx context.Context, t task.Task) error {
	s.mu.Lock()
	popup := s.cfg.Popup
	s.mu.Unlock()
	return s.Notify(ctx, FromTask(t, popup))
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(m Message, sinks []string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Kind: m.Kind, TaskID: m.TaskID, Title: m.Title, Sinks: sinks})
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()
}

func (s *Service) workerLoop(ctx context.Context, q <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-q:
			if !ok {
				return
			}
			s.deliver(ctx, m)
		}
	}
}

func (s *Service) deliver(ctx context.Context, m Message) {
	s.mu.Lock()
	lim := s.limiter
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return
	}

	var ok []string
	for _, sk := range sinks {
		if err := s.sendWithRetry(ctx, sk, m); err != nil {
			s.publish(eventbus.NotifyFailed, m, sk.Name(), err)
			s.log.Warn("notify failed", logx.String("sink", sk.Name()), logx.Int("task_id", m.TaskID), logx.Err(err))
			continue
		}
		ok = append(ok, sk.Name())
		s.publish(eventbus.NotifySent, m, sk.Name(), nil)
	}
	if len(ok) > 0 {
		s.appendHistory(m, ok)
	}
}

func (s *Service) sendWithRetry(ctx context.Context, sk Sink, m Message) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := sk.Send(callCtx, m)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		s.log.Debug("notify send failed", logx.String("sink", sk.Name()), logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))
		if attempt >= maxAttempts {
			break
		}

		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

func (s *Service) publish(typ string, m Message, sink string, err error) {
	if s.bus == nil {
		return
	}
	now := time.Now()
	ev := NotificationEvent{Kind: m.Kind, TaskID: m.TaskID, Sink: sink, At: now}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
}

// retryDelay is the wait before attempt+1: base*2^(attempt-1), capped, with 0.7..1.3 jitter.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d > cfg.RetryMaxDelay {
		d = cfg.RetryMaxDelay
	}
	return d
}
