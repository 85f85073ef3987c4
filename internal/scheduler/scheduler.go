package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weeklyreminder/internal/eventbus"
	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

const DefaultInterval = 10 * time.Second

type Config struct {
	Interval time.Duration
	// Timezone is an IANA name; empty means time.Local.
	Timezone string
}

// Notifier delivers a fired task. It must not block for long.
type Notifier interface {
	NotifyTask(ctx context.Context, t task.Task) error
}

// FiredEvent is the eventbus payload for eventbus.TaskFired.
type FiredEvent struct {
	TaskID  int    `json:"task_id"`
	Content string `json:"content"`
	Time    string `json:"time"`
	Day     string `json:"day"`
}

type Service struct {
	store  *task.Store
	notify Notifier
	bus    eventbus.Bus
	log    logx.Logger
	now    func() time.Time

	mu     sync.Mutex
	cfg    Config
	loc    *time.Location
	c      *cron.Cron
	runCtx context.Context

	// tickMu serializes Check so ticks never overlap.
	tickMu      sync.Mutex
	lastChecked time.Time
}

func New(cfg Config, store *task.Store, notify Notifier, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		store:  store,
		notify: notify,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
	s.cfg = normalize(cfg)
	s.loc = s.loadLocationLocked()
	return s
}

func normalize(cfg Config) Config {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Interval < time.Second {
		cfg.Interval = time.Second
	}
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	return cfg
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := s.cfg.Timezone
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// Location returns the zone minutes are evaluated in.
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// Running reports whether the cron trigger is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

// Start seeds the minute guard with the current minute, runs one check and
// starts the periodic trigger. A task due in the startup minute does not fire.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return
	}
	s.runCtx = ctx
	s.startLocked()
	cfg := s.cfg
	loc := s.loc
	s.mu.Unlock()

	s.tickMu.Lock()
	if s.lastChecked.IsZero() {
		s.lastChecked = minuteOf(s.now(), loc)
	}
	s.tickMu.Unlock()
	s.Check(ctx, s.now())

	s.log.Info("service started",
		logx.Duration("interval", cfg.Interval),
		logx.String("tz", loc.String()),
		logx.Int("active_tasks", len(s.store.Active())),
	)
}

func (s *Service) startLocked() {
	ctx := s.runCtx
	s.c = cron.New(cron.WithLocation(s.loc))
	spec := fmt.Sprintf("@every %s", s.cfg.Interval.String())
	if _, err := s.c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.Check(ctx, s.now())
	}); err != nil {
		s.log.Error("cron add failed", logx.String("spec", spec), logx.Err(err))
	}
	s.c.Start()
}

// Stop halts the trigger and waits for a running check (bounded by ctx).
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("stop timed out waiting for tick", logx.Err(ctx.Err()))
	}
	s.log.Info("service stopped")
}

// Apply swaps the config. A running trigger is restarted when the interval
// or timezone changed; the minute guard is kept.
func (s *Service) Apply(cfg Config) {
	cfg = normalize(cfg)
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if old == cfg {
		return
	}
	s.loc = s.loadLocationLocked()
	if s.c == nil {
		return
	}
	s.c.Stop()
	s.startLocked()
	s.log.Info("trigger restarted", logx.Duration("interval", cfg.Interval), logx.String("tz", s.loc.String()))
}

// Check evaluates the task list for the minute containing now. It reports
// whether the minute was evaluated (false when it is not later than the last
// evaluated minute) and which tasks fired.
func (s *Service) Check(ctx context.Context, now time.Time) (bool, []task.Task) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	minute := minuteOf(now, s.Location())
	if !s.lastChecked.IsZero() && !minute.After(s.lastChecked) {
		return false, nil
	}
	s.lastChecked = minute

	today := minute.Format(task.DateLayout)
	var fired []task.Task
	for _, t := range s.store.Active() {
		if !t.Due(minute) {
			continue
		}
		log := s.log.With(logx.Int("task_id", t.ID), logx.String("time", t.Time))
		if s.notify != nil {
			if err := s.notify.NotifyTask(ctx, t); err != nil {
				log.Warn("notify failed", logx.Err(err))
			}
		}
		s.store.MarkTriggered(ctx, t.ID, today)
		t.LastTriggered = today
		fired = append(fired, t)
		log.Info("task fired", logx.String("day", today))

		if s.bus != nil {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.TaskFired,
				Time: now,
				Data: FiredEvent{TaskID: t.ID, Content: t.Content, Time: t.Time, Day: today},
			})
		}
	}
	return true, fired
}

// Pending returns active tasks scheduled later today that have not fired yet.
func (s *Service) Pending(now time.Time) []task.Task {
	local := now.In(s.Location())
	day := task.Weekday(local)
	clock := local.Format(task.ClockLayout)
	today := local.Format(task.DateLayout)

	var out []task.Task
	for _, t := range s.store.Active() {
		if !t.OnWeekday(day) || t.LastTriggered == today || t.Time < clock {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b task.Task) int { return strings.Compare(a.Time, b.Time) })
	return out
}

func minuteOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
