package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"weeklyreminder/internal/config"
	"weeklyreminder/internal/eventbus"
	"weeklyreminder/internal/fswatch"
	"weeklyreminder/internal/instance"
	"weeklyreminder/internal/notifier"
	"weeklyreminder/internal/runtime/supervisor"
	"weeklyreminder/internal/scheduler"
	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

// ErrAlreadyRunning is returned by NewApp when another daemon holds the instance port.
var ErrAlreadyRunning = instance.ErrAlreadyRunning

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	guard     *instance.Guard
	store     *task.Store
	storePath string

	sinksMu sync.Mutex
	sinks   []notifier.Sink

	sched *scheduler.Service
	notif *notifier.Service

	sdNotify bool
}

// NewApp loads the config, claims the single-instance port and wires the
// services. It returns ErrAlreadyRunning (wrapped) when a daemon is already up.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := validateMapped(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))

	guard, err := instance.Acquire(cfg.Instance.Addr, log.With(logx.String("comp", "instance")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	ctx := context.Background()
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		_ = guard.Close()
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()

	sinks, err := buildSinks(cfg, log)
	if err != nil {
		_ = store.Close()
		_ = guard.Close()
		_ = logSvc.Close()
		return nil, err
	}
	ncfg, _ := mapNotifierConfig(cfg)
	notifSvc := notifier.New(ncfg, sinks, log.With(logx.String("comp", "notifier")), bus)

	scfg, _ := mapSchedulerConfig(cfg)
	schedSvc := scheduler.New(scfg, store, notifSvc, bus, log.With(logx.String("comp", "scheduler")))

	return &App{
		cfgm:      cfgm,
		log:       log.With(logx.String("comp", "app")),
		logs:      logSvc,
		bus:       bus,
		guard:     guard,
		store:     store,
		storePath: cfg.Store.Path,
		sinks:     sinks,
		sched:     schedSvc,
		notif:     notifSvc,
		sdNotify:  cfg.Systemd.Notify,
	}, nil
}

func (a *App) Store() *task.Store { return a.store }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	// transactional config reload: validate before commit/publish
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return validateMapped(cfg)
	})

	runCtx := a.sup.Context()
	a.notif.Start(runCtx)
	a.sched.Start(runCtx)

	a.sup.Go("instance.serve", func(c context.Context) error {
		return a.guard.Serve(c, func(msg string) { a.onActivate(c, msg) })
	})

	a.sup.Go("store.watch", func(c context.Context) error {
		return fswatch.Watch(c, a.storePath, fswatch.DefaultDebounce, a.log.With(logx.String("comp", "store.watch")), func() {
			a.reloadStore(c)
		})
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if a.sdNotify {
		sdNotify(a.log, sdReady)
	}
	a.log.Info("app started",
		logx.String("instance", a.guard.Addr()),
		logx.String("store", a.storePath),
		logx.Int("tasks", a.store.Len()),
		logx.String("sinks", strings.Join(a.notif.SinkNames(), ",")),
	)
	return nil
}

// onActivate handles a second launch: the daemon answers with a summary of
// what is still due today.
func (a *App) onActivate(ctx context.Context, msg string) {
	a.log.Info("activation requested", logx.String("msg", msg))
	a.bus.Publish(eventbus.Event{Type: eventbus.InstanceActivated, Data: msg})

	pending := a.sched.Pending(time.Now())
	if err := a.notif.Notify(ctx, notifier.Summary(pending)); err != nil {
		a.log.Warn("activation summary not sent", logx.Err(err))
	}
}

func (a *App) reloadStore(ctx context.Context) {
	if !a.store.Reload(ctx) {
		return
	}
	a.bus.Publish(eventbus.Event{Type: eventbus.TasksReloaded, Data: a.store.Len()})
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if scfg, err := mapSchedulerConfig(newCfg); err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else {
		a.sched.Apply(scfg)
	}

	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}
	if oldCfg.Notifier.Desktop != newCfg.Notifier.Desktop ||
		oldCfg.Notifier.Telegram != newCfg.Notifier.Telegram ||
		oldCfg.Notifier.Expire != newCfg.Notifier.Expire {
		a.swapSinks(newCfg)
	}

	for _, s := range sections {
		switch s {
		case "store", "instance", "systemd":
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) swapSinks(cfg *config.Config) {
	sinks, err := buildSinks(cfg, a.log)
	if err != nil {
		a.log.Warn("notifier sinks rebuild failed; keeping previous", logx.Err(err))
		return
	}
	a.sinksMu.Lock()
	old := a.sinks
	a.sinks = sinks
	a.sinksMu.Unlock()

	a.notif.SetSinks(sinks)
	closeSinks(old)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.sdNotify {
		sdNotify(a.log, sdStopping)
	}

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 3*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("instance", time.Second, func(c context.Context) error { return a.guard.Close() })
	step("sinks", time.Second, func(c context.Context) error {
		a.sinksMu.Lock()
		closeSinks(a.sinks)
		a.sinksMu.Unlock()
		return nil
	})
	step("store", time.Second, func(c context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
