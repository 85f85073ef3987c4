package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"weeklyreminder/internal/app"
	"weeklyreminder/internal/config"
	"weeklyreminder/internal/instance"
	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

const usage = `usage: reminder [-config path] <command> [args]

commands:
  run                                   start the reminder daemon (default)
  add -content TEXT -days DAYS -at HH:MM add a weekly reminder
  list                                  list reminders
  remove ID                             delete a reminder
  enable ID | disable ID                toggle a reminder
  activate                              poke the running daemon

DAYS is a comma separated list: mon..sun, 0..6 (0 = Monday), weekdays, weekend, daily.
`

func main() {
	config.LoadEnv()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to config yaml/json")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = run(cfgPath)
	case "activate":
		err = activate(cfgPath)
	case "add":
		err = withStore(cfgPath, func(ctx context.Context, st *task.Store) error { return add(ctx, st, args) })
	case "list":
		err = withStore(cfgPath, func(ctx context.Context, st *task.Store) error { return list(os.Stdout, st) })
	case "remove":
		err = withStore(cfgPath, func(ctx context.Context, st *task.Store) error { return remove(ctx, st, args) })
	case "enable", "disable":
		enabled := cmd == "enable"
		err = withStore(cfgPath, func(ctx context.Context, st *task.Store) error { return setEnabled(ctx, st, args, enabled) })
	case "help", "-h", "--help":
		flag.Usage()
		return
	default:
		err = fmt.Errorf("unknown command %q", cmd)
		flag.Usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if errors.Is(err, app.ErrAlreadyRunning) {
		// Defer to the running daemon. Activation problems are not the user's concern.
		if aerr := activate(cfgPath); aerr != nil {
			logx.NewConsole("debug").Debug("activate failed", logx.Err(aerr))
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}

	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return fmt.Errorf("fatal start: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	reason := app.StopSIGINT
	if a.Err() != nil {
		reason = app.StopFatalError
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return fmt.Errorf("fatal: %w", a.Err())
	}
	return nil
}

func loadConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

func activate(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return instance.Activate(ctx, cfg.Instance.Addr)
}

// withStore opens the task store, runs fn and fails if the store could not
// be loaded or saved.
func withStore(cfgPath string, fn func(ctx context.Context, st *task.Store) error) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	log := logx.NewConsole("warn")
	ctx := context.Background()
	st, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Err(); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	if err := fn(ctx, st); err != nil {
		return err
	}
	if err := st.Err(); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func add(ctx context.Context, st *task.Store, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	content := fs.String("content", "", "reminder text")
	days := fs.String("days", "", "weekdays, e.g. mon,wed,fri")
	at := fs.String("at", "", "time of day, HH:MM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	weekdays, err := task.ParseWeekdays(*days)
	if err != nil {
		return err
	}
	if len(weekdays) == 0 {
		return errors.New("at least one weekday is required (-days)")
	}
	t, err := st.Add(ctx, *content, weekdays, *at)
	if err != nil {
		return err
	}
	fmt.Printf("added #%d  %s  %s  %s\n", t.ID, t.Time, task.FormatWeekdays(t.Weekdays), t.Content)
	return nil
}

func list(w io.Writer, st *task.Store) error {
	tasks := st.All()
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no reminders")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tDAYS\tENABLED\tLAST\tCONTENT")
	for _, t := range tasks {
		last := t.LastTriggered
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%s\n", t.ID, t.Time, task.FormatWeekdays(t.Weekdays), t.Enabled, last, t.Content)
	}
	return tw.Flush()
}

func parseID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one task id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

func remove(ctx context.Context, st *task.Store, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if !st.Remove(ctx, id) {
		return fmt.Errorf("task #%d not found", id)
	}
	fmt.Printf("removed #%d\n", id)
	return nil
}

func setEnabled(ctx context.Context, st *task.Store, args []string, enabled bool) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if !st.SetEnabled(ctx, id, enabled) {
		return fmt.Errorf("task #%d not found", id)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("%s #%d\n", state, id)
	return nil
}
