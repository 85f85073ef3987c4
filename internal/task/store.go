package task

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	logx "weeklyreminder/pkg/logx"
)

// Backend persists the full task list. Save always receives the complete list
// in store order; implementations rewrite their storage wholesale.
type Backend interface {
	Load(ctx context.Context) ([]Task, error)
	Save(ctx context.Context, tasks []Task) error
	Close() error
}

// Store is the ordered, in-memory task list.
//
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     logx.Logger

	tasks   []Task
	lastErr error
}

// Open loads the store from backend. A load failure leaves the store empty.
func Open(ctx context.Context, backend Backend, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{backend: backend, log: log}
	if backend == nil {
		return s
	}
	tasks, err := backend.Load(ctx)
	if err != nil {
		s.lastErr = err
		s.log.Warn("load tasks failed; starting empty", logx.Err(err))
		return s
	}
	s.tasks = normalizeLoaded(tasks, s.log)
	s.log.Debug("tasks loaded", logx.Int("count", len(tasks)))
	return s
}

// Add appends a new enabled task and persists the list.
//
// The id is one past the highest id in the store, so ids of removed tasks are
// never handed out while a higher id is still present.
func (s *Store) Add(ctx context.Context, content string, weekdays []int, clock string) (Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Task{}, errors.New("task content is empty")
	}
	days, err := NormalizeWeekdays(weekdays)
	if err != nil {
		return Task{}, err
	}
	hhmm, err := NormalizeClock(clock)
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := Task{
		ID:       s.nextIDLocked(),
		Content:  content,
		Weekdays: days,
		Time:     hhmm,
		Enabled:  true,
	}
	s.tasks = append(s.tasks, t)
	s.persistLocked(ctx)
	return t.Clone(), nil
}

func (s *Store) nextIDLocked() int {
	maxID := 0
	for _, t := range s.tasks {
		maxID = max(maxID, t.ID)
	}
	return maxID + 1
}

// Remove deletes the task with id and persists. It reports whether a task was removed.
func (s *Store) Remove(ctx context.Context, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tasks)
	s.tasks = slices.DeleteFunc(s.tasks, func(t Task) bool { return t.ID == id })
	if len(s.tasks) == n {
		return false
	}
	s.persistLocked(ctx)
	return true
}

// SetEnabled toggles a task. It reports whether the task exists.
func (s *Store) SetEnabled(ctx context.Context, id int, enabled bool) bool {
	return s.update(ctx, id, func(t *Task) { t.Enabled = enabled })
}

// MarkTriggered records day (YYYY-MM-DD) as the task's last fire date.
func (s *Store) MarkTriggered(ctx context.Context, id int, day string) bool {
	return s.update(ctx, id, func(t *Task) { t.LastTriggered = day })
}

func (s *Store) update(ctx context.Context, id int, fn func(t *Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	fn(&s.tasks[i])
	s.persistLocked(ctx)
	return true
}

// Active returns enabled tasks in store order.
func (s *Store) Active() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Enabled {
			out = append(out, t.Clone())
		}
	}
	return out
}

// All returns every task in store order.
func (s *Store) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.tasks)
}

func (s *Store) Get(id int) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return Task{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Reload re-reads the backend and replaces the in-memory list when it differs.
// A failed read keeps the current list. It reports whether anything changed.
func (s *Store) Reload(ctx context.Context) bool {
	if s.backend == nil {
		return false
	}
	tasks, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Warn("reload tasks failed; keeping current list", logx.Err(err))
		return false
	}
	tasks = normalizeLoaded(tasks, s.log)
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.EqualFunc(s.tasks, tasks, equalTask) {
		return false
	}
	s.tasks = tasks
	s.log.Info("tasks reloaded", logx.Int("count", len(tasks)))
	return true
}

// Err returns the result of the most recent load or save.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Save(ctx, cloneAll(s.tasks)); err != nil {
		s.lastErr = err
		s.log.Warn("save tasks failed; change kept in memory only", logx.Err(err))
		return
	}
	s.lastErr = nil
}

// normalizeLoaded zero-pads times and sorts weekdays of records read from
// storage, which may have been edited by hand. A record that cannot be
// normalized is kept unchanged so a later save does not drop it; it never
// matches the clock.
func normalizeLoaded(tasks []Task, log logx.Logger) []Task {
	for i := range tasks {
		t := &tasks[i]
		if hhmm, err := NormalizeClock(t.Time); err != nil {
			log.Warn("task has malformed time; it will not fire", logx.Int("id", t.ID), logx.Err(err))
		} else {
			t.Time = hhmm
		}
		if days, err := NormalizeWeekdays(t.Weekdays); err != nil {
			log.Warn("task has malformed weekdays", logx.Int("id", t.ID), logx.Err(err))
		} else {
			t.Weekdays = days
		}
	}
	return tasks
}

func cloneAll(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

func equalTask(a, b Task) bool {
	return a.ID == b.ID &&
		a.Content == b.Content &&
		slices.Equal(a.Weekdays, b.Weekdays) &&
		a.Time == b.Time &&
		a.Enabled == b.Enabled &&
		a.LastTriggered == b.LastTriggered
}
