package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"
)

// jsonStore keeps the whole task list in one JSON document.
//
// Saves go to <path>.tmp first and are renamed over <path>, so a reader never
// sees a half-written file.
type jsonStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openJSON(cfg Config, log logx.Logger) (task.Backend, error) {
	path := filepath.Clean(cfg.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &jsonStore{log: log, path: path}, nil
}

func (s *jsonStore) Load(ctx context.Context) ([]task.Task, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return fromRecords(doc.Tasks), nil
}

func (s *jsonStore) Save(ctx context.Context, tasks []task.Task) error {
	_ = ctx
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Tasks: toRecords(tasks)}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("tasks saved", logx.String("path", s.path), logx.Int("count", len(tasks)))
	return nil
}

func (s *jsonStore) Close() error { return nil }

func toRecords(tasks []task.Task) []record {
	out := make([]record, 0, len(tasks))
	for _, t := range tasks {
		var last *string
		if t.LastTriggered != "" {
			v := t.LastTriggered
			last = &v
		}
		days := t.Weekdays
		if days == nil {
			days = []int{}
		}
		out = append(out, record{
			ID:            t.ID,
			Content:       t.Content,
			Weekdays:      days,
			Time:          t.Time,
			Enabled:       t.Enabled,
			LastTriggered: last,
		})
	}
	return out
}

func fromRecords(recs []record) []task.Task {
	if len(recs) == 0 {
		return nil
	}
	out := make([]task.Task, 0, len(recs))
	for _, r := range recs {
		t := task.Task{
			ID:       r.ID,
			Content:  r.Content,
			Weekdays: r.Weekdays,
			Time:     r.Time,
			Enabled:  r.Enabled,
		}
		if r.LastTriggered != nil {
			t.LastTriggered = *r.LastTriggered
		}
		out = append(out, t)
	}
	return out
}
