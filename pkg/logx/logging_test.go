package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "test"))

	log.Debug("hidden")
	log.Info("hello", Int("n", 3), Err(errors.New("boom")), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev["message"] != "hello" || ev["comp"] != "test" || ev["n"] != float64(3) {
		t.Fatalf("unexpected event: %v", ev)
	}
	if c, _ := ev["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %v", ev["caller"])
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var log Logger
	if !log.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	log.Info("nothing happens")
	log.With(String("k", "v")).Error("still nothing")
	if Nop().IsZero() {
		t.Fatal("Nop is an explicit logger")
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()
	for _, lvl := range []string{"", "debug", "INFO", "warning", "error", "trace"} {
		if !ValidLevel(lvl) {
			t.Fatalf("ValidLevel(%q) = false", lvl)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}

func TestServiceWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reminder.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.Info("to file", String("k", "v"))
	log.Debug("filtered")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("after apply")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"to file"`) || !strings.Contains(s, `"after apply"`) {
		t.Fatalf("log file missing entries:\n%s", s)
	}
	if strings.Contains(s, "filtered") {
		t.Fatalf("debug entry written at info level:\n%s", s)
	}
}
