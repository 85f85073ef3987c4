// Package fswatch calls back when a single file changes on disk.
//
// It watches the parent directory (so editors that replace the file via
// rename are seen), debounces bursts of events, and recreates the fsnotify
// watcher with backoff when it breaks.
package fswatch

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "weeklyreminder/pkg/logx"
)

const (
	DefaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watch blocks until ctx is done, calling onChange (from a timer goroutine)
// after path is written, created, renamed or removed.
func Watch(ctx context.Context, path string, debounce time.Duration, log logx.Logger, onChange func()) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	trigger := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			if ctx.Err() != nil {
				return
			}
			onChange()
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sleep := func(reason string, err error) bool {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		backoff = min(backoff*2, restartBackoffMax)
		log.Warn(reason, logx.String("dir", dir), logx.Err(err), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			if !sleep("watch init failed", err) {
				return nil
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			// The directory may not exist yet (first run before any save).
			_ = os.MkdirAll(dir, 0o755)
			if !sleep("watch add failed", err) {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		log.Debug("watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					trigger()
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means events were missed; reload once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					log.Warn("watch overflow; forcing reload", logx.Err(err))
					trigger()
					continue
				}
				log.Warn("watch error", logx.Err(err))
			}
		}

		_ = w.Close()
		if !sleep("watcher stopped; restarting", nil) {
			return nil
		}
	}
}
