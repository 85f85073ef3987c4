package task

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of Task.LastTriggered.
const DateLayout = "2006-01-02"

// ClockLayout is the layout of Task.Time.
const ClockLayout = "15:04"

// Task is a recurring weekly reminder.
//
// Weekdays use 0 = Monday .. 6 = Sunday.
type Task struct {
	ID            int    `json:"id"`
	Content       string `json:"content"`
	Weekdays      []int  `json:"weekdays"`
	Time          string `json:"time"`
	Enabled       bool   `json:"enabled"`
	LastTriggered string `json:"last_triggered"`
}

// Clone returns a deep copy so callers can't mutate store state through the slice.
func (t Task) Clone() Task {
	t.Weekdays = slices.Clone(t.Weekdays)
	return t
}

// OnWeekday reports whether the task is scheduled for day (0 = Monday).
func (t Task) OnWeekday(day int) bool {
	return slices.Contains(t.Weekdays, day)
}

// Due reports whether the task should fire at now (minute resolution).
// It ignores Enabled; callers filter with Store.Active.
func (t Task) Due(now time.Time) bool {
	if !t.OnWeekday(Weekday(now)) {
		return false
	}
	if t.Time != now.Format(ClockLayout) {
		return false
	}
	return t.LastTriggered != now.Format(DateLayout)
}

// Weekday maps time.Weekday (Sunday = 0) onto the task numbering (Monday = 0).
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// NormalizeClock validates a time of day and returns it zero-padded ("9:5" -> "09:05").
func NormalizeClock(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q: want HH:MM", raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("invalid time %q: hour must be 0-23", raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("invalid time %q: minute must be 0-59", raw)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}
