package task

import (
	"slices"
	"testing"
	"time"

	logx "weeklyreminder/pkg/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

func TestWeekdayStartsMonday(t *testing.T) {
	t.Parallel()
	// 2026-10-19 is a Monday.
	mon := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := Weekday(mon.AddDate(0, 0, i)); got != i {
			t.Fatalf("Weekday(%s) = %d, want %d", mon.AddDate(0, 0, i).Weekday(), got, i)
		}
	}
}

func TestNormalizeClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"09:00", "09:00", true},
		{"9:5", "09:05", true},
		{" 23:59 ", "23:59", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"noon", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeClock(tt.raw)
		if (err == nil) != tt.ok {
			t.Fatalf("NormalizeClock(%q) err = %v, want ok=%v", tt.raw, err, tt.ok)
		}
		if got != tt.want {
			t.Fatalf("NormalizeClock(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{name: "names", raw: "mon,wed,fri", want: []int{0, 2, 4}},
		{name: "full names", raw: "Tuesday, thursday", want: []int{1, 3}},
		{name: "numbers", raw: "6,0,6", want: []int{0, 6}},
		{name: "weekend alias", raw: "weekend", want: []int{5, 6}},
		{name: "mixed", raw: "weekdays,sun", want: []int{0, 1, 2, 3, 4, 6}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeekdays(tt.raw)
			if err != nil {
				t.Fatalf("ParseWeekdays(%q) error: %v", tt.raw, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ParseWeekdays(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"funday", "7", "-1", "mo"} {
		if _, err := ParseWeekdays(bad); err == nil {
			t.Fatalf("ParseWeekdays(%q): expected error", bad)
		}
	}
}

func TestDue(t *testing.T) {
	t.Parallel()
	mon9 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	tk := Task{ID: 1, Weekdays: []int{0, 2, 4}, Time: "09:00", Enabled: true}

	if !tk.Due(mon9) {
		t.Fatal("expected due on Monday 09:00")
	}
	if tk.Due(mon9.Add(time.Minute)) {
		t.Fatal("not due at 09:01")
	}
	if tk.Due(mon9.AddDate(0, 0, 1)) {
		t.Fatal("not due on Tuesday")
	}
	tk.LastTriggered = "2026-10-19"
	if tk.Due(mon9) {
		t.Fatal("not due again on the day it already fired")
	}
}

func TestFormatWeekdays(t *testing.T) {
	t.Parallel()
	if got := FormatWeekdays([]int{0, 2, 4}); got != "Mon, Wed, Fri" {
		t.Fatalf("FormatWeekdays = %q", got)
	}
}
