package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDurationField parses a config duration such as "10s" or "1m30s".
// A bare number is taken as seconds ("10" == "10s"). Empty means zero.
// path names the field in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q (want e.g. \"10s\" or seconds): %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// ParseDurationBetween parses raw and requires lo <= d <= hi. Empty is
// accepted and returns zero so the caller's default applies.
func ParseDurationBetween(path, raw string, lo, hi time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d == 0 {
		return d, err
	}
	if d < lo {
		return 0, fmt.Errorf("%s: must be >= %s", path, lo)
	}
	if d > hi {
		return 0, fmt.Errorf("%s: must be <= %s", path, hi)
	}
	return d, nil
}
