package task

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var weekdayFullNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var weekdayAliases = map[string][]int{
	"daily":    {0, 1, 2, 3, 4, 5, 6},
	"everyday": {0, 1, 2, 3, 4, 5, 6},
	"weekdays": {0, 1, 2, 3, 4},
	"weekend":  {5, 6},
}

// NormalizeWeekdays de-duplicates and sorts days, rejecting values outside 0..6.
func NormalizeWeekdays(days []int) ([]int, error) {
	set := mapset.NewThreadUnsafeSet[int]()
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %d: must be 0 (Mon) .. 6 (Sun)", d)
		}
		set.Add(d)
	}
	out := set.ToSlice()
	slices.Sort(out)
	return out, nil
}

// ParseWeekdays parses a comma separated list of day names ("mon", "tuesday"),
// numbers (0 = Monday) or aliases ("weekdays", "weekend", "daily").
func ParseWeekdays(raw string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(raw, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		if alias, ok := weekdayAliases[p]; ok {
			days = append(days, alias...)
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			days = append(days, n)
			continue
		}
		d, ok := weekdayByName(p)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, d)
	}
	return NormalizeWeekdays(days)
}

func weekdayByName(p string) (int, bool) {
	if len(p) < 3 {
		return 0, false
	}
	for i, name := range weekdayFullNames {
		if strings.HasPrefix(name, p) {
			return i, true
		}
	}
	return 0, false
}

// FormatWeekdays renders days as "Mon, Wed, Fri".
func FormatWeekdays(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(weekdayNames) {
			names = append(names, weekdayNames[d])
		}
	}
	return strings.Join(names, ", ")
}
