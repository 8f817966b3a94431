package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned for end-time expressions that cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

var relativePattern = regexp.MustCompile(`^(\d+)\s*([mhd])$`)

// ParseDuration extends time.ParseDuration to support days (d) and a space before the unit.
func ParseDuration(s string) (time.Duration, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if m := relativePattern.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
		}
		switch m[2] {
		case "m":
			return time.Duration(n) * time.Minute, nil
		case "h":
			return time.Duration(n) * time.Hour, nil
		default:
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
	}
	return d, nil
}

// ParseEndTime resolves a giveaway end expression relative to now.
// Accepted: "30m", "2h", "1d", "2006-01-02 15:04" and "15:04" (tomorrow when already passed).
// The result must lie in the future.
func ParseEndTime(expr string, now time.Time, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: no end time given", ErrInvalidDuration)
	}
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	var end time.Time
	if d, err := ParseDuration(raw); err == nil {
		end = now.Add(d)
	} else if t, err := time.ParseInLocation("2006-01-02 15:04", raw, loc); err == nil {
		end = t
	} else if t, err := time.ParseInLocation("15:04", raw, loc); err == nil {
		end = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		if !end.After(now) {
			end = end.AddDate(0, 0, 1)
		}
	} else {
		return time.Time{}, fmt.Errorf("%w: use e.g. 30m, 2h, 1d, 19:00 or 2026-01-12 19:00", ErrInvalidDuration)
	}

	if !end.After(now) {
		return time.Time{}, fmt.Errorf("%w: end time lies in the past", ErrInvalidDuration)
	}
	return end, nil
}
