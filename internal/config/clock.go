package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Built-in weather window (07:00 to 09:00), used when the configured clock
// strings are absent or invalid.
const (
	DefaultWeatherStartMinutes = 7 * 60
	DefaultWeatherEndMinutes   = 9 * 60
)

// Accepts "7", "07:00", "7:30", "7pm", "11:30 p.m." after normalization.
var clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{1,2}))?(a|am|p|pm)?$`)

var clockNormalizer = strings.NewReplacer(" ", "", ".", "")

// ParseClockTime converts a free-form clock string into a minute of day
// (0-1439). Case, spaces and periods are ignored. The minute part and an
// am/pm suffix are optional.
func ParseClockTime(raw string) (int, error) {
	normalized := clockNormalizer.Replace(strings.ToLower(strings.TrimSpace(raw)))

	m := clockPattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0, fmt.Errorf("invalid clock time: %q", raw)
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	suffix := m[3]

	if minute > 59 {
		return 0, fmt.Errorf("invalid minute in clock time: %q", raw)
	}

	if suffix != "" {
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid 12-hour clock time: %q", raw)
		}
		if suffix[0] == 'a' {
			if hour == 12 {
				hour = 0
			}
		} else if hour != 12 {
			hour += 12
		}
	} else if hour > 23 {
		return 0, fmt.Errorf("invalid hour in clock time: %q", raw)
	}

	return hour*60 + minute, nil
}

// FormatMinutes renders a minute of day as "HH:MM"
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Window is a daily recurring interval in minutes of day. Start after End
// wraps past midnight; equal Start and End disables the window.
type Window struct {
	Start int
	End   int
}

// Disabled reports whether the window never matches
func (w Window) Disabled() bool {
	return w.Start == w.End
}

// Contains reports whether the given minute of day falls inside the window
func (w Window) Contains(minute int) bool {
	if w.Start == w.End {
		return false
	}
	if w.Start < w.End {
		return w.Start <= minute && minute < w.End
	}
	return minute >= w.Start || minute < w.End
}

// String renders the window as "HH:MM-HH:MM"
func (w Window) String() string {
	return FormatMinutes(w.Start) + "-" + FormatMinutes(w.End)
}
