// Package scheduling holds the pure appointment-scheduling core: interval
// overlap, conflict detection, availability containment and recurring-series
// expansion. Nothing in this package performs I/O; callers supply data and
// persist results.
package scheduling

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Interval is a half-open time window [Start, End) in minutes from midnight,
// anchored to a calendar date. Intervals on different dates never overlap;
// multi-day appointments are not modeled.
type Interval struct {
	Date  string
	Start int
	End   int
}

// NewInterval builds an interval from a YYYY-MM-DD date, an HH:MM start time
// and a positive duration in minutes.
func NewInterval(date, start string, durationMins int) (Interval, error) {
	if err := ValidateDate(date); err != nil {
		return Interval{}, err
	}
	m, err := parseMinutes(start)
	if err != nil {
		return Interval{}, err
	}
	if durationMins <= 0 {
		return Interval{}, fmt.Errorf("duration must be positive, got %d", durationMins)
	}
	return Interval{Date: date, Start: m, End: m + durationMins}, nil
}

// Overlaps reports whether two intervals share any instant. Boundaries are
// exclusive: an interval ending exactly when another starts does not overlap.
func (i Interval) Overlaps(o Interval) bool {
	if i.Date != o.Date {
		return false
	}
	return i.Start < o.End && o.Start < i.End
}

// ValidateDate checks a YYYY-MM-DD calendar date string.
func ValidateDate(date string) error {
	if !dateRe.MatchString(date) {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return nil
}

// ValidateTime checks an HH:MM 24-hour time string.
func ValidateTime(t string) error {
	if !timeRe.MatchString(t) {
		return fmt.Errorf("invalid time %q, want HH:MM", t)
	}
	return nil
}

func parseMinutes(t string) (int, error) {
	if err := ValidateTime(t); err != nil {
		return 0, err
	}
	parts := strings.SplitN(t, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m, nil
}
