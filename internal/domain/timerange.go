package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used across the scheduler.
const DateLayout = "2006-01-02"

const minutesPerDay = 24 * 60

// TimeRange is a half-open [start, end) time-of-day window, in minutes
// since midnight. Ranges that merely touch do not overlap.
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

// NewTimeRange validates the bounds; start must precede end and both must
// fall within a single day (no overnight wraparound).
func NewTimeRange(startMinute, endMinute int) (TimeRange, error) {
	if startMinute < 0 || endMinute > minutesPerDay || startMinute >= endMinute {
		return TimeRange{}, ErrInvalidRange
	}
	return TimeRange{StartMinute: startMinute, EndMinute: endMinute}, nil
}

// Overlaps reports whether the two half-open ranges intersect.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.StartMinute < other.EndMinute && other.StartMinute < r.EndMinute
}

// ParseTimeOfDay converts "HH:MM" to minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, ErrInvalidRange)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatTimeOfDay renders minutes since midnight as "HH:MM".
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
