// Package months provides calendar month arithmetic used to key reports.
package months

import (
	"fmt"
	"strings"
	"time"
)

// LabelLayout is the "YYYY-MM" layout used in query parameters and responses.
const LabelLayout = "2006-01"

// FirstDay returns midnight UTC of the first day of t's month.
func FirstDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns midnight UTC of the last day of t's month.
// Day 28 always exists; four days later is always in the following month.
func LastDay(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), 28, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 4)
	return FirstDay(next).AddDate(0, 0, -1)
}

// Label formats t as "YYYY-MM".
func Label(t time.Time) string {
	return t.Format(LabelLayout)
}

// LastCompleted returns the first day of the most recent fully elapsed month relative to now.
func LastCompleted(now time.Time) time.Time {
	return FirstDay(FirstDay(now).AddDate(0, 0, -1))
}

// Parse reads a "YYYY-MM" string into the first day of that month.
func Parse(raw string) (time.Time, error) {
	t, err := time.Parse(LabelLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", raw, err)
	}
	return FirstDay(t), nil
}

// Between enumerates the first day of every month from start to end inclusive.
// It returns nil when end precedes start.
func Between(start, end time.Time) []time.Time {
	start, end = FirstDay(start), FirstDay(end)
	if end.Before(start) {
		return nil
	}
	var out []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}
