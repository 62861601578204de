// Package dateutil provides the reporting-date windows and lenient date
// handling used throughout the statistics engine.
package dateutil

import (
	"strings"
	"time"
)

// DateLayout is the canonical date format accepted in configuration and
// spreadsheet cells.
const DateLayout = "2006-01-02"

// Never is the sentinel for dates that could not be parsed. It is far enough
// in the future that it can never fall inside a bounded reporting window,
// which lets unparseable maturity cells mean "not yet due" without special
// cases at every comparison site.
var Never = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// IsNever reports whether t is the unparseable-date sentinel.
func IsNever(t time.Time) bool {
	return t.Equal(Never)
}

// Midnight truncates t to the start of its day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, comparing at day
// granularity.
func (w Window) Contains(t time.Time) bool {
	d := Midnight(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// YearWindow returns January 1 through December 31 of the as-of date's year.
func YearWindow(asOf time.Time) Window {
	return Window{
		Start: time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, asOf.Location()),
		End:   time.Date(asOf.Year(), time.December, 31, 0, 0, 0, 0, asOf.Location()),
	}
}

// MonthWindow returns the first through the last day of the as-of date's month.
func MonthWindow(asOf time.Time) Window {
	start := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, -1),
	}
}

// PriorYearWindow returns the full-year window one year before the as-of date.
func PriorYearWindow(asOf time.Time) Window {
	return YearWindow(asOf.AddDate(-1, 0, 0))
}

// PriorMonthWindow returns the month window one year before the as-of date.
func PriorMonthWindow(asOf time.Time) Window {
	return MonthWindow(asOf.AddDate(-1, 0, 0))
}

// Parse leniently parses a date cell. Anything that does not parse, including
// textual placeholders like "open-ended", becomes the Never sentinel rather
// than an error.
func Parse(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Never
	}
	layouts := []string{
		DateLayout,
		"2006/01/02",
		"2006-01-02 15:04:05",
		"2006.01.02",
		"01/02/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Midnight(t)
		}
	}
	return Never
}

// MustParse parses a date string in DateLayout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParse(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
