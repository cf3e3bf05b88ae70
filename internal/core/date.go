package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the canonical day format used for ledger dates and report buckets.
const DayLayout = "2006-01-02"

var dateLayouts = []string{
	DayLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
}

var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses a ledger date. Values without a zone are taken as UTC;
// values with an offset keep it, so the calendar day is the one written.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ValidLedgerDate accepts the empty string (undated parser output) or any
// parseable date.
func ValidLedgerDate(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, err := ParseDate(s)
	return err == nil
}

// SubtractMonth moves t back one calendar month, clamping the day to the
// last day of the target month (Mar 31 -> Feb 28/29).
func SubtractMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	prev := first.AddDate(0, -1, 0)
	last := daysIn(prev.Year(), prev.Month())
	if d > last {
		d = last
	}
	return time.Date(prev.Year(), prev.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ISOWeekLabel formats t as "YYYY-Www" using the ISO week-numbering year.
func ISOWeekLabel(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// MonthLabel formats t as "YYYY-MM".
func MonthLabel(t time.Time) string {
	return t.Format("2006-01")
}
