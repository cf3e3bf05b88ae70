package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-31", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), true},
		{"2024/01/31", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-31 13:45:00", time.Date(2024, 1, 31, 13, 45, 0, 0, time.UTC), true},
		{"2024-01-31T13:45:00+02:00", time.Date(2024, 1, 31, 11, 45, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"31/01/2024", time.Time{}, false},
		{"2024-02-30", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && (err != nil || !got.Equal(tc.want)) {
			t.Fatalf("ParseDate(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDate(%q) expected error", tc.in)
		}
	}
}

func TestParseDateKeepsWrittenDay(t *testing.T) {
	got, err := ParseDate("2024-01-31T23:30:00-05:00")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if day := got.Format(DayLayout); day != "2024-01-31" {
		t.Fatalf("day = %s, want 2024-01-31", day)
	}
	if m := MonthLabel(got); m != "2024-01" {
		t.Fatalf("month = %s, want 2024-01", m)
	}
}

func TestSubtractMonthClamps(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-03-31", "2024-02-29"},
		{"2023-03-31", "2023-02-28"},
		{"2024-05-31", "2024-04-30"},
		{"2024-01-15", "2023-12-15"},
		{"2024-03-01", "2024-02-01"},
	}
	for _, tc := range cases {
		in, _ := ParseDate(tc.in)
		got := SubtractMonth(in).Format(DayLayout)
		if got != tc.want {
			t.Fatalf("SubtractMonth(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestBucketLabels(t *testing.T) {
	d := time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC)
	if got := ISOWeekLabel(d); got != "2020-W53" {
		t.Fatalf("ISOWeekLabel = %s", got)
	}
	if got := MonthLabel(d); got != "2021-01" {
		t.Fatalf("MonthLabel = %s", got)
	}
}
