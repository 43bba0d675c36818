package domain

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Midnight truncates t to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidRange
	}
	return t, nil
}

// DaysBetween returns the inclusive number of calendar days between start
// and end. Returns 0 when end precedes start.
func DaysBetween(start, end time.Time) int {
	s, e := Midnight(start), Midnight(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// EachDay calls fn for every calendar day in [start, end] inclusive.
func EachDay(start, end time.Time, fn func(d time.Time)) {
	for d := Midnight(start); !d.After(Midnight(end)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
