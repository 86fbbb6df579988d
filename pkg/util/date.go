package util

import "time"

// DayLayout is the calendar-day format used by the market-data provider.
const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, time.UTC)
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfISOWeek returns the Monday (UTC midnight) of t's ISO week.
func StartOfISOWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}

// StartOfMonth returns the 1st of t's month (UTC midnight).
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
