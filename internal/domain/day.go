package domain

import "time"

// DayLayout is the calendar-day format used for check-in dates and cache keys.
const DayLayout = "2006-01-02"

// Today returns the local calendar day for now.
func Today(now time.Time) string {
	return now.In(time.Local).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD calendar day in the local zone.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, time.Local)
}

// AddDays shifts a calendar day by n days. Invalid input is returned unchanged.
func AddDays(day string, n int) string {
	t, err := ParseDay(day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(DayLayout)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDay(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDay(b)
	if err != nil {
		return 0, err
	}
	// Calendar arithmetic in UTC avoids DST-length days.
	ua := time.Date(ta.Year(), ta.Month(), ta.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(tb.Year(), tb.Month(), tb.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24), nil
}
