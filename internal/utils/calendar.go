package utils

import (
	"fmt"
	"time"
)

// SameCalendarDay reports whether a and b fall on the same year, month and day in loc.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the absolute number of calendar days between a and b in loc.
// Time of day is ignored, so two instants on the same day are 0 days apart.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	// Compare civil dates in UTC so DST transitions cannot produce 23h or 25h days
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	days := int(db.Sub(da).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of the day containing t.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// StartOfMonth returns local midnight on the first day of t's month.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// DaysInMonth returns the number of days in t's month in loc.
func DaysInMonth(t time.Time, loc *time.Location) int {
	return StartOfMonth(t, loc).AddDate(0, 1, -1).Day()
}

// AddDays moves t by n calendar days, keeping the wall clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// LastNDays returns the midnights of the last n days ending today, oldest first.
func LastNDays(now time.Time, n int, loc *time.Location) []time.Time {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(now, loc)
	days := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, AddDays(today, -i))
	}
	return days
}

// RelativeLabel describes t relative to now: "today", "yesterday", "N days ago",
// "N weeks ago" under a month, and "N months ago" (30-day months) beyond that.
func RelativeLabel(t, now time.Time, loc *time.Location) string {
	days := DaysBetween(t, now, loc)
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		weeks := days / 7
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	}

	months := days / 30
	if months == 1 {
		return "1 month ago"
	}
	return fmt.Sprintf("%d months ago", months)
}
