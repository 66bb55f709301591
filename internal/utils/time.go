package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitquest/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// ParseTime parses a time string in the standard format (HH:MM).
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(constants.TimeFormat, timeStr)
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseTime(timeStr)
	return err == nil
}

// ParseTimeToMinutes parses a time string (HH:MM) and returns the number of minutes from midnight.
func ParseTimeToMinutes(timeStr string) (int, error) {
	t, err := ParseTime(timeStr)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// TimeOnDay returns the HH:MM time of day on the calendar day of t in loc.
func TimeOnDay(timeStr string, t time.Time, loc *time.Location) (time.Time, error) {
	tod, err := ParseTime(timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %w", err)
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// NextOccurrence returns the next instant at HH:MM strictly after now: today if the
// time has not passed yet, tomorrow otherwise.
func NextOccurrence(timeStr string, now time.Time, loc *time.Location) (time.Time, error) {
	at, err := TimeOnDay(timeStr, now, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !at.After(now) {
		at = AddDays(at, 1)
	}
	return at, nil
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(constants.DateFormat, dateStr, loc)
}
