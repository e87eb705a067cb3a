package timezone

import (
	"fmt"
	"time"
)

// DefaultTimezone is used for day-based report filters when REPORT_TIMEZONE
// is unset or unknown.
const DefaultTimezone = "UTC"

const dayLayout = "2006-01-02"

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}

// StartOfDay parses a YYYY-MM-DD day as midnight in loc.
func StartOfDay(day string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD", day)
	}
	return t, nil
}

// EndOfDay is the exclusive upper bound of day: the next midnight in loc,
// which is not always 24h later across DST changes.
func EndOfDay(day string, loc *time.Location) (time.Time, error) {
	t, err := StartOfDay(day, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 0, 1), nil
}
