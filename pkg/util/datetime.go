package util

import (
	"fmt"
	"time"
)

const (
	ISO8601Format = "2006-01-02T15:04:05Z"
	DateFormat    = "2006-01-02"
	ClockFormat   = "15:04"
)

func TimeToISO8601Str(t time.Time) string {
	return t.UTC().Format(ISO8601Format)
}

// ParseLocalDateTime reads a calendar date (YYYY-MM-DD) and a wall clock
// time (HH:MM) as an instant in loc.
func ParseLocalDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat+" "+ClockFormat, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}

// FormatLocal renders t the way show times are shown to customers.
func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon, 02 Jan 2006 03:04 PM")
}
