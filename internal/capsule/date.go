package capsule

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used by date pickers and storage.
const DateLayout = "2006-01-02"

// dateTimeLocalLayout matches <input type="datetime-local"> values.
const dateTimeLocalLayout = "2006-01-02T15:04"

// ParseDate parses a delivery date.
// Accepted forms:
// 1. YYYY-MM-DD (interpreted as UTC midnight)
// 2. RFC 3339 timestamp
// 3. YYYY-MM-DDTHH:MM (a datetime-local value, interpreted in the local
//    time zone of this process, which is the user's device)
//
// The result is always in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(dateTimeLocalLayout, s, time.Local); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

// FormatDate renders a delivery date.
// UTC midnights are written as calendar dates, anything else as RFC 3339
// with as much sub-second precision as needed to parse back unchanged.
func FormatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339Nano)
}

// HumanDate formats a date like "May 1, 2030".
func HumanDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}
