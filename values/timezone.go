package values

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/librecur/internal/timeutil"
)

// TimezoneResolver maps a TZID parameter value to a location.
type TimezoneResolver func(name string) (*time.Location, error)

// ToUTC interprets the wall time of dv in loc and returns the same instant in
// UTC. Dates without a time of day and a nil loc are returned unchanged.
func ToUTC(dv DateValue, loc *time.Location) DateValue {
	if !dv.hasTime || loc == nil || loc == time.UTC {
		return dv
	}
	t := time.Date(dv.year, time.Month(dv.month), dv.day, dv.hour, dv.minute, dv.second, 0, loc).UTC()
	return NewDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// FromUTC is the inverse of ToUTC: it returns the wall time in loc of the UTC
// instant dv.
func FromUTC(dv DateValue, loc *time.Location) DateValue {
	if !dv.hasTime || loc == nil || loc == time.UTC {
		return dv
	}
	t := time.Date(dv.year, time.Month(dv.month), dv.day, dv.hour, dv.minute, dv.second, 0, time.UTC).In(loc)
	return NewDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// ParseDateValue parses an iCalendar DATE (20060102) or DATE-TIME
// (20060102T150405, optionally suffixed with Z). A date-time without Z is
// wall time in loc and is converted to UTC; with a nil loc it is taken as UTC.
func ParseDateValue(s string, loc *time.Location) (DateValue, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch len(s) {
	case 8:
		y, m, d, err := parseYMD(s)
		if err != nil {
			return DateValue{}, err
		}
		return NewDate(y, m, d), nil
	case 15, 16:
		if s[8] != 'T' || (len(s) == 16 && s[15] != 'Z') {
			return DateValue{}, fmt.Errorf("malformed date-time %q", s)
		}
		y, m, d, err := parseYMD(s[:8])
		if err != nil {
			return DateValue{}, err
		}
		hh, err1 := parseDigits(s[9:11])
		mm, err2 := parseDigits(s[11:13])
		ss, err3 := parseDigits(s[13:15])
		if err1 != nil || err2 != nil || err3 != nil {
			return DateValue{}, fmt.Errorf("malformed date-time %q", s)
		}
		if hh > 23 || mm > 59 || ss > 59 {
			return DateValue{}, fmt.Errorf("time out of range in %q", s)
		}
		dv := NewDateTime(y, m, d, hh, mm, ss)
		if len(s) == 16 {
			return dv, nil
		}
		return ToUTC(dv, loc), nil
	default:
		return DateValue{}, fmt.Errorf("malformed date %q", s)
	}
}

func parseYMD(s string) (y, m, d int, err error) {
	y, err = parseDigits(s[:4])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed date %q", s)
	}
	m, err = parseDigits(s[4:6])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed date %q", s)
	}
	d, err = parseDigits(s[6:8])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed date %q", s)
	}
	if m < 1 || m > 12 || d < 1 || d > timeutil.MonthLength(y, m) {
		return 0, 0, 0, fmt.Errorf("date out of range %q", s)
	}
	return y, m, d, nil
}

// parseDigits rejects signs, which strconv.Atoi would accept.
func parseDigits(s string) (int, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	return strconv.Atoi(s)
}
