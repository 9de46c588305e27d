// Package values holds the immutable value types of the recurrence library
// and the schema driven parser for RRULE, EXRULE, RDATE and EXDATE content
// lines.
package values

import (
	"cmp"
	"fmt"
	"time"

	"github.com/cyp0633/librecur/internal/timeutil"
)

// DateValue is a calendar date, optionally with a time of day. It carries no
// time zone; the engine produces values in UTC and the zone is applied at the
// boundary.
type DateValue struct {
	year, month, day     int
	hour, minute, second int
	hasTime              bool
}

// NewDate returns the date y-m-d. Out of range months and days carry into
// the neighbouring fields, so NewDate(2006, 1, 32) is February 1st.
func NewDate(year, month, day int) DateValue {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return DateValue{year: t.Year(), month: int(t.Month()), day: t.Day()}
}

// NewDateTime returns a date with a time of day, normalized like NewDate.
func NewDateTime(year, month, day, hour, minute, second int) DateValue {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return DateValue{
		year: t.Year(), month: int(t.Month()), day: t.Day(),
		hour: t.Hour(), minute: t.Minute(), second: t.Second(),
		hasTime: true,
	}
}

func (d DateValue) Year() int     { return d.year }
func (d DateValue) Month() int    { return d.month }
func (d DateValue) Day() int      { return d.day }
func (d DateValue) Hour() int     { return d.hour }
func (d DateValue) Minute() int   { return d.minute }
func (d DateValue) Second() int   { return d.second }
func (d DateValue) HasTime() bool { return d.hasTime }

// IsZero reports whether d is the zero DateValue, which is not a valid date.
func (d DateValue) IsZero() bool {
	return d == DateValue{}
}

// Weekday returns the day of the week of d.
func (d DateValue) Weekday() time.Weekday {
	return timeutil.Weekday(d.year, d.month, d.day)
}

// DateOnly strips the time of day.
func (d DateValue) DateOnly() DateValue {
	return DateValue{year: d.year, month: d.month, day: d.day}
}

// AtTime returns the date of d at the given time of day.
func (d DateValue) AtTime(hour, minute, second int) DateValue {
	return NewDateTime(d.year, d.month, d.day, hour, minute, second)
}

// AddDays returns d shifted by n days, keeping the time of day.
func (d DateValue) AddDays(n int) DateValue {
	if d.hasTime {
		return NewDateTime(d.year, d.month, d.day+n, d.hour, d.minute, d.second)
	}
	return NewDate(d.year, d.month, d.day+n)
}

// Compare orders by year, month, day and then time of day. A date without a
// time of day sorts before every date-time on the same date.
func (d DateValue) Compare(o DateValue) int {
	if c := cmp.Compare(d.year, o.year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.month, o.month); c != 0 {
		return c
	}
	if c := cmp.Compare(d.day, o.day); c != 0 {
		return c
	}
	switch {
	case !d.hasTime && !o.hasTime:
		return 0
	case !d.hasTime:
		return -1
	case !o.hasTime:
		return 1
	}
	if c := cmp.Compare(d.hour, o.hour); c != 0 {
		return c
	}
	if c := cmp.Compare(d.minute, o.minute); c != 0 {
		return c
	}
	return cmp.Compare(d.second, o.second)
}

func (d DateValue) Before(o DateValue) bool { return d.Compare(o) < 0 }
func (d DateValue) After(o DateValue) bool  { return d.Compare(o) > 0 }
func (d DateValue) Equal(o DateValue) bool  { return d.Compare(o) == 0 }

// DaysBetween returns the number of days from b to a, ignoring time of day.
func DaysBetween(a, b DateValue) int {
	return timeutil.DaysBetween(a.year, a.month, a.day, b.year, b.month, b.day)
}

// String formats d in iCalendar basic form, 20060102 or 20060102T150405.
func (d DateValue) String() string {
	if !d.hasTime {
		return fmt.Sprintf("%04d%02d%02d", d.year, d.month, d.day)
	}
	return fmt.Sprintf("%04d%02d%02dT%02d%02d%02d",
		d.year, d.month, d.day, d.hour, d.minute, d.second)
}
