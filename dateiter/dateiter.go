// Package dateiter adapts the recurrence iterators to time.Time.
package dateiter

import (
	"iter"
	"time"

	"github.com/cyp0633/librecur/recur"
	"github.com/cyp0633/librecur/values"
)

// FromTime converts t, in UTC, to a DateValue. When midnightAsDate is set an
// instant at exactly midnight becomes a date without a time of day, which
// sorts before every date-time on that day.
func FromTime(t time.Time, midnightAsDate bool) values.DateValue {
	t = t.UTC()
	if midnightAsDate && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return values.NewDate(t.Year(), int(t.Month()), t.Day())
	}
	return values.NewDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// ToTime converts dv to a UTC instant. Dates become midnight UTC.
func ToTime(dv values.DateValue) time.Time {
	return time.Date(dv.Year(), time.Month(dv.Month()), dv.Day(),
		dv.Hour(), dv.Minute(), dv.Second(), 0, time.UTC)
}

// wallClock returns the wall time of t as a DateValue, ignoring its zone.
func wallClock(t time.Time) values.DateValue {
	return values.NewDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// Iterator is a cursor over occurrences as time.Time values in UTC.
type Iterator struct {
	it recur.RecurrenceIterator
}

// Wrap adapts a RecurrenceIterator.
func Wrap(it recur.RecurrenceIterator) *Iterator {
	return &Iterator{it: it}
}

// New returns an iterator over the recurrence in rdata starting at start.
// Floating times are read in start's location.
func New(rdata string, start time.Time, strict bool, opts ...recur.Option) (*Iterator, error) {
	it, err := recur.NewIterator(rdata, wallClock(start), start.Location(), strict, opts...)
	if err != nil {
		return nil, err
	}
	return Wrap(it), nil
}

// NewAllDay is New for recurrences of whole days. Only the date of start is
// used and the occurrences are midnight UTC.
func NewAllDay(rdata string, start time.Time, strict bool, opts ...recur.Option) (*Iterator, error) {
	dtStart := values.NewDate(start.Year(), int(start.Month()), start.Day())
	it, err := recur.NewIterator(rdata, dtStart, start.Location(), strict, opts...)
	if err != nil {
		return nil, err
	}
	return Wrap(it), nil
}

func (i *Iterator) HasNext() bool {
	return i.it.HasNext()
}

func (i *Iterator) Next() time.Time {
	return ToTime(i.it.Next())
}

// AdvanceTo skips occurrences before t. An occurrence at exactly t is kept.
func (i *Iterator) AdvanceTo(t time.Time) {
	i.it.AdvanceTo(FromTime(t, true))
}

// Err reports why the underlying iterator stopped early, if it did.
func (i *Iterator) Err() error {
	if e, ok := i.it.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

// All yields the remaining occurrences. The sequence may be unbounded.
func (i *Iterator) All() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for i.HasNext() {
			if !yield(i.Next()) {
				return
			}
		}
	}
}
