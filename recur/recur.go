// Package recur turns parsed recurrence rules and date lists into ordered,
// lazy streams of occurrences.
//
// A rule is evaluated by a cascade of field generators, one per tier (year,
// month and day), each advanced only when the finer tier below it runs out
// of values for the current period.
package recur

import (
	"errors"

	"github.com/cyp0633/librecur/values"
)

var (
	// ErrShortCircuit is reported when a rule has produced nothing for so
	// many consecutive years that it is assumed to be empty, as with
	// FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=30. It ends a stream but is distinct
	// from ordinary exhaustion.
	ErrShortCircuit = errors.New("recurrence short-circuited: no instance within 100 years")
	// ErrUnsupportedFrequency is returned for rules finer than FREQ=DAILY.
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
	// ErrUnsupportedPart is returned for BYWEEKNO outside FREQ=YEARLY and
	// for BYYEARDAY with FREQ=DAILY, WEEKLY or MONTHLY.
	ErrUnsupportedPart = errors.New("rule part not allowed with this frequency")
)

// RecurrenceIterator is a pull cursor over occurrences in ascending order.
// Values with a time of day are in UTC.
type RecurrenceIterator interface {
	HasNext() bool
	Next() values.DateValue
	// AdvanceTo skips every occurrence strictly before d. A date without a
	// time of day sorts before every date-time on that date, so advancing to
	// a date keeps all of that day's occurrences.
	AdvanceTo(d values.DateValue)
}
