package recur

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/librecur/internal/logging"
	"github.com/cyp0633/librecur/values"
)

func dates(ds ...values.DateValue) *RDateIterator {
	return NewRDateIterator(ds)
}

func TestRDateIterator(t *testing.T) {
	it := dates(
		values.NewDate(2006, 1, 3),
		values.NewDate(2006, 1, 1),
		values.NewDate(2006, 1, 3),
		values.NewDate(2006, 1, 2),
	)
	assert.Equal(t, []string{"20060101", "20060102", "20060103"}, take(it, 10))
	assert.True(t, it.Next().IsZero())

	it = dates(values.NewDate(2006, 1, 1), values.NewDate(2006, 1, 5), values.NewDate(2006, 1, 9))
	it.AdvanceTo(values.NewDate(2006, 1, 5))
	assert.Equal(t, []string{"20060105", "20060109"}, take(it, 10))
}

func TestJoin(t *testing.T) {
	inclusions := []RecurrenceIterator{
		dates(values.NewDate(2006, 1, 1), values.NewDate(2006, 1, 4), values.NewDate(2006, 1, 7)),
		dates(values.NewDate(2006, 1, 2), values.NewDate(2006, 1, 4), values.NewDate(2006, 1, 6)),
	}
	exclusions := []RecurrenceIterator{
		dates(values.NewDate(2006, 1, 2), values.NewDate(2006, 1, 3)),
		dates(values.NewDate(2006, 1, 7)),
	}
	it := Join(inclusions, exclusions)
	assert.Equal(t, []string{"20060101", "20060104", "20060106"}, take(it, 10))
	assert.False(t, it.HasNext())
	assert.NoError(t, it.Err())
}

func TestJoin_AdvanceTo(t *testing.T) {
	rule := newRuleIterator(t, "RRULE:FREQ=DAILY", values.NewDate(2006, 1, 1))
	it := Join([]RecurrenceIterator{rule, dates(values.NewDate(2006, 3, 1))}, []RecurrenceIterator{
		dates(values.NewDate(2006, 3, 2)),
	})
	require.True(t, it.HasNext())
	it.AdvanceTo(values.NewDate(2006, 3, 1))
	assert.Equal(t, []string{"20060301", "20060303"}, take(it, 2))
}

func TestNewIterator(t *testing.T) {
	rdata := "RRULE:FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4\r\n" +
		"EXDATE:20060104T090000Z\r\n" +
		"RDATE:20060107T120000Z\r\n" +
		"EXRULE:FREQ=MONTHLY;BYMONTHDAY=11"
	it, err := NewIterator(rdata, values.NewDateTime(2006, 1, 1, 9, 0, 0), time.UTC, true, WithLogger(logging.Discard()))
	require.NoError(t, err)
	// dtStart is always included even though it is a Sunday; Jan 4th and
	// Jan 11th are excluded.
	assert.Equal(t, []string{
		"20060101T090000",
		"20060102T090000",
		"20060107T120000",
		"20060109T090000",
	}, take(it, 10))
	assert.NoError(t, it.Err())
}

func TestNewIterator_ExcludedDtStart(t *testing.T) {
	it, err := NewIterator("RRULE:FREQ=DAILY;COUNT=3\nEXDATE;VALUE=DATE:20060101",
		values.NewDate(2006, 1, 1), nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"20060102", "20060103"}, take(it, 10))
}

func TestNewIterator_Strictness(t *testing.T) {
	rdata := "RRULE:FREQ=DAILY;COUNT=2\nRRULE:FREQ=MINUTELY;COUNT=2\nRRULE:FREQ=DAILY;BYFOO=1"

	_, err := NewIterator(rdata, values.NewDate(2006, 1, 1), time.UTC, true)
	assert.ErrorIs(t, err, values.ErrBadPart)

	_, err = NewIterator("RRULE:FREQ=MINUTELY;COUNT=2", values.NewDate(2006, 1, 1), time.UTC, true)
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)

	var buf bytes.Buffer
	it, err := NewIterator(rdata, values.NewDate(2006, 1, 1), time.UTC, false,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, err)
	assert.Equal(t, []string{"20060101", "20060102"}, take(it, 10))
	assert.Contains(t, buf.String(), "dropping unusable recurrence rule")
	assert.Contains(t, buf.String(), "dropping bad recurrence rule line")
}

func TestNewIterator_RulePartForbiddenByFrequency(t *testing.T) {
	rdata := "RRULE:FREQ=DAILY;BYYEARDAY=50;COUNT=3\nRDATE;VALUE=DATE:20060105"

	_, err := NewIterator(rdata, values.NewDate(2006, 1, 1), time.UTC, true, WithLogger(logging.Discard()))
	assert.ErrorIs(t, err, ErrUnsupportedPart)

	it, err := NewIterator(rdata, values.NewDate(2006, 1, 1), time.UTC, false, WithLogger(logging.Discard()))
	require.NoError(t, err)
	assert.Equal(t, []string{"20060101", "20060105"}, take(it, 10))
}

func TestNewIterator_ShortCircuitReported(t *testing.T) {
	it, err := NewIterator("RRULE:FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=30", values.NewDate(2006, 1, 1), nil, true,
		WithLogger(logging.Discard()))
	require.NoError(t, err)
	assert.Equal(t, []string{"20060101"}, take(it, 10))
	assert.ErrorIs(t, it.Err(), ErrShortCircuit)
}
