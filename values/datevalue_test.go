package values

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValue_Normalizes(t *testing.T) {
	assert.Equal(t, NewDate(2006, 2, 1), NewDate(2006, 1, 32))
	assert.Equal(t, NewDate(2008, 3, 1), NewDate(2008, 2, 30))
	assert.Equal(t, NewDate(2007, 1, 1), NewDate(2006, 13, 1))
	assert.Equal(t, NewDate(2005, 12, 31), NewDate(2006, 1, 0))
	assert.Equal(t, NewDateTime(2006, 1, 2, 0, 0, 0), NewDateTime(2006, 1, 1, 24, 0, 0))
}

func TestDateValue_Compare(t *testing.T) {
	d := NewDate(2006, 1, 2)
	dt := NewDateTime(2006, 1, 2, 0, 0, 0)

	assert.True(t, d.Before(dt))
	assert.True(t, dt.After(d))
	assert.True(t, d.Equal(NewDate(2006, 1, 2)))
	assert.True(t, NewDate(2006, 1, 1).Before(dt))
	assert.True(t, NewDateTime(2006, 1, 1, 23, 59, 59).Before(d))
	assert.Equal(t, 0, dt.Compare(NewDateTime(2006, 1, 2, 0, 0, 0)))
	assert.Equal(t, -1, dt.Compare(NewDateTime(2006, 1, 2, 0, 0, 1)))
}

func TestDateValue_Helpers(t *testing.T) {
	assert.Equal(t, time.Sunday, NewDate(2006, 1, 1).Weekday())
	assert.Equal(t, 28, DaysBetween(NewDate(2006, 3, 1), NewDate(2006, 2, 1)))
	assert.Equal(t, -365, DaysBetween(NewDate(2006, 1, 1), NewDateTime(2007, 1, 1, 12, 0, 0)))
	assert.Equal(t, NewDateTime(2006, 3, 1, 9, 30, 0), NewDateTime(2006, 2, 28, 9, 30, 0).AddDays(1))
	assert.Equal(t, NewDate(2006, 2, 28), NewDateTime(2006, 2, 28, 9, 30, 0).DateOnly())
	assert.Equal(t, NewDateTime(2006, 2, 28, 9, 30, 0), NewDate(2006, 2, 28).AtTime(9, 30, 0))
	assert.True(t, DateValue{}.IsZero())
	assert.Equal(t, "20060102", NewDate(2006, 1, 2).String())
	assert.Equal(t, "20060102T030405", NewDateTime(2006, 1, 2, 3, 4, 5).String())
}

func TestTimezoneConversion(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	local := NewDateTime(2006, 1, 1, 22, 0, 0)

	utc := ToUTC(local, est)
	assert.Equal(t, NewDateTime(2006, 1, 2, 3, 0, 0), utc)
	assert.Equal(t, local, FromUTC(utc, est))

	date := NewDate(2006, 1, 1)
	assert.Equal(t, date, ToUTC(date, est))
	assert.Equal(t, local, ToUTC(local, nil))
}

func TestParseDateValue(t *testing.T) {
	d, err := ParseDateValue("20060102T030405Z", time.FixedZone("X", 3600))
	require.NoError(t, err)
	assert.Equal(t, NewDateTime(2006, 1, 2, 3, 4, 5), d)

	d, err = ParseDateValue("20060102t030405", time.FixedZone("X", 3600))
	require.NoError(t, err)
	assert.Equal(t, NewDateTime(2006, 1, 2, 2, 4, 5), d)

	for _, bad := range []string{"2006010", "20061301", "20060100", "20060102T240000", "20060102X030405", "+0060102", "20060102T0304-5"} {
		_, err := ParseDateValue(bad, nil)
		assert.Error(t, err, bad)
	}
}
