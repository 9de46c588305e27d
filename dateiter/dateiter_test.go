package dateiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/librecur/internal/logging"
	"github.com/cyp0633/librecur/recur"
	"github.com/cyp0633/librecur/values"
)

func TestTimeRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC),
		time.Date(2038, 1, 19, 3, 14, 8, 0, time.UTC),
		time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for _, ts := range instants {
		assert.True(t, ts.Equal(ToTime(FromTime(ts, false))), ts.String())
		assert.True(t, ts.Equal(ToTime(FromTime(ts, true))), ts.String())
	}
}

func TestFromTime_MidnightAsDate(t *testing.T) {
	midnight := time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, values.NewDate(2006, 1, 2), FromTime(midnight, true))
	assert.Equal(t, values.NewDateTime(2006, 1, 2, 0, 0, 0), FromTime(midnight, false))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, values.NewDateTime(2006, 1, 2, 5, 0, 0), FromTime(time.Date(2006, 1, 2, 0, 0, 0, 0, est), true))
}

func TestIterator(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	start := time.Date(2006, 1, 2, 9, 0, 0, 0, est)
	it, err := New("RRULE:FREQ=DAILY;COUNT=3", start, true, recur.WithLogger(logging.Discard()))
	require.NoError(t, err)

	var got []time.Time
	for ts := range it.All() {
		got = append(got, ts)
	}
	require.Len(t, got, 3)
	for k, ts := range got {
		assert.True(t, start.AddDate(0, 0, k).Equal(ts), ts.String())
	}
	assert.NoError(t, it.Err())
}

func TestIterator_AdvanceToMidnightKeepsOccurrence(t *testing.T) {
	start := time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)
	it, err := New("RRULE:FREQ=DAILY", start, true)
	require.NoError(t, err)

	target := time.Date(2006, 3, 1, 0, 0, 0, 0, time.UTC)
	it.AdvanceTo(target)
	require.True(t, it.HasNext())
	assert.True(t, target.Equal(it.Next()))
}

func TestNewAllDay(t *testing.T) {
	start := time.Date(2006, 1, 30, 15, 0, 0, 0, time.UTC)
	it, err := NewAllDay("RRULE:FREQ=MONTHLY;BYMONTHDAY=-1;COUNT=3", start, true)
	require.NoError(t, err)

	var got []time.Time
	for ts := range it.All() {
		got = append(got, ts)
	}
	assert.Equal(t, []time.Time{
		time.Date(2006, 1, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2006, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2006, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2006, 3, 31, 0, 0, 0, 0, time.UTC),
	}, got)
}

func TestNew_ParseError(t *testing.T) {
	_, err := New("RRULE:COUNT=1", time.Now(), true)
	assert.ErrorIs(t, err, values.ErrMissingPart)
}

// mockIterator implements recur.RecurrenceIterator for testing
type mockIterator struct {
	mock.Mock
}

func (m *mockIterator) HasNext() bool {
	return m.Called().Bool(0)
}

func (m *mockIterator) Next() values.DateValue {
	return m.Called().Get(0).(values.DateValue)
}

func (m *mockIterator) AdvanceTo(d values.DateValue) {
	m.Called(d)
}

func TestWrap_Delegates(t *testing.T) {
	m := new(mockIterator)
	m.On("AdvanceTo", values.NewDate(2024, 3, 1)).Once()
	m.On("AdvanceTo", values.NewDateTime(2024, 3, 1, 14, 0, 0)).Once()
	m.On("HasNext").Return(true).Once()
	m.On("Next").Return(values.NewDate(2024, 3, 2)).Once()
	m.On("HasNext").Return(false).Once()

	it := Wrap(m)
	it.AdvanceTo(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	it.AdvanceTo(time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*3600)))

	var got []time.Time
	for ts := range it.All() {
		got = append(got, ts)
	}
	assert.Equal(t, []time.Time{time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, got)
	assert.NoError(t, it.Err(), "iterators without Err report nothing")
	m.AssertExpectations(t)
}
