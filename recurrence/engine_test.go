package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func TestEngine_HasOccurrenceInRange(t *testing.T) {
	engine := NewEngine()

	// Base event: Daily meeting from 9-10 AM starting Mon Jan 1, 2024
	masterStart := day(1, 9)
	masterEnd := day(1, 10)

	tests := []struct {
		name       string
		recurrence RecurrenceInfo
		rangeStart time.Time
		rangeEnd   time.Time
		expected   bool
	}{
		{
			name:       "Non-recurring event in range",
			rangeStart: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			rangeEnd:   day(2, 0),
			expected:   true,
		},
		{
			name:       "Non-recurring event out of range",
			rangeStart: day(2, 0),
			rangeEnd:   day(3, 0),
			expected:   false,
		},
		{
			name:       "Daily recurring event with occurrence in range",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=DAILY;COUNT=7"}},
			rangeStart: day(3, 0),
			rangeEnd:   day(4, 0),
			expected:   true,
		},
		{
			name:       "Daily recurring event with no occurrence in range",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=DAILY;COUNT=3"}},
			rangeStart: day(10, 0),
			rangeEnd:   day(11, 0),
			expected:   false,
		},
		{
			name:       "RRULE prefix is accepted",
			recurrence: RecurrenceInfo{RRULE: []string{"RRULE:FREQ=DAILY;COUNT=7"}},
			rangeStart: day(5, 0),
			rangeEnd:   day(6, 0),
			expected:   true,
		},
		{
			name: "Master excluded by EXDATE",
			recurrence: RecurrenceInfo{
				RRULE:  []string{"FREQ=DAILY;COUNT=3"},
				EXDATE: []time.Time{masterStart},
			},
			rangeStart: day(1, 0),
			rangeEnd:   day(1, 23),
			expected:   false,
		},
		{
			name: "Date-only EXDATE excludes the whole day",
			recurrence: RecurrenceInfo{
				RRULE:  []string{"FREQ=DAILY;COUNT=7"},
				EXDATE: []time.Time{day(3, 0)},
			},
			rangeStart: day(3, 0),
			rangeEnd:   day(4, 0),
			expected:   false,
		},
		{
			name: "EXRULE removes matching occurrences",
			recurrence: RecurrenceInfo{
				RRULE:  []string{"FREQ=DAILY;COUNT=10"},
				EXRULE: []string{"FREQ=WEEKLY;BYDAY=WE"},
			},
			rangeStart: day(3, 0),
			rangeEnd:   day(3, 23),
			expected:   false,
		},
		{
			name:       "RDATE only",
			recurrence: RecurrenceInfo{RDATE: []time.Time{day(20, 9)}},
			rangeStart: day(20, 0),
			rangeEnd:   day(21, 0),
			expected:   true,
		},
		{
			name:       "Range inside an occurrence",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=DAILY"}},
			rangeStart: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 1, 2, 9, 45, 0, 0, time.UTC),
			expected:   true,
		},
		{
			name:       "Occurrence touching the range start",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=DAILY"}},
			rangeStart: day(2, 10),
			rangeEnd:   day(2, 11),
			expected:   true,
		},
		{
			name:       "Unbounded rule far in the future",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=WEEKLY;BYDAY=FR"}},
			rangeStart: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2030, 6, 8, 0, 0, 0, 0, time.UTC),
			expected:   true,
		},
		{
			name:       "UNTIL before the range",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=WEEKLY;UNTIL=20240201T000000Z"}},
			rangeStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			rangeEnd:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			expected:   false,
		},
		{
			name:       "Impossible rule",
			recurrence: RecurrenceInfo{RRULE: []string{"FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=30"}},
			rangeStart: day(2, 0),
			rangeEnd:   day(31, 0),
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.HasOccurrenceInRange(
				masterStart, masterEnd,
				tt.recurrence,
				tt.rangeStart, tt.rangeEnd,
			)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEngine_HasOccurrenceInRange_Errors(t *testing.T) {
	engine := NewEngine()
	rangeStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, rule := range []string{"FREQ=SOMETIMES", "FREQ=HOURLY", "COUNT=3"} {
		t.Run(rule, func(t *testing.T) {
			_, err := engine.HasOccurrenceInRange(day(1, 9), day(1, 10),
				RecurrenceInfo{RRULE: []string{rule}}, rangeStart, rangeEnd)
			assert.Error(t, err)
		})
	}
}

func TestEngine_MaxExpansionOccurrences(t *testing.T) {
	cfg := DisabledCacheConfig
	cfg.MaxExpansionOccurrences = 3
	engine := NewEngineWithConfig(cfg)

	info := RecurrenceInfo{
		RRULE:  []string{"FREQ=DAILY;COUNT=10"},
		EXDATE: []time.Time{day(2, 0), day(3, 0), day(4, 0)},
	}
	found, err := engine.HasOccurrenceInRange(day(1, 9), day(1, 10), info, day(2, 0), day(31, 0))
	require.NoError(t, err)
	assert.False(t, found, "the fourth candidate is past the limit")

	engine = NewEngine()
	found, err = engine.HasOccurrenceInRange(day(1, 9), day(1, 10), info, day(2, 0), day(31, 0))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEngine_Expand(t *testing.T) {
	engine := NewEngine()
	masterStart := day(1, 9)
	masterEnd := day(1, 10)
	daily := RecurrenceInfo{RRULE: []string{"FREQ=DAILY;COUNT=5"}}

	starts := func(occs []TimeOccurrence) []int {
		var days []int
		for _, o := range occs {
			days = append(days, o.Start.Day())
		}
		return days
	}

	t.Run("whole series", func(t *testing.T) {
		occs, err := engine.Expand(masterStart, masterEnd, daily, day(1, 0), day(31, 0), DefaultExpansionOptions)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, starts(occs))
		for _, o := range occs {
			assert.Equal(t, time.Hour, o.End.Sub(o.Start))
			require.NotNil(t, o.RecurrenceID)
			assert.True(t, o.RecurrenceID.Equal(o.Start))
			assert.False(t, o.IsException)
		}
	})

	t.Run("max occurrences", func(t *testing.T) {
		opts := DefaultExpansionOptions
		opts.MaxOccurrences = 2
		occs, err := engine.Expand(masterStart, masterEnd, daily, day(1, 0), day(31, 0), opts)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, starts(occs))
	})

	t.Run("max time span", func(t *testing.T) {
		opts := DefaultExpansionOptions
		opts.MaxTimeSpan = 48 * time.Hour
		occs, err := engine.Expand(masterStart, masterEnd, daily, day(1, 0), day(31, 0), opts)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, starts(occs))
	})

	t.Run("exdate and rdate", func(t *testing.T) {
		info := daily
		info.EXDATE = []time.Time{day(3, 9)}
		info.RDATE = []time.Time{day(20, 15)}
		occs, err := engine.Expand(masterStart, masterEnd, info, day(1, 0), day(31, 0), DefaultExpansionOptions)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 4, 5, 20}, starts(occs))
		assert.Equal(t, 15, occs[4].Start.Hour())
	})

	t.Run("override instance", func(t *testing.T) {
		recID := day(2, 9)
		info := RecurrenceInfo{RecurrenceID: &recID}
		occs, err := engine.Expand(day(2, 11), day(2, 12), info, day(1, 0), day(31, 0), DefaultExpansionOptions)
		require.NoError(t, err)
		require.Len(t, occs, 1)
		assert.True(t, occs[0].IsException)
		assert.Equal(t, recID, *occs[0].RecurrenceID)

		opts := DefaultExpansionOptions
		opts.IncludeExceptions = false
		occs, err = engine.Expand(day(2, 11), day(2, 12), info, day(1, 0), day(31, 0), opts)
		require.NoError(t, err)
		assert.Empty(t, occs)
	})

	t.Run("local time across a DST change", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		start := time.Date(2024, 3, 8, 9, 0, 0, 0, ny)
		occs, err := engine.Expand(start, start.Add(time.Hour),
			RecurrenceInfo{RRULE: []string{"FREQ=DAILY;COUNT=3"}},
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			DefaultExpansionOptions)
		require.NoError(t, err)
		require.Len(t, occs, 3)
		for i, o := range occs {
			assert.Equal(t, 8+i, o.Start.Day())
			assert.Equal(t, 9, o.Start.Hour(), "wall clock hour of %v", o.Start)
			assert.Equal(t, ny, o.Start.Location())
		}
		assert.Equal(t, 14, occs[0].Start.UTC().Hour())
		assert.Equal(t, 13, occs[2].Start.UTC().Hour())
	})
}

func TestEngine_Cache(t *testing.T) {
	engine := NewEngineWithConfig(DefaultEngineConfig)
	defer engine.Close()

	info := RecurrenceInfo{RRULE: []string{"FREQ=DAILY;COUNT=7"}}
	for i := 0; i < 2; i++ {
		found, err := engine.HasOccurrenceInRange(day(1, 9), day(1, 10), info, day(3, 0), day(4, 0))
		require.NoError(t, err)
		assert.True(t, found)
	}
	for i := 0; i < 2; i++ {
		occs, err := engine.Expand(day(1, 9), day(1, 10), info, day(1, 0), day(31, 0), DefaultExpansionOptions)
		require.NoError(t, err)
		assert.Len(t, occs, 7)
		// Callers may modify the returned slice without touching the cache.
		occs[0] = TimeOccurrence{}
	}

	stats, ok := engine.CacheStats()
	require.True(t, ok)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.TotalEntries)

	_, ok = NewEngine().CacheStats()
	assert.False(t, ok)
}

func TestEngine_CacheSeparatesZones(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	engine := NewEngineWithConfig(DefaultEngineConfig)
	defer engine.Close()

	// 09:00 in both zones is 14:00 UTC in January; New York moves to EDT in
	// March and Bogota does not.
	info := RecurrenceInfo{RRULE: []string{"FREQ=MONTHLY;COUNT=8"}}
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	expand := func(loc *time.Location) []TimeOccurrence {
		start := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)
		occs, err := engine.Expand(start, start.Add(time.Hour), info, rangeStart, rangeEnd, DefaultExpansionOptions)
		require.NoError(t, err)
		require.Len(t, occs, 8)
		return occs
	}

	nyOccs := expand(ny)
	bogotaOccs := expand(bogota)
	assert.True(t, nyOccs[0].Start.Equal(bogotaOccs[0].Start))
	assert.True(t, time.Date(2024, 4, 10, 13, 0, 0, 0, time.UTC).Equal(nyOccs[3].Start), nyOccs[3].Start)
	assert.True(t, time.Date(2024, 4, 10, 14, 0, 0, 0, time.UTC).Equal(bogotaOccs[3].Start), bogotaOccs[3].Start)

	stats, ok := engine.CacheStats()
	require.True(t, ok)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestEngine_ExcludedMaster(t *testing.T) {
	engine := NewEngine()
	info := RecurrenceInfo{
		RRULE:  []string{"FREQ=DAILY;COUNT=3"},
		EXRULE: []string{"FREQ=DAILY;COUNT=1"},
	}
	rangeStart := day(1, 8)
	rangeEnd := day(1, 9).Add(30 * time.Minute)

	found, err := engine.HasOccurrenceInRange(day(1, 9), day(1, 10), info, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.False(t, found)

	occs, err := engine.Expand(day(1, 9), day(1, 10), info, rangeStart, rangeEnd, DefaultExpansionOptions)
	require.NoError(t, err)
	assert.Empty(t, occs)

	// The next day is still an occurrence.
	found, err = engine.HasOccurrenceInRange(day(1, 9), day(1, 10), info, day(2, 8), day(2, 12))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRecurrenceInfo_rdata(t *testing.T) {
	info := RecurrenceInfo{
		RRULE:  []string{"FREQ=DAILY", "rrule:FREQ=WEEKLY", " "},
		EXRULE: []string{"FREQ=MONTHLY"},
		RDATE:  []time.Time{day(5, 9), time.Date(2024, 1, 6, 10, 0, 0, 0, time.FixedZone("CET", 3600))},
	}
	assert.Equal(t,
		"RRULE:FREQ=DAILY\nrrule:FREQ=WEEKLY\nEXRULE:FREQ=MONTHLY\nRDATE:20240105T090000Z,20240106T090000Z\n",
		info.rdata())
	assert.True(t, info.IsRecurring())
	assert.False(t, RecurrenceInfo{EXDATE: []time.Time{day(1, 0)}}.IsRecurring())
}

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		name    string
		t       time.Time
		exdates []time.Time
		want    bool
	}{
		{"exact match", day(2, 9), []time.Time{day(2, 9)}, true},
		{"same instant in another zone", day(2, 9), []time.Time{day(2, 9).In(time.FixedZone("X", 7200))}, true},
		{"date-only match", day(2, 9), []time.Time{day(2, 0)}, true},
		{"date-only other day", day(2, 9), []time.Time{day(3, 0)}, false},
		{"midnight in another zone is not date-only", day(2, 9), []time.Time{time.Date(2024, 1, 2, 0, 0, 0, 0, time.FixedZone("X", 0))}, false},
		{"no exdates", day(2, 9), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isExcluded(tt.t, tt.exdates))
		})
	}
}
