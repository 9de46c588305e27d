package recur

import (
	"time"

	"github.com/cyp0633/librecur/internal/intset"
	"github.com/cyp0633/librecur/internal/timeutil"
	"github.com/cyp0633/librecur/values"
)

// byDayFilter accepts dates matching one of weekdays. Ordinals count
// occurrences of the weekday within the year when weeksInYear is set and
// within the month otherwise.
func byDayFilter(weekdays []values.WeekdayNum, weeksInYear bool) Filter {
	return func(d values.DateValue) bool {
		dow := d.Weekday()
		// index is the 0-based position of d in a window of nDays days.
		index, nDays := d.Day()-1, timeutil.MonthLength(d.Year(), d.Month())
		if weeksInYear {
			index = timeutil.DayOfYear(d.Year(), d.Month(), d.Day())
			nDays = timeutil.YearLength(d.Year())
		}
		for _, wd := range weekdays {
			if wd.Weekday != dow {
				continue
			}
			switch {
			case wd.Num == 0:
				return true
			case wd.Num > 0 && index/7+1 == wd.Num:
				return true
			case wd.Num < 0 && -((nDays-1-index)/7+1) == wd.Num:
				return true
			}
		}
		return false
	}
}

// byMonthDayFilter accepts dates whose day of the month, counted from either
// end of the month, is in monthDays.
func byMonthDayFilter(monthDays []int) Filter {
	return func(d values.DateValue) bool {
		nDays := timeutil.MonthLength(d.Year(), d.Month())
		for _, md := range monthDays {
			if md < 0 {
				md += nDays + 1
			}
			if md == d.Day() {
				return true
			}
		}
		return false
	}
}

// weekIntervalFilter accepts dates in every interval'th week counting from
// the week of dtStart. Weeks start on wkst.
func weekIntervalFilter(interval int, wkst time.Weekday, dtStart values.DateValue) Filter {
	weekStart := weekStartOnOrBefore(dtStart, wkst)
	return func(d values.DateValue) bool {
		weeks := values.DaysBetween(d, weekStart)
		if weeks < 0 {
			// Before dtStart; only reachable while priming.
			weeks -= 6
		}
		weeks /= 7
		return ((weeks%interval)+interval)%interval == 0
	}
}

// timeOfDayFilter accepts date-times whose field, as read by field, is one of
// allowed.
func timeOfDayFilter(allowed []int, field func(values.DateValue) int) Filter {
	var set intset.Set
	for _, n := range allowed {
		set.Add(n)
	}
	return func(d values.DateValue) bool {
		return set.Contains(field(d))
	}
}

// condition decides whether an instance, in emission order, is still part
// of the recurrence. Once it rejects one instance the stream is over.
type condition func(d values.DateValue) bool

// countCondition accepts the first count instances.
func countCondition(count int) condition {
	return func(values.DateValue) bool {
		count--
		return count >= 0
	}
}

// untilCondition accepts instances on or before until.
func untilCondition(until values.DateValue) condition {
	return func(d values.DateValue) bool {
		return d.Compare(until) <= 0
	}
}
