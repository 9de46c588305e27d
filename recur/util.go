package recur

import (
	"time"

	"github.com/cyp0633/librecur/internal/timeutil"
	"github.com/cyp0633/librecur/values"
)

// dayNumToDate resolves the weekNum'th dow in a window of nDays days whose
// first day is a dow0, and returns it as a day of the month that starts at
// index d0 of the window. It returns 0 if the result falls outside the
// month. Negative weekNum counts from the end of the window.
func dayNumToDate(dow0 time.Weekday, nDays, weekNum int, dow time.Weekday, d0, nDaysInMonth int) int {
	firstDateOfDow := 1 + timeutil.WeekdayOffset(dow, dow0)
	var date int
	if weekNum > 0 {
		date = (weekNum-1)*7 + firstDateOfDow - d0
	} else {
		lastDateOfDow := firstDateOfDow + 7*54
		lastDateOfDow -= 7 * ((lastDateOfDow - nDays + 6) / 7)
		date = lastDateOfDow + 7*(weekNum+1) - d0
	}
	if date <= 0 || date > nDaysInMonth {
		return 0
	}
	return date
}

// nextWeekStart returns the first day strictly after d that falls on wkst.
func nextWeekStart(d values.DateValue, wkst time.Weekday) values.DateValue {
	return d.DateOnly().AddDays(7 - timeutil.WeekdayOffset(d.Weekday(), wkst))
}

// weekStartOnOrBefore returns the latest day on or before d that falls on
// wkst.
func weekStartOnOrBefore(d values.DateValue, wkst time.Weekday) values.DateValue {
	return d.DateOnly().AddDays(-timeutil.WeekdayOffset(d.Weekday(), wkst))
}
