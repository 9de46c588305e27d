package values

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdayCodes = [7]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// WeekdayCode returns the two letter iCalendar code for d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

// ParseWeekday maps a two letter code such as "MO" to a weekday.
func ParseWeekday(code string) (time.Weekday, error) {
	for d, c := range weekdayCodes {
		if strings.EqualFold(code, c) {
			return time.Weekday(d), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", code)
}

// WeekdayNum is one BYDAY entry: a weekday with an optional signed ordinal.
// Num 0 means every occurrence of the weekday in the period, 2 the second
// and -1 the last.
type WeekdayNum struct {
	Num     int
	Weekday time.Weekday
}

func (w WeekdayNum) String() string {
	if w.Num == 0 {
		return WeekdayCode(w.Weekday)
	}
	return strconv.Itoa(w.Num) + WeekdayCode(w.Weekday)
}
