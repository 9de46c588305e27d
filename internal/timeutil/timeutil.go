// Package timeutil holds the proleptic Gregorian calendar arithmetic used by
// the parser and the generator engine. All functions are pure.
package timeutil

import "time"

// cumulative day counts at the start of each month in a common year
var monthStartToDOY = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// YearLength returns 365 or 366.
func YearLength(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// MonthLength returns the number of days in month (1-12) of year.
func MonthLength(year, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// DayOfYear returns the zero-based day of the year, so January 1st is 0.
func DayOfYear(year, month, day int) int {
	doy := monthStartToDOY[month-1] + day - 1
	if month > 2 && IsLeapYear(year) {
		doy++
	}
	return doy
}

// FixedFromGregorian returns the Rata Die day number of the given date.
// Day 1 is January 1st of year 1.
func FixedFromGregorian(year, month, day int) int {
	y := year - 1
	fixed := 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) +
		floorDiv(367*month-362, 12) + day
	if month > 2 {
		if IsLeapYear(year) {
			fixed--
		} else {
			fixed -= 2
		}
	}
	return fixed
}

// DaysBetween returns the signed number of days from (y2,m2,d2) to
// (y1,m1,d1).
func DaysBetween(y1, m1, d1, y2, m2, d2 int) int {
	return FixedFromGregorian(y1, m1, d1) - FixedFromGregorian(y2, m2, d2)
}

// Weekday returns the day of the week of the given date.
func Weekday(year, month, day int) time.Weekday {
	return time.Weekday(floorMod(FixedFromGregorian(year, month, day), 7))
}

// FirstWeekdayOfMonth returns the day of the week of the first of the month.
func FirstWeekdayOfMonth(year, month int) time.Weekday {
	return Weekday(year, month, 1)
}

// WeekdayOffset returns how many days after wkst the weekday d falls, in [0,6].
func WeekdayOffset(d, wkst time.Weekday) int {
	return (7 + int(d) - int(wkst)) % 7
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - b*floorDiv(a, b)
}
