package recur

import (
	"fmt"
	"time"

	"github.com/cyp0633/librecur/internal/intset"
	"github.com/cyp0633/librecur/internal/timeutil"
	"github.com/cyp0633/librecur/values"
)

// maxYearsBetweenInstances bounds how far the year tier looks ahead without
// any instance being produced.
const maxYearsBetweenInstances = 100

// Generator owns one field of a Builder. Generate sets the next value of
// that field within the period described by the coarser fields of b and
// reports true, or reports false when the period is exhausted and the
// caller has to advance a coarser field before trying again.
type Generator interface {
	Generate(b *Builder) (bool, error)
}

// ThrottledGenerator is a year generator that gives up with ErrShortCircuit
// after too many consecutive years without WorkDone being called.
type ThrottledGenerator interface {
	Generator
	WorkDone()
}

type serialYearGenerator struct {
	interval int
	year     int
	throttle int
}

// newSerialYearGenerator steps the year by interval starting at the year of
// dtStart.
func newSerialYearGenerator(interval int, dtStart values.DateValue) *serialYearGenerator {
	return &serialYearGenerator{
		interval: interval,
		year:     dtStart.Year() - interval,
		throttle: maxYearsBetweenInstances,
	}
}

func (g *serialYearGenerator) Generate(b *Builder) (bool, error) {
	g.throttle--
	if g.throttle < 0 {
		return false, ErrShortCircuit
	}
	g.year += g.interval
	b.Year = g.year
	return true, nil
}

func (g *serialYearGenerator) WorkDone() {
	g.throttle = maxYearsBetweenInstances
}

func (g *serialYearGenerator) String() string {
	return fmt.Sprintf("serialYearGenerator:%d", g.interval)
}

type serialMonthGenerator struct {
	interval    int
	year, month int
}

// newSerialMonthGenerator steps the month by interval starting at the month
// of dtStart, keeping the phase across year boundaries.
func newSerialMonthGenerator(interval int, dtStart values.DateValue) *serialMonthGenerator {
	g := &serialMonthGenerator{
		interval: interval,
		year:     dtStart.Year(),
		month:    dtStart.Month() - interval,
	}
	for g.month < 1 {
		g.month += 12
		g.year--
	}
	return g
}

func (g *serialMonthGenerator) Generate(b *Builder) (bool, error) {
	var next int
	if g.year != b.Year {
		monthsBetween := (b.Year-g.year)*12 - (g.month - 1)
		next = (g.interval-monthsBetween%g.interval)%g.interval + 1
		if next > 12 {
			// Keep year so the distance is measured from the last month
			// produced when we are called again for a later year.
			return false, nil
		}
		g.year = b.Year
	} else {
		next = g.month + g.interval
		if next > 12 {
			return false, nil
		}
	}
	g.month = next
	b.Month = next
	return true, nil
}

type serialDayGenerator struct {
	interval         int
	year, month, day int
	nDays            int
}

// newSerialDayGenerator steps the day by interval starting at dtStart,
// keeping the phase across month boundaries.
func newSerialDayGenerator(interval int, dtStart values.DateValue) *serialDayGenerator {
	prev := values.NewDate(dtStart.Year(), dtStart.Month(), dtStart.Day()-interval)
	return &serialDayGenerator{
		interval: interval,
		year:     prev.Year(),
		month:    prev.Month(),
		day:      prev.Day(),
		nDays:    timeutil.MonthLength(prev.Year(), prev.Month()),
	}
}

func (g *serialDayGenerator) Generate(b *Builder) (bool, error) {
	var next int
	if g.year == b.Year && g.month == b.Month {
		next = g.day + g.interval
		if next > g.nDays {
			return false, nil
		}
	} else {
		g.nDays = timeutil.MonthLength(b.Year, b.Month)
		if g.interval != 1 {
			// Round the distance from the last day produced up to a
			// multiple of interval.
			daysBetween := timeutil.DaysBetween(b.Year, b.Month, 1, g.year, g.month, g.day)
			next = (g.interval-daysBetween%g.interval)%g.interval + 1
			if next > g.nDays {
				return false, nil
			}
		} else {
			next = 1
		}
		g.year, g.month = b.Year, b.Month
	}
	g.day = next
	b.Day = next
	return true, nil
}

type byYearGenerator struct {
	years []int
	i     int
}

// newByYearGenerator produces the given years, skipping those before
// dtStart.
func newByYearGenerator(years []int, dtStart values.DateValue) *byYearGenerator {
	g := &byYearGenerator{years: intset.Uniquify(years)}
	for g.i < len(g.years) && dtStart.Year() > g.years[g.i] {
		g.i++
	}
	return g
}

func (g *byYearGenerator) Generate(b *Builder) (bool, error) {
	if g.i >= len(g.years) {
		return false, nil
	}
	b.Year = g.years[g.i]
	g.i++
	return true, nil
}

type byMonthGenerator struct {
	months []int
	year   int
	i      int
}

// newByMonthGenerator produces the given months of every year. Negative
// months count from the end of the year.
func newByMonthGenerator(months []int, dtStart values.DateValue) *byMonthGenerator {
	abs := make([]int, 0, len(months))
	for _, m := range months {
		if m < 0 {
			m += 13
		}
		abs = append(abs, m)
	}
	return &byMonthGenerator{months: intset.Uniquify(abs), year: dtStart.Year()}
}

func (g *byMonthGenerator) Generate(b *Builder) (bool, error) {
	if g.year != b.Year {
		g.i = 0
		g.year = b.Year
	}
	if g.i >= len(g.months) {
		return false, nil
	}
	b.Month = g.months[g.i]
	g.i++
	return true, nil
}

// monthDayCursor is the state shared by the day generators that resolve a
// list of ordinals into concrete days once per month.
type monthDayCursor struct {
	year, month int
	days        []int
	i           int
}

// next returns the next resolved day, calling resolve first if b has moved
// to a different month.
func (c *monthDayCursor) next(b *Builder, resolve func()) (bool, error) {
	if c.year != b.Year || c.month != b.Month {
		c.year, c.month = b.Year, b.Month
		resolve()
		c.i = 0
	}
	if c.i >= len(c.days) {
		return false, nil
	}
	b.Day = c.days[c.i]
	c.i++
	return true, nil
}

type byMonthDayGenerator struct {
	monthDayCursor
	monthDays []int
}

// newByMonthDayGenerator produces the given days of every month. Negative
// days count from the end of the month; days the month lacks are skipped.
func newByMonthDayGenerator(monthDays []int, dtStart values.DateValue) *byMonthDayGenerator {
	g := &byMonthDayGenerator{
		monthDayCursor: monthDayCursor{year: dtStart.Year(), month: dtStart.Month()},
		monthDays:      intset.Uniquify(monthDays),
	}
	g.resolve()
	return g
}

func (g *byMonthDayGenerator) resolve() {
	var days intset.Set
	nDays := timeutil.MonthLength(g.year, g.month)
	for _, d := range g.monthDays {
		if d < 0 {
			d += nDays + 1
		}
		if d >= 1 && d <= nDays {
			days.Add(d)
		}
	}
	g.days = days.Ints()
}

func (g *byMonthDayGenerator) Generate(b *Builder) (bool, error) {
	return g.next(b, g.resolve)
}

type byDayGenerator struct {
	monthDayCursor
	weekdays    []values.WeekdayNum
	weeksInYear bool
}

// newByDayGenerator produces the days matching weekdays. Ordinals count
// occurrences within the year when weeksInYear is set and within the month
// otherwise.
func newByDayGenerator(weekdays []values.WeekdayNum, weeksInYear bool, dtStart values.DateValue) *byDayGenerator {
	g := &byDayGenerator{
		monthDayCursor: monthDayCursor{year: dtStart.Year(), month: dtStart.Month()},
		weekdays:       append([]values.WeekdayNum(nil), weekdays...),
		weeksInYear:    weeksInYear,
	}
	g.resolve()
	return g
}

func (g *byDayGenerator) resolve() {
	nDaysInMonth := timeutil.MonthLength(g.year, g.month)
	// nDays and dow0 describe the window ordinals count in; d0 is the index
	// of the first of the month within that window.
	nDays, dow0, d0 := nDaysInMonth, timeutil.FirstWeekdayOfMonth(g.year, g.month), 0
	if g.weeksInYear {
		nDays = timeutil.YearLength(g.year)
		dow0 = timeutil.FirstWeekdayOfMonth(g.year, 1)
		d0 = timeutil.DayOfYear(g.year, g.month, 1)
	}
	w0 := d0 / 7

	var days intset.Set
	for _, wd := range g.weekdays {
		if wd.Num != 0 {
			if d := dayNumToDate(dow0, nDays, wd.Num, wd.Weekday, d0, nDaysInMonth); d != 0 {
				days.Add(d)
			}
			continue
		}
		for w := w0; w <= w0+6; w++ {
			if d := dayNumToDate(dow0, nDays, w, wd.Weekday, d0, nDaysInMonth); d != 0 {
				days.Add(d)
			}
		}
	}
	g.days = days.Ints()
}

func (g *byDayGenerator) Generate(b *Builder) (bool, error) {
	return g.next(b, g.resolve)
}

type byWeekNoGenerator struct {
	monthDayCursor
	weekNos []int
	wkst    time.Weekday

	weeksInYear int
	// doyOfWeek1 is the 0-based day of the year, possibly negative, on
	// which week 1 starts.
	doyOfWeek1 int
	yearOfWeek int
}

// newByWeekNoGenerator produces the days of the given ISO style week numbers
// that fall in the builder's month. Week 1 is the first week with at least
// four days in the year, weeks starting on wkst.
func newByWeekNoGenerator(weekNos []int, wkst time.Weekday, dtStart values.DateValue) *byWeekNoGenerator {
	g := &byWeekNoGenerator{
		monthDayCursor: monthDayCursor{year: dtStart.Year(), month: dtStart.Month()},
		weekNos:        intset.Uniquify(weekNos),
		wkst:           wkst,
	}
	g.resolve()
	return g
}

func (g *byWeekNoGenerator) resolveYear() {
	g.yearOfWeek = g.year
	nDaysInFirstWeek := 7 - timeutil.WeekdayOffset(timeutil.FirstWeekdayOfMonth(g.year, 1), g.wkst)
	// Days before week 1 belong to no week of this year.
	nOrphanedDays := 0
	if nDaysInFirstWeek < 4 {
		nOrphanedDays = nDaysInFirstWeek
		nDaysInFirstWeek = 7
	}
	g.doyOfWeek1 = nDaysInFirstWeek - 7 + nOrphanedDays
	g.weeksInYear = (timeutil.YearLength(g.year) - nOrphanedDays + 6) / 7
}

func (g *byWeekNoGenerator) resolve() {
	if g.yearOfWeek != g.year || g.weeksInYear == 0 {
		g.resolveYear()
	}
	doyOfMonth1 := timeutil.DayOfYear(g.year, g.month, 1)
	// Approximate week of the first of the month.
	weekOfMonth := (doyOfMonth1-g.doyOfWeek1)/7 + 1
	nDays := timeutil.MonthLength(g.year, g.month)

	var days intset.Set
	for _, weekNo := range g.weekNos {
		if weekNo < 0 {
			weekNo += g.weeksInYear + 1
		}
		if weekNo < weekOfMonth-1 || weekNo > weekOfMonth+6 {
			continue
		}
		for d := 0; d < 7; d++ {
			date := (weekNo-1)*7 + d + g.doyOfWeek1 - doyOfMonth1 + 1
			if date >= 1 && date <= nDays {
				days.Add(date)
			}
		}
	}
	g.days = days.Ints()
}

func (g *byWeekNoGenerator) Generate(b *Builder) (bool, error) {
	return g.next(b, g.resolve)
}

type byYearDayGenerator struct {
	monthDayCursor
	yearDays []int
}

// newByYearDayGenerator produces the given days of the year that fall in the
// builder's month. Negative days count from the end of the year.
func newByYearDayGenerator(yearDays []int, dtStart values.DateValue) *byYearDayGenerator {
	g := &byYearDayGenerator{
		monthDayCursor: monthDayCursor{year: dtStart.Year(), month: dtStart.Month()},
		yearDays:       intset.Uniquify(yearDays),
	}
	g.resolve()
	return g
}

func (g *byYearDayGenerator) resolve() {
	doyOfMonth1 := timeutil.DayOfYear(g.year, g.month, 1)
	nDays := timeutil.MonthLength(g.year, g.month)
	nYearDays := timeutil.YearLength(g.year)

	var days intset.Set
	for _, yd := range g.yearDays {
		if yd < 0 {
			yd += nYearDays + 1
		}
		if d := yd - doyOfMonth1; d >= 1 && d <= nDays {
			days.Add(d)
		}
	}
	g.days = days.Ints()
}

func (g *byYearDayGenerator) Generate(b *Builder) (bool, error) {
	return g.next(b, g.resolve)
}
