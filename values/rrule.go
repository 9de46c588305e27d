package values

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Object is a parsed content line: an *RRule or an *RDateList.
type Object interface {
	// PropertyName is the upper case content line name, e.g. "EXDATE".
	PropertyName() string
	String() string
}

// RRule is a parsed RRULE or EXRULE. Name records which of the two the line
// was, and decides which Recurrence collection accepts it.
type RRule struct {
	Name     string
	Freq     Frequency
	Interval int
	Until    mo.Option[DateValue]
	Count    mo.Option[int]

	ByMonth    []int
	ByWeekNo   []int
	ByYearDay  []int
	ByMonthDay []int
	ByDay      []WeekdayNum
	ByHour     []int
	ByMinute   []int
	BySecond   []int
	BySetPos   []int

	WeekStart time.Weekday
}

// NewRRule returns a rule with the RFC 5545 defaults: INTERVAL=1, WKST=MO.
func NewRRule(name string, freq Frequency) *RRule {
	return &RRule{
		Name:      strings.ToUpper(name),
		Freq:      freq,
		Interval:  1,
		WeekStart: time.Monday,
	}
}

func (r *RRule) PropertyName() string { return r.Name }

// ParseRRule parses a full RRULE or EXRULE content line, for example
// "RRULE:FREQ=MONTHLY;BYDAY=-1FR".
func ParseRRule(line string) (*RRule, error) {
	obj, err := ParseContentLine(line, nil)
	if err != nil {
		return nil, err
	}
	r, ok := obj.(*RRule)
	if !ok {
		return nil, &ParseError{Kind: ErrUnknownProperty, Line: line, Fragment: obj.PropertyName(), Reason: "not a rule"}
	}
	return r, nil
}

// String renders r as a content line. Parsing the result yields an equal
// rule.
func (r *RRule) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(":FREQ=")
	b.WriteString(r.Freq.String())
	if until, ok := r.Until.Get(); ok {
		b.WriteString(";UNTIL=")
		b.WriteString(until.String())
		if until.HasTime() {
			b.WriteByte('Z')
		}
	}
	if count, ok := r.Count.Get(); ok {
		b.WriteString(";COUNT=")
		b.WriteString(strconv.Itoa(count))
	}
	if r.Interval > 1 {
		b.WriteString(";INTERVAL=")
		b.WriteString(strconv.Itoa(r.Interval))
	}
	writeInts(&b, "BYSECOND", r.BySecond)
	writeInts(&b, "BYMINUTE", r.ByMinute)
	writeInts(&b, "BYHOUR", r.ByHour)
	if len(r.ByDay) > 0 {
		b.WriteString(";BYDAY=")
		for i, wd := range r.ByDay {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(wd.String())
		}
	}
	writeInts(&b, "BYMONTHDAY", r.ByMonthDay)
	writeInts(&b, "BYYEARDAY", r.ByYearDay)
	writeInts(&b, "BYWEEKNO", r.ByWeekNo)
	writeInts(&b, "BYMONTH", r.ByMonth)
	writeInts(&b, "BYSETPOS", r.BySetPos)
	if r.WeekStart != time.Monday {
		b.WriteString(";WKST=")
		b.WriteString(WeekdayCode(r.WeekStart))
	}
	return b.String()
}

func writeInts(b *strings.Builder, part string, ints []int) {
	if len(ints) == 0 {
		return
	}
	b.WriteByte(';')
	b.WriteString(part)
	b.WriteByte('=')
	for i, n := range ints {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
}
