package values

import (
	"strings"
	"time"
)

// ValueType is the VALUE parameter of an RDATE or EXDATE line.
type ValueType int

const (
	ValueDateTime ValueType = iota
	ValueDate
	ValuePeriod
)

func (v ValueType) String() string {
	switch v {
	case ValueDate:
		return "DATE"
	case ValuePeriod:
		return "PERIOD"
	default:
		return "DATE-TIME"
	}
}

// RDateList is a parsed RDATE or EXDATE line. Dates are in UTC, in the order
// they appeared.
type RDateList struct {
	Name      string
	ValueType ValueType
	TZID      *time.Location
	Dates     []DateValue
}

func (l *RDateList) PropertyName() string { return l.Name }

// ParseRDateList parses a full RDATE or EXDATE content line. Floating
// date-times are interpreted in loc unless the line carries a TZID.
func ParseRDateList(line string, loc *time.Location, opts ...Option) (*RDateList, error) {
	obj, err := ParseContentLine(line, loc, opts...)
	if err != nil {
		return nil, err
	}
	l, ok := obj.(*RDateList)
	if !ok {
		return nil, &ParseError{Kind: ErrUnknownProperty, Line: line, Fragment: obj.PropertyName(), Reason: "not a date list"}
	}
	return l, nil
}

// String renders the list as a content line with dates in UTC.
func (l *RDateList) String() string {
	var b strings.Builder
	b.WriteString(l.Name)
	if l.ValueType != ValueDateTime {
		b.WriteString(";VALUE=")
		b.WriteString(l.ValueType.String())
	}
	b.WriteByte(':')
	for i, d := range l.Dates {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(d.String())
		if d.HasTime() {
			b.WriteByte('Z')
		}
	}
	return b.String()
}
