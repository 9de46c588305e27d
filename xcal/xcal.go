// Package xcal converts recurrence properties to and from the XML
// representation of iCalendar defined in RFC 6321.
package xcal

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/samber/mo"

	"github.com/cyp0633/librecur/values"
)

// Namespace is the xCal namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names
const (
	TagICalendar  = "icalendar"
	TagVCalendar  = "vcalendar"
	TagComponents = "components"
	TagVEvent     = "vevent"
	TagProperties = "properties"
	TagParameters = "parameters"
	TagRecur      = "recur"
	TagDate       = "date"
	TagDateTime   = "date-time"
	TagPeriod     = "period"
	TagStart      = "start"
	TagText       = "text"
	TagTZID       = "tzid"
	TagDTStart    = "dtstart"
)

// ErrInvalidDocument is returned when the XML lacks an expected element.
var ErrInvalidDocument = errors.New("invalid xCal document")

// recurParts lists the recur children in schema order.
var recurParts = []string{
	"freq", "until", "count", "interval",
	"bysecond", "byminute", "byhour", "byday", "bymonthday",
	"byyearday", "byweekno", "bymonth", "bysetpos", "wkst",
}

// EncodeRRule returns the <recur> value of r. List parts become repeated
// elements.
func EncodeRRule(r *values.RRule) *etree.Element {
	recur := etree.NewElement(TagRecur)
	add := func(tag, text string) {
		recur.CreateElement(tag).SetText(text)
	}
	addInts := func(tag string, ints []int) {
		for _, n := range ints {
			add(tag, fmt.Sprint(n))
		}
	}

	add("freq", r.Freq.String())
	if until, ok := r.Until.Get(); ok {
		_, text := formatDate(until)
		add("until", text)
	}
	if count, ok := r.Count.Get(); ok {
		add("count", fmt.Sprint(count))
	}
	if r.Interval > 1 {
		add("interval", fmt.Sprint(r.Interval))
	}
	addInts("bysecond", r.BySecond)
	addInts("byminute", r.ByMinute)
	addInts("byhour", r.ByHour)
	for _, wd := range r.ByDay {
		add("byday", wd.String())
	}
	addInts("bymonthday", r.ByMonthDay)
	addInts("byyearday", r.ByYearDay)
	addInts("byweekno", r.ByWeekNo)
	addInts("bymonth", r.ByMonth)
	addInts("bysetpos", r.BySetPos)
	if r.WeekStart != time.Monday {
		add("wkst", values.WeekdayCode(r.WeekStart))
	}
	return recur
}

// DecodeRRule parses a <recur> element into a rule named name, RRULE or
// EXRULE. The value goes through the same validation as a content line.
func DecodeRRule(recur *etree.Element, name string) (*values.RRule, error) {
	if recur == nil || recur.Tag != TagRecur {
		return nil, fmt.Errorf("%w: expected <%s>", ErrInvalidDocument, TagRecur)
	}

	lists := make(map[string][]string)
	for _, child := range recur.ChildElements() {
		if !slices.Contains(recurParts, child.Tag) {
			return nil, fmt.Errorf("%w: unknown recur part <%s>", ErrInvalidDocument, child.Tag)
		}
		text := strings.TrimSpace(child.Text())
		if child.Tag == "until" {
			text = compactDate(text)
		}
		lists[child.Tag] = append(lists[child.Tag], text)
	}

	var parts []string
	for _, tag := range recurParts {
		if vs, ok := lists[tag]; ok {
			parts = append(parts, strings.ToUpper(tag)+"="+strings.Join(vs, ","))
		}
	}
	return values.ParseRRule(strings.ToUpper(name) + ":" + strings.Join(parts, ";"))
}

// EncodeDateList returns an <rdate> or <exdate> property for l. Periods are
// written as their start.
func EncodeDateList(l *values.RDateList) *etree.Element {
	prop := etree.NewElement(strings.ToLower(l.Name))
	for _, d := range l.Dates {
		tag, text := formatDate(d)
		prop.CreateElement(tag).SetText(text)
	}
	return prop
}

// DecodeDateList parses an <rdate> or <exdate> property. Floating date-times
// are read in loc unless the property has a tzid parameter.
func DecodeDateList(prop *etree.Element, loc *time.Location) (*values.RDateList, error) {
	name := strings.ToUpper(prop.Tag)
	var (
		texts     []string
		valueType string
	)
	for _, child := range prop.ChildElements() {
		var text string
		switch child.Tag {
		case TagParameters:
			continue
		case TagDate, TagDateTime:
			text = child.Text()
		case TagPeriod:
			start := child.SelectElement(TagStart)
			if start == nil {
				return nil, fmt.Errorf("%w: <%s> without <%s>", ErrInvalidDocument, TagPeriod, TagStart)
			}
			text = start.Text()
		default:
			return nil, fmt.Errorf("%w: unexpected <%s> in <%s>", ErrInvalidDocument, child.Tag, prop.Tag)
		}
		if valueType == "" {
			valueType = child.Tag
		} else if valueType != child.Tag {
			return nil, fmt.Errorf("%w: mixed value types in <%s>", ErrInvalidDocument, prop.Tag)
		}
		texts = append(texts, compactDate(strings.TrimSpace(text)))
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty <%s>", ErrInvalidDocument, prop.Tag)
	}

	var b strings.Builder
	b.WriteString(name)
	if valueType != TagDateTime {
		b.WriteString(";VALUE=")
		b.WriteString(strings.ToUpper(valueType))
	}
	if tzid, ok := tzidParam(prop).Get(); ok {
		b.WriteString(";TZID=")
		b.WriteString(tzid)
	}
	b.WriteByte(':')
	b.WriteString(strings.Join(texts, ","))
	return values.ParseRDateList(b.String(), loc)
}

func tzidParam(prop *etree.Element) mo.Option[string] {
	params := prop.SelectElement(TagParameters)
	if params == nil {
		return mo.None[string]()
	}
	tzid := params.SelectElement(TagTZID)
	if tzid == nil {
		return mo.None[string]()
	}
	if text := tzid.SelectElement(TagText); text != nil {
		return mo.Some(strings.TrimSpace(text.Text()))
	}
	return mo.None[string]()
}

// EncodeRecurrence returns an xCal document holding one VEVENT with the
// rules and date lists of rec. dtStart, in UTC, is written when set.
func EncodeRecurrence(rec *values.Recurrence, dtStart mo.Option[values.DateValue]) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", Namespace)
	props := root.CreateElement(TagVCalendar).
		CreateElement(TagComponents).
		CreateElement(TagVEvent).
		CreateElement(TagProperties)

	if start, ok := dtStart.Get(); ok {
		tag, text := formatDate(start)
		props.CreateElement(TagDTStart).CreateElement(tag).SetText(text)
	}
	for _, r := range rec.InclusionRules() {
		props.CreateElement("rrule").AddChild(EncodeRRule(r))
	}
	for _, r := range rec.ExclusionRules() {
		props.CreateElement("exrule").AddChild(EncodeRRule(r))
	}
	for _, l := range rec.InclusionDates() {
		props.AddChild(EncodeDateList(l))
	}
	for _, l := range rec.ExclusionDates() {
		props.AddChild(EncodeDateList(l))
	}
	doc.Indent(2)
	return doc
}

// DecodeRecurrence reads the recurrence properties and DTSTART of the first
// component in doc. Other properties are ignored.
func DecodeRecurrence(doc *etree.Document, loc *time.Location) (*values.Recurrence, mo.Option[values.DateValue], error) {
	noStart := mo.None[values.DateValue]()
	props := doc.FindElement("//" + TagComponents + "/*/" + TagProperties)
	if props == nil {
		return nil, noStart, fmt.Errorf("%w: no component properties", ErrInvalidDocument)
	}

	rec := &values.Recurrence{}
	dtStart := noStart
	for _, prop := range props.ChildElements() {
		var err error
		switch prop.Tag {
		case TagDTStart:
			var start values.DateValue
			if start, err = decodeDTStart(prop, loc); err == nil {
				dtStart = mo.Some(start)
			}
		case "rrule", "exrule":
			var rule *values.RRule
			if rule, err = DecodeRRule(prop.SelectElement(TagRecur), prop.Tag); err == nil {
				if prop.Tag == "rrule" {
					err = rec.AddInclusionRule(rule)
				} else {
					err = rec.AddExclusionRule(rule)
				}
			}
		case "rdate", "exdate":
			var list *values.RDateList
			if list, err = DecodeDateList(prop, loc); err == nil {
				if prop.Tag == "rdate" {
					err = rec.AddInclusionDateList(list)
				} else {
					err = rec.AddExclusionDateList(list)
				}
			}
		}
		if err != nil {
			return nil, noStart, fmt.Errorf("decode <%s>: %w", prop.Tag, err)
		}
	}
	return rec, dtStart, nil
}

func decodeDTStart(prop *etree.Element, loc *time.Location) (values.DateValue, error) {
	if tzid, ok := tzidParam(prop).Get(); ok {
		tz, err := time.LoadLocation(tzid)
		if err != nil {
			return values.DateValue{}, err
		}
		loc = tz
	}
	for _, tag := range []string{TagDateTime, TagDate} {
		if v := prop.SelectElement(tag); v != nil {
			return values.ParseDateValue(compactDate(v.Text()), loc)
		}
	}
	return values.DateValue{}, fmt.Errorf("%w: <%s> without a value", ErrInvalidDocument, TagDTStart)
}

var compactor = strings.NewReplacer("-", "", ":", "")

// compactDate turns the xCal forms 2006-01-02 and 2006-01-02T15:04:05Z into
// their iCalendar spelling.
func compactDate(s string) string {
	return compactor.Replace(strings.TrimSpace(s))
}

// formatDate returns the element name and xCal text of a UTC DateValue.
func formatDate(d values.DateValue) (tag, text string) {
	if !d.HasTime() {
		return TagDate, fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
	}
	return TagDateTime, fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ",
		d.Year(), d.Month(), d.Day(), d.Hour(), d.Minute(), d.Second())
}
