package recurrence

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/librecur/dateiter"
	"github.com/cyp0633/librecur/values"
)

// ErrNoStart is returned when a component has neither DTSTART nor DUE.
var ErrNoStart = errors.New("component has no start time")

const propExceptionRule = "EXRULE"

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an iCal component.
// RDATE and EXDATE values are returned in UTC; date values become midnight UTC.
// Malformed date lists are skipped and reported in the joined error.
func ExtractRecurrenceInfoFromComponent(comp *ical.Component) (RecurrenceInfo, error) {
	var info RecurrenceInfo
	var errs []error

	for _, p := range comp.Props.Values(ical.PropRecurrenceRule) {
		if p.Value != "" {
			info.RRULE = append(info.RRULE, p.Value)
		}
	}
	for _, p := range comp.Props.Values(propExceptionRule) {
		if p.Value != "" {
			info.EXRULE = append(info.EXRULE, p.Value)
		}
	}

	var err error
	if info.RDATE, err = parseDateProps(comp.Props.Values(ical.PropRecurrenceDates)); err != nil {
		errs = append(errs, err)
	}
	if info.EXDATE, err = parseDateProps(comp.Props.Values(ical.PropExceptionDates)); err != nil {
		errs = append(errs, err)
	}

	// RECURRENCE-ID marks an exception instance
	if p := comp.Props.Get(ical.PropRecurrenceID); p != nil && p.Value != "" {
		if recID, err := p.DateTime(time.UTC); err == nil {
			recID = recID.UTC()
			info.RecurrenceID = &recID
		} else {
			errs = append(errs, fmt.Errorf("parse %s: %w", ical.PropRecurrenceID, err))
		}
	}

	return info, errors.Join(errs...)
}

// parseDateProps reads RDATE or EXDATE properties through the content line
// parser, which handles VALUE=DATE, VALUE=PERIOD and TZID.
func parseDateProps(props []ical.Prop) ([]time.Time, error) {
	var dates []time.Time
	var errs []error
	for _, p := range props {
		if strings.TrimSpace(p.Value) == "" {
			continue
		}
		list, err := values.ParseRDateList(contentLine(p), time.UTC)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, d := range list.Dates {
			dates = append(dates, dateiter.ToTime(d))
		}
	}
	return dates, errors.Join(errs...)
}

func contentLine(p ical.Prop) string {
	var b strings.Builder
	b.WriteString(p.Name)
	names := slices.Sorted(maps.Keys(p.Params))
	for _, name := range names {
		b.WriteByte(';')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(p.Params[name], ","))
	}
	b.WriteByte(':')
	b.WriteString(p.Value)
	return b.String()
}

// ExtractBasicTimeInfoFromComponent extracts start and end times from an iCal component
func ExtractBasicTimeInfoFromComponent(comp *ical.Component) (start, end time.Time, hasTime bool) {
	if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
		if dtstart, err := p.DateTime(time.UTC); err == nil {
			start = dtstart
			hasTime = true
			allDay := isAllDayProp(p)

			// End: DTEND, then DURATION, then the default
			if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
				if dtend, err := endProp.DateTime(time.UTC); err == nil {
					end = dtend
					// An all-day event ending on its start date lasts the day.
					if allDay && sameDate(start, end) {
						end = start.AddDate(0, 0, 1)
					}
				}
			} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
				duration, err := durationProp.Duration()
				if err != nil {
					return time.Time{}, time.Time{}, false
				}
				end = start.Add(duration)
			}

			if end.IsZero() {
				// All-day events last one day, timed events are instantaneous.
				if allDay {
					end = start.AddDate(0, 0, 1)
				} else {
					end = start
				}
			}
		}
	}

	// For VTODO, also check DUE property
	if comp.Name == ical.CompToDo {
		if p := comp.Props.Get(ical.PropDue); p != nil {
			if due, err := p.DateTime(time.UTC); err == nil {
				if !hasTime {
					start, end, hasTime = due, due, true
				} else if due.After(end) {
					end = due
				}
			}
		}
	}

	return start, end, hasTime
}

func isAllDayProp(p *ical.Prop) bool {
	return strings.EqualFold(p.Params.Get(ical.ParamValue), string(ical.ValueDate))
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// recurrenceProps are dropped from expanded instances.
var recurrenceProps = []string{
	ical.PropRecurrenceRule,
	propExceptionRule,
	ical.PropRecurrenceDates,
	ical.PropExceptionDates,
	ical.PropDateTimeStart,
	ical.PropDateTimeEnd,
	ical.PropDuration,
	ical.PropRecurrenceID,
}

// ExpandComponent expands a recurring VEVENT or VTODO into one component per
// occurrence in the range, each carrying DTSTART, DTEND and RECURRENCE-ID.
// An override whose RECURRENCE-ID matches an occurrence replaces it when
// opts.IncludeExceptions is set and suppresses it otherwise. A master without
// a UID gets a random one shared by all its instances. A component without
// RRULE or RDATE is returned as is when it overlaps the range.
func (e *Engine) ExpandComponent(
	master *ical.Component,
	overrides []*ical.Component,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]*ical.Component, error) {
	start, end, ok := ExtractBasicTimeInfoFromComponent(master)
	if !ok {
		return nil, ErrNoStart
	}
	info, err := ExtractRecurrenceInfoFromComponent(master)
	if err != nil {
		e.logger.Warn("ignoring malformed recurrence dates",
			"component", master.Name,
			"error", err,
		)
	}
	if !info.IsRecurring() && info.RecurrenceID == nil {
		if overlaps(start, end, rangeStart, rangeEnd) && !isExcluded(start, info.EXDATE) {
			return []*ical.Component{master}, nil
		}
		return nil, nil
	}

	occurrences, err := e.Expand(start, end, info, rangeStart, rangeEnd, opts)
	if err != nil {
		return nil, err
	}

	uid := master.Props.Get(ical.PropUID)
	if uid == nil || uid.Value == "" {
		uid = ical.NewProp(ical.PropUID)
		uid.Value = uuid.NewString()
	}

	byID := make(map[int64]*ical.Component, len(overrides))
	for _, o := range overrides {
		oInfo, _ := ExtractRecurrenceInfoFromComponent(o)
		if oInfo.RecurrenceID != nil {
			byID[oInfo.RecurrenceID.Unix()] = o
		}
	}

	allDay := false
	if p := master.Props.Get(ical.PropDateTimeStart); p != nil {
		allDay = isAllDayProp(p)
	}
	var out []*ical.Component
	for _, occ := range occurrences {
		if o, ok := byID[occ.RecurrenceID.Unix()]; ok {
			delete(byID, occ.RecurrenceID.Unix())
			if opts.IncludeExceptions {
				out = append(out, o)
			}
			continue
		}
		out = append(out, instance(master, uid, occ, allDay))
	}

	// Overrides moved into the range from an occurrence outside it.
	if opts.IncludeExceptions {
		for _, o := range byID {
			oStart, oEnd, ok := ExtractBasicTimeInfoFromComponent(o)
			if ok && overlaps(oStart, oEnd, rangeStart, rangeEnd) {
				out = append(out, o)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, _, _ := ExtractBasicTimeInfoFromComponent(out[i])
		sj, _, _ := ExtractBasicTimeInfoFromComponent(out[j])
		return si.Before(sj)
	})
	if opts.MaxOccurrences > 0 && len(out) > opts.MaxOccurrences {
		out = out[:opts.MaxOccurrences]
	}
	return out, nil
}

func instance(master *ical.Component, uid *ical.Prop, occ TimeOccurrence, allDay bool) *ical.Component {
	comp := ical.NewComponent(master.Name)
	for name, props := range master.Props {
		if slices.Contains(recurrenceProps, name) {
			continue
		}
		cloned := make([]ical.Prop, len(props))
		for i, p := range props {
			p.Params = maps.Clone(p.Params)
			cloned[i] = p
		}
		comp.Props[name] = cloned
	}
	comp.Props.Set(uid)
	comp.Children = master.Children

	endProp := ical.PropDateTimeEnd
	if master.Name == ical.CompToDo {
		endProp = ical.PropDue
	}
	set := comp.Props.SetDateTime
	if allDay {
		set = comp.Props.SetDate
	}
	set(ical.PropDateTimeStart, occ.Start)
	set(endProp, occ.End)
	set(ical.PropRecurrenceID, *occ.RecurrenceID)
	return comp
}
