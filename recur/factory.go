package recur

import (
	"fmt"
	"time"

	"github.com/cyp0633/librecur/values"
)

// NewIterator parses rdata, a block of RRULE, EXRULE, RDATE and EXDATE
// lines, and returns an iterator over the recurrence it describes. dtStart
// is wall time in loc and is always an occurrence. In strict mode the first
// malformed line or unusable rule is an error; otherwise such lines are
// logged and ignored.
func NewIterator(rdata string, dtStart values.DateValue, loc *time.Location, strict bool, opts ...Option) (*CompoundIterator, error) {
	cfg := newIteratorConfig(opts)
	rec, err := values.ParseRecurrence(rdata, loc, strict, values.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}
	return FromRecurrence(rec, dtStart, loc, strict, opts...)
}

// FromRecurrence is NewIterator for an already parsed recurrence.
func FromRecurrence(rec *values.Recurrence, dtStart values.DateValue, loc *time.Location, strict bool, opts ...Option) (*CompoundIterator, error) {
	cfg := newIteratorConfig(opts)

	start := dtStart
	if start.HasTime() {
		start = values.ToUTC(start, loc)
	}
	inclusions := []RecurrenceIterator{NewRDateIterator([]values.DateValue{start})}
	var exclusions []RecurrenceIterator

	ruleIterators := func(rules []*values.RRule) ([]RecurrenceIterator, error) {
		var its []RecurrenceIterator
		for _, rule := range rules {
			it, err := NewRRuleIterator(rule, dtStart, loc, opts...)
			if err != nil {
				if strict {
					return nil, fmt.Errorf("%s: %w", rule, err)
				}
				cfg.logger.Error("dropping unusable recurrence rule",
					"rule", rule.String(),
					"error", err,
				)
				continue
			}
			its = append(its, it)
		}
		return its, nil
	}

	its, err := ruleIterators(rec.InclusionRules())
	if err != nil {
		return nil, err
	}
	inclusions = append(inclusions, its...)
	if dates := rec.InclusionDates(); len(dates) > 0 {
		inclusions = append(inclusions, NewRDateListIterator(dates...))
	}

	its, err = ruleIterators(rec.ExclusionRules())
	if err != nil {
		return nil, err
	}
	exclusions = append(exclusions, its...)
	if dates := rec.ExclusionDates(); len(dates) > 0 {
		exclusions = append(exclusions, NewRDateListIterator(dates...))
	}

	return Join(inclusions, exclusions), nil
}
