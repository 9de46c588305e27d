package recur

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyp0633/librecur/internal/logging"
	"github.com/cyp0633/librecur/internal/predicate"
	"github.com/cyp0633/librecur/values"
)

// Option configures iterators built by this package.
type Option func(*iteratorConfig)

type iteratorConfig struct {
	logger *slog.Logger
}

func newIteratorConfig(opts []Option) *iteratorConfig {
	c := &iteratorConfig{logger: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the logger for diagnostics such as rules that
// short-circuit.
func WithLogger(logger *slog.Logger) Option {
	return func(c *iteratorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// RRuleIterator walks the instances of a single RRULE or EXRULE.
type RRuleIterator struct {
	rule   *values.RRule
	logger *slog.Logger

	loc       *time.Location
	dtStart   values.DateValue
	condition condition

	instances Generator
	year      ThrottledGenerator
	month     Generator
	builder   *Builder

	canShortcutAdvance bool

	pending    values.DateValue
	hasPending bool
	lastUTC    values.DateValue
	emitted    bool
	done       bool
	err        error
}

// NewRRuleIterator returns an iterator over the instances of rule starting
// at dtStart, which is wall time in loc (nil meaning UTC). Instances before
// dtStart are skipped. Values with a time of day are returned in UTC.
func NewRRuleIterator(rule *values.RRule, dtStart values.DateValue, loc *time.Location, opts ...Option) (*RRuleIterator, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: nil rule", values.ErrInvalidArgument)
	}
	if rule.Freq < values.Daily {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, rule.Freq)
	}
	if rule.Freq != values.Yearly {
		switch {
		case len(rule.ByWeekNo) > 0:
			return nil, fmt.Errorf("%w: BYWEEKNO with FREQ=%s", ErrUnsupportedPart, rule.Freq)
		case len(rule.ByYearDay) > 0:
			return nil, fmt.Errorf("%w: BYYEARDAY with FREQ=%s", ErrUnsupportedPart, rule.Freq)
		}
	}
	cfg := newIteratorConfig(opts)
	it := &RRuleIterator{
		rule:    rule,
		logger:  cfg.logger,
		loc:     loc,
		dtStart: dtStart,
		builder: NewBuilder(dtStart),
	}
	it.assemble()
	it.prime()
	return it, nil
}

// assemble picks a generator for each tier from FREQ and the BY parts. The
// parts that would generate too many candidates at a tier become filters.
func (it *RRuleIterator) assemble() {
	r := it.rule
	dtStart := it.dtStart
	interval := max(r.Interval, 1)
	byDay, byMonth, byMonthDay := r.ByDay, r.ByMonth, r.ByMonthDay
	byWeekNo, byYearDay, bySetPos := r.ByWeekNo, r.ByYearDay, r.BySetPos
	wkst := r.WeekStart

	// With BYSETPOS the explicit generators start at the beginning of the
	// period so positions are counted over the whole period. Instances
	// before dtStart are dropped later.
	start := dtStart.DateOnly()
	if len(bySetPos) > 0 {
		switch r.Freq {
		case values.Yearly:
			start = values.NewDate(start.Year(), 1, 1)
		case values.Monthly:
			start = values.NewDate(start.Year(), start.Month(), 1)
		case values.Weekly:
			start = weekStartOnOrBefore(start, wkst)
		}
	}

	yearInterval := 1
	if r.Freq == values.Yearly {
		yearInterval = interval
	}
	it.year = newSerialYearGenerator(yearInterval, start)

	var (
		month   Generator
		day     Generator
		filters []Filter
	)
	switch r.Freq {
	case values.Daily:
		if len(byMonthDay) == 0 {
			day = newSerialDayGenerator(interval, dtStart)
		} else {
			day = newByMonthDayGenerator(byMonthDay, dtStart)
		}
		if len(byDay) > 0 {
			filters = append(filters, byDayFilter(byDay, true))
		}
	case values.Weekly:
		// A week is not a tier of its own since it can straddle months and
		// years, so the week interval is applied as a filter.
		if len(byDay) > 0 {
			day = newByDayGenerator(byDay, false, start)
			if interval > 1 {
				filters = append(filters, weekIntervalFilter(interval, wkst, dtStart))
			}
		} else {
			day = newSerialDayGenerator(interval*7, dtStart)
		}
		if len(byMonthDay) > 0 {
			filters = append(filters, byMonthDayFilter(byMonthDay))
		}
	case values.Monthly, values.Yearly:
		yearly := r.Freq == values.Yearly
		switch {
		case yearly && len(byYearDay) > 0:
			day = newByYearDayGenerator(byYearDay, start)
			if len(byDay) > 0 {
				filters = append(filters, byDayFilter(byDay, true))
			}
			if len(byMonthDay) > 0 {
				filters = append(filters, byMonthDayFilter(byMonthDay))
			}
		case len(byMonthDay) > 0:
			day = newByMonthDayGenerator(byMonthDay, start)
			if len(byDay) > 0 {
				filters = append(filters, byDayFilter(byDay, yearly && len(byMonth) == 0))
			}
		case yearly && len(byWeekNo) > 0:
			day = newByWeekNoGenerator(byWeekNo, wkst, start)
			if len(byDay) > 0 {
				filters = append(filters, byDayFilter(byDay, true))
			}
		case len(byDay) > 0:
			day = newByDayGenerator(byDay, yearly && len(byMonth) == 0, start)
		default:
			if yearly && len(byMonth) == 0 {
				month = newByMonthGenerator([]int{dtStart.Month()}, start)
			}
			day = newByMonthDayGenerator([]int{dtStart.Day()}, start)
		}
	}

	switch {
	case len(byMonth) > 0:
		month = newByMonthGenerator(byMonth, start)
	case month == nil:
		monthInterval := 1
		if r.Freq == values.Monthly {
			monthInterval = interval
		}
		month = newSerialMonthGenerator(monthInterval, start)
	}
	it.month = month

	if dtStart.HasTime() {
		if len(r.ByHour) > 0 {
			filters = append(filters, timeOfDayFilter(r.ByHour, values.DateValue.Hour))
		}
		if len(r.ByMinute) > 0 {
			filters = append(filters, timeOfDayFilter(r.ByMinute, values.DateValue.Minute))
		}
		if len(r.BySecond) > 0 {
			filters = append(filters, timeOfDayFilter(r.BySecond, values.DateValue.Second))
		}
	}
	filter := predicate.And(filters...)

	it.canShortcutAdvance = true
	if len(bySetPos) > 0 {
		it.instances = newBySetPosInstanceGenerator(bySetPos, r.Freq, wkst, filter, it.year, month, day)
		it.canShortcutAdvance = false
	} else {
		it.instances = newSerialInstanceGenerator(filter, it.year, month, day)
	}

	switch count, hasCount := r.Count.Get(); {
	case hasCount:
		// Every instance has to pass through the count.
		it.condition = countCondition(count)
		it.canShortcutAdvance = false
	default:
		until, hasUntil := r.Until.Get()
		if !hasUntil {
			it.condition = func(values.DateValue) bool { return true }
			break
		}
		switch {
		case dtStart.HasTime() && !until.HasTime():
			// A date-only UNTIL bounds a timed rule by the end of that day.
			until = until.AtTime(23, 59, 59)
			if it.loc != nil {
				until = values.ToUTC(until, it.loc)
			}
		case !dtStart.HasTime() && until.HasTime():
			until = values.FromUTC(until, it.loc).DateOnly()
		}
		it.condition = untilCondition(until)
	}
}

// prime moves the tiers onto the first period and skips instances before
// dtStart.
func (it *RRuleIterator) prime() {
	b := it.builder
	ok, err := it.year.Generate(b)
	if err == nil && ok {
		ok, err = nextMonth(b, it.year, it.month)
	}
	if err != nil || !ok {
		it.finish(err)
		return
	}

	startUTC := it.toUTC(it.dtStart)
	for !it.done {
		d, ok := it.generateInstance()
		if !ok {
			return
		}
		if d.Compare(startUTC) >= 0 {
			// Only instances from dtStart on count.
			if !it.condition(d) {
				it.finish(nil)
				return
			}
			it.setPending(d)
			return
		}
	}
}

func (it *RRuleIterator) toUTC(d values.DateValue) values.DateValue {
	if !d.HasTime() {
		return d
	}
	return values.ToUTC(d, it.loc)
}

// generateInstance returns the next instance in UTC that is later than
// every instance returned so far.
func (it *RRuleIterator) generateInstance() (values.DateValue, bool) {
	for {
		ok, err := it.instances.Generate(it.builder)
		if err != nil || !ok {
			it.finish(err)
			return values.DateValue{}, false
		}
		d := it.toUTC(it.builder.Value())
		if !it.emitted || d.After(it.lastUTC) {
			it.lastUTC, it.emitted = d, true
			return d, true
		}
	}
}

func (it *RRuleIterator) setPending(d values.DateValue) {
	it.pending, it.hasPending = d, true
	it.year.WorkDone()
}

func (it *RRuleIterator) finish(err error) {
	it.done = true
	it.hasPending = false
	if err != nil && it.err == nil {
		it.err = err
		if errors.Is(err, ErrShortCircuit) {
			it.logger.Warn("recurrence rule short-circuited",
				"rule", it.rule.String(),
				"dtstart", it.dtStart.String(),
			)
		}
	}
}

func (it *RRuleIterator) fetchNext() {
	if it.hasPending || it.done {
		return
	}
	d, ok := it.generateInstance()
	if !ok {
		return
	}
	if !it.condition(d) {
		it.finish(nil)
		return
	}
	it.setPending(d)
}

// HasNext reports whether Next has a value to return.
func (it *RRuleIterator) HasNext() bool {
	it.fetchNext()
	return it.hasPending
}

// Next returns the next instance. It returns the zero DateValue once the
// iterator is exhausted.
func (it *RRuleIterator) Next() values.DateValue {
	it.fetchNext()
	if !it.hasPending {
		return values.DateValue{}
	}
	it.hasPending = false
	return it.pending
}

// AdvanceTo skips instances before d, given in UTC. Whole years and months
// before d are skipped through the generators when neither COUNT nor
// BYSETPOS needs to see every instance.
func (it *RRuleIterator) AdvanceTo(d values.DateValue) {
	if it.done {
		return
	}
	if it.hasPending {
		if it.pending.Compare(d) >= 0 {
			return
		}
		it.hasPending = false
	}

	if it.canShortcutAdvance {
		local := values.FromUTC(d, it.loc)
		if !it.skipPeriods(local) {
			return
		}
	}

	for !it.done {
		inst, ok := it.generateInstance()
		if !ok {
			return
		}
		if !it.condition(inst) {
			it.finish(nil)
			return
		}
		if inst.Compare(d) >= 0 {
			it.setPending(inst)
			return
		}
	}
}

// skipPeriods moves the year and month tiers up to the month of local. It
// reports false if the recurrence ran out on the way.
func (it *RRuleIterator) skipPeriods(local values.DateValue) bool {
	b := it.builder
	if b.Year < local.Year() {
		for b.Year < local.Year() {
			// Skipped years are not empty years.
			it.year.WorkDone()
			ok, err := it.year.Generate(b)
			if err != nil || !ok {
				it.finish(err)
				return false
			}
		}
		if ok, err := nextMonth(b, it.year, it.month); err != nil || !ok {
			it.finish(err)
			return false
		}
	}
	for b.Year == local.Year() && b.Month < local.Month() {
		if ok, err := nextMonth(b, it.year, it.month); err != nil || !ok {
			it.finish(err)
			return false
		}
	}
	return true
}

// Err returns ErrShortCircuit if the rule was abandoned as probably empty.
func (it *RRuleIterator) Err() error {
	return it.err
}
