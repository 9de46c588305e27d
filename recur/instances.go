package recur

import (
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/internal/intset"
	"github.com/cyp0633/librecur/internal/predicate"
	"github.com/cyp0633/librecur/internal/timeutil"
	"github.com/cyp0633/librecur/values"
)

// Filter accepts or rejects a candidate produced by the generator cascade.
type Filter = predicate.Predicate[values.DateValue]

type serialInstanceGenerator struct {
	filter Filter
	year   Generator
	month  Generator
	day    Generator
}

// newSerialInstanceGenerator cascades the three tiers into one ascending
// stream of dates accepted by filter.
func newSerialInstanceGenerator(filter Filter, year, month, day Generator) *serialInstanceGenerator {
	return &serialInstanceGenerator{filter: filter, year: year, month: month, day: day}
}

func (g *serialInstanceGenerator) Generate(b *Builder) (bool, error) {
	for {
		ok, err := g.nextDay(b)
		if err != nil || !ok {
			return false, err
		}
		if g.filter(b.Value()) {
			return true, nil
		}
	}
}

// nextDay advances the day tier, moving the coarser tiers on whenever the
// current month runs out.
func (g *serialInstanceGenerator) nextDay(b *Builder) (bool, error) {
	for {
		ok, err := g.day.Generate(b)
		if err != nil || ok {
			return ok, err
		}
		if ok, err := nextMonth(b, g.year, g.month); err != nil || !ok {
			return false, err
		}
	}
}

// nextMonth advances the month tier, moving the year on whenever the
// current year runs out.
func nextMonth(b *Builder, year, month Generator) (bool, error) {
	for {
		ok, err := month.Generate(b)
		if err != nil || ok {
			return ok, err
		}
		if ok, err := year.Generate(b); err != nil || !ok {
			return false, err
		}
	}
}

type setPosPhase int

const (
	// phaseFirstPeriod: nothing generated yet, the builder sits at the
	// start of the first period.
	phaseFirstPeriod setPosPhase = iota
	// phaseNextPeriod: the previous period is done with; accumulation
	// resumes from the pushback if there is one and otherwise skips the
	// rest of the period the builder is in.
	phaseNextPeriod
	// phaseEmitting: the resolved candidates of a period are being emitted.
	phaseEmitting
	// phaseDraining: like phaseEmitting, but the cascade is exhausted so
	// nothing follows the current candidates.
	phaseDraining
	phaseExhausted
)

type bySetPosInstanceGenerator struct {
	setPos      []int
	allPositive bool
	maxPos      int
	freq        values.Frequency
	wkst        time.Weekday

	serial *serialInstanceGenerator
	year   Generator
	month  Generator

	phase      setPosPhase
	pushback   mo.Option[values.DateValue]
	candidates []values.DateValue
	i          int
}

// newBySetPosInstanceGenerator buffers the candidates of each period (the
// year, month, week or day, depending on freq) and emits those at the
// requested 1-based positions, negative positions counting from the end.
func newBySetPosInstanceGenerator(setPos []int, freq values.Frequency, wkst time.Weekday,
	filter Filter, year, month, day Generator) *bySetPosInstanceGenerator {
	u := intset.Uniquify(setPos)
	return &bySetPosInstanceGenerator{
		setPos: u,
		// Only when every position is positive do we know how many
		// candidates are enough.
		allPositive: len(u) > 0 && u[0] > 0,
		maxPos:      u[len(u)-1],
		freq:        freq,
		wkst:        wkst,
		serial:      newSerialInstanceGenerator(filter, year, month, day),
		year:        year,
		month:       month,
	}
}

func (g *bySetPosInstanceGenerator) Generate(b *Builder) (bool, error) {
	for !g.hasCandidate() {
		switch g.phase {
		case phaseDraining, phaseExhausted:
			g.phase = phaseExhausted
			return false, nil
		case phaseEmitting:
			g.phase = phaseNextPeriod
		}

		first, ok, err := g.startPeriod(b)
		if err != nil || !ok {
			g.phase = phaseExhausted
			return false, err
		}
		dates, exhausted, err := g.accumulate(b, first)
		if err != nil {
			g.phase = phaseExhausted
			return false, err
		}
		g.candidates = g.resolve(dates)
		g.i = 0
		g.phase = phaseEmitting
		if exhausted {
			g.phase = phaseDraining
		}
	}
	b.setDate(g.candidates[g.i])
	g.i++
	return true, nil
}

func (g *bySetPosInstanceGenerator) hasCandidate() bool {
	return (g.phase == phaseEmitting || g.phase == phaseDraining) && g.i < len(g.candidates)
}

// startPeriod positions b at the start of the next period. It returns the
// first date of the period when that is already known.
func (g *bySetPosInstanceGenerator) startPeriod(b *Builder) (mo.Option[values.DateValue], bool, error) {
	none := mo.None[values.DateValue]()
	if g.phase == phaseFirstPeriod {
		return none, true, nil
	}
	if d, ok := g.pushback.Get(); ok {
		g.pushback = none
		b.setDate(d)
		return mo.Some(d), true, nil
	}

	// The last period stopped early at maxPos candidates; skip its rest.
	switch g.freq {
	case values.Yearly:
		ok, err := g.year.Generate(b)
		if err != nil || !ok {
			return none, false, err
		}
		fallthrough
	case values.Monthly:
		if ok, err := nextMonth(b, g.year, g.month); err != nil || !ok {
			return none, false, err
		}
	case values.Weekly:
		// Moving the builder alone does not move the day generator, so the
		// rest of the week has to be consumed.
		nextWeek := nextWeekStart(b.ToDate(), g.wkst)
		for {
			ok, err := g.serial.Generate(b)
			if err != nil || !ok {
				return none, false, err
			}
			if b.CompareDate(nextWeek) >= 0 {
				return mo.Some(b.ToDate()), true, nil
			}
		}
	}
	return none, true, nil
}

// accumulate collects the dates of the period starting at first, or at the
// next generated date if first is absent. The first date of the following
// period is kept as pushback. exhausted reports that the cascade ran dry.
func (g *bySetPosInstanceGenerator) accumulate(b *Builder, first mo.Option[values.DateValue]) (dates []values.DateValue, exhausted bool, err error) {
	limit := -1
	if g.allPositive {
		limit = g.maxPos
	}
	d0, started := first.Get()
	if started {
		dates = append(dates, d0)
	}
	for limit < 0 || len(dates) < limit {
		ok, err := g.serial.Generate(b)
		if err != nil {
			// A throttled cascade may have cut the period short, which
			// would shift positions counted from the end.
			return nil, true, err
		}
		if !ok {
			return dates, true, nil
		}
		d := b.ToDate()
		if !started {
			d0, started = d, true
			dates = append(dates, d)
			continue
		}
		if !g.samePeriod(d0, d) {
			g.pushback = mo.Some(d)
			break
		}
		dates = append(dates, d)
	}
	return dates, false, nil
}

// samePeriod reports whether d, generated after d0, lies in the period of d0.
func (g *bySetPosInstanceGenerator) samePeriod(d0, d values.DateValue) bool {
	switch g.freq {
	case values.Yearly:
		return d0.Year() == d.Year()
	case values.Monthly:
		return d0.Year() == d.Year() && d0.Month() == d.Month()
	case values.Weekly:
		// Less than a whole week apart and later in the week.
		return values.DaysBetween(d, d0) < 7 &&
			timeutil.WeekdayOffset(d.Weekday(), g.wkst) > timeutil.WeekdayOffset(d0.Weekday(), g.wkst)
	default:
		return d0.Equal(d)
	}
}

// resolve picks the requested positions out of dates in ascending order.
func (g *bySetPosInstanceGenerator) resolve(dates []values.DateValue) []values.DateValue {
	positions := g.setPos
	if !g.allPositive {
		var abs intset.Set
		for _, p := range g.setPos {
			if p < 0 {
				p += len(dates) + 1
			}
			abs.Add(p)
		}
		positions = abs.Ints()
	}
	var out []values.DateValue
	for _, p := range positions {
		if p >= 1 && p <= len(dates) {
			out = append(out, dates[p-1])
		}
	}
	return out
}
