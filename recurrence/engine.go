package recurrence

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cyp0633/librecur/dateiter"
	"github.com/cyp0633/librecur/recur"
)

// Engine provides unified recurrence expansion and validation logic
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for expansion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new recurrence engine without a result cache
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DisabledCacheConfig, opts...)
}

// Close releases the cached results.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats reports cache statistics; ok is false when caching is disabled.
func (e *Engine) CacheStats() (stats CacheStats, ok bool) {
	if e.cache == nil {
		return CacheStats{}, false
	}
	return e.cache.Stats(), true
}

const opHasOccurrence = "has-occurrence"

// HasOccurrenceInRange checks if a recurring event has any occurrence in the time range.
// An occurrence matches when start <= rangeEnd and end >= rangeStart. Expansion
// stops at the first match.
func (e *Engine) HasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(opHasOccurrence, masterStart, masterEnd, recurrence, rangeStart, rangeEnd); ok {
			if found, ok := v.(bool); ok {
				e.logger.Debug("recurrence cache hit", "operation", opHasOccurrence)
				return found, nil
			}
		}
	}

	found, err := e.hasOccurrenceInRange(masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	if err != nil {
		return false, err
	}
	if e.cache != nil {
		e.cache.Set(opHasOccurrence, masterStart, masterEnd, recurrence, rangeStart, rangeEnd, found)
	}
	return found, nil
}

func (e *Engine) hasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	masterHit := overlaps(masterStart, masterEnd, rangeStart, rangeEnd) && !isExcluded(masterStart, recurrence.EXDATE)
	if recurrence.RecurrenceID != nil {
		return masterHit, nil
	}
	// Fast path: the master occurrence. An EXRULE may drop it, which only
	// the iterator can tell.
	if len(recurrence.EXRULE) == 0 {
		if masterHit {
			return true, nil
		}
		if !recurrence.IsRecurring() {
			return false, nil
		}
	}

	found := false
	err := e.walk(masterStart, masterEnd, recurrence, rangeStart, rangeEnd, e.config.MaxExpansionOccurrences,
		func(time.Time) bool {
			found = true
			return false
		})
	if err != nil {
		return false, fmt.Errorf("failed to check recurrence occurrences: %w", err)
	}
	return found, nil
}

// Expand lists the occurrences that overlap the range, in ascending order.
// The range end is clamped to rangeStart+MaxTimeSpan and at most
// MaxOccurrences are returned. An override instance, one with a
// RECURRENCE-ID, yields just itself and only when IncludeExceptions is set.
func (e *Engine) Expand(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]TimeOccurrence, error) {
	if opts.MaxTimeSpan > 0 && rangeEnd.Sub(rangeStart) > opts.MaxTimeSpan {
		rangeEnd = rangeStart.Add(opts.MaxTimeSpan)
	}
	op := fmt.Sprintf("expand:%d:%d:%t", opts.MaxOccurrences, opts.MaxTimeSpan, opts.IncludeExceptions)
	if e.cache != nil {
		if v, ok := e.cache.Get(op, masterStart, masterEnd, recurrence, rangeStart, rangeEnd); ok {
			if occurrences, ok := v.([]TimeOccurrence); ok {
				e.logger.Debug("recurrence cache hit", "operation", op)
				return slices.Clone(occurrences), nil
			}
		}
	}

	occurrences, err := e.expand(masterStart, masterEnd, recurrence, rangeStart, rangeEnd, opts)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(op, masterStart, masterEnd, recurrence, rangeStart, rangeEnd, slices.Clone(occurrences))
	}
	return occurrences, nil
}

func (e *Engine) expand(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]TimeOccurrence, error) {
	if recurrence.RecurrenceID != nil {
		if !opts.IncludeExceptions || !overlaps(masterStart, masterEnd, rangeStart, rangeEnd) {
			return nil, nil
		}
		id := *recurrence.RecurrenceID
		return []TimeOccurrence{{Start: masterStart, End: masterEnd, IsException: true, RecurrenceID: &id}}, nil
	}

	duration := masterEnd.Sub(masterStart)
	var occurrences []TimeOccurrence
	err := e.walk(masterStart, masterEnd, recurrence, rangeStart, rangeEnd, 0, func(start time.Time) bool {
		start = start.In(masterStart.Location())
		id := start
		occurrences = append(occurrences, TimeOccurrence{
			Start:        start,
			End:          start.Add(duration),
			RecurrenceID: &id,
		})
		return opts.MaxOccurrences <= 0 || len(occurrences) < opts.MaxOccurrences
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand recurrence: %w", err)
	}
	return occurrences, nil
}

// walk passes the start of every non-excluded occurrence overlapping the
// range to yield, in order, until yield returns false. At most limit
// candidates are inspected when limit is positive.
func (e *Engine) walk(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	limit int,
	yield func(start time.Time) bool,
) error {
	it, err := dateiter.New(recurrence.rdata(), masterStart, true, recur.WithLogger(e.logger))
	if err != nil {
		return err
	}

	duration := masterEnd.Sub(masterStart)
	// Anything starting earlier ends before the range.
	it.AdvanceTo(rangeStart.Add(-duration))
	for inspected := 0; it.HasNext(); inspected++ {
		if limit > 0 && inspected >= limit {
			e.logger.Warn("stopped scanning recurrence at occurrence limit",
				"limit", limit,
				"rangeStart", rangeStart,
				"rangeEnd", rangeEnd,
			)
			break
		}
		start := it.Next()
		if start.After(rangeEnd) {
			break
		}
		if !overlaps(start, start.Add(duration), rangeStart, rangeEnd) || isExcluded(start, recurrence.EXDATE) {
			continue
		}
		if !yield(start) {
			return nil
		}
	}

	if err := it.Err(); err != nil {
		if !errors.Is(err, recur.ErrShortCircuit) {
			return err
		}
		e.logger.Warn("recurrence rule stopped producing occurrences", "error", err)
	}
	return nil
}

// overlaps is the CalDAV time-range test: start <= rangeEnd AND end >= rangeStart.
func overlaps(start, end, rangeStart, rangeEnd time.Time) bool {
	return !start.After(rangeEnd) && !end.Before(rangeStart)
}

// isExcluded checks if a given time is in the EXDATE list
func isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}

		// Date-only exceptions are stored as midnight UTC and cover the
		// whole UTC day.
		if exdate.Hour() == 0 && exdate.Minute() == 0 && exdate.Second() == 0 && exdate.Location() == time.UTC {
			u := t.UTC()
			if time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Equal(exdate) {
				return true
			}
		}
	}
	return false
}
