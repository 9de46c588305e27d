package recurrence

import (
	"strings"
	"time"
)

// RecurrenceInfo contains all recurrence-related information for an event
type RecurrenceInfo struct {
	RRULE        []string    // RRULE values, with or without the "RRULE:" prefix
	EXRULE       []string    // EXRULE values, with or without the "EXRULE:" prefix
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception dates (excluded occurrences)
	RecurrenceID *time.Time  // For exception instances - which occurrence this overrides
}

// IsRecurring reports whether anything beyond the master occurrence is defined.
func (r RecurrenceInfo) IsRecurring() bool {
	return len(r.RRULE) > 0 || len(r.RDATE) > 0
}

// rdata renders the rules and extra dates as a recurrence block. EXDATE is
// left out; the engine applies it itself so date-only exceptions cover a
// whole day.
func (r RecurrenceInfo) rdata() string {
	var b strings.Builder
	writeRules(&b, "RRULE", r.RRULE)
	writeRules(&b, "EXRULE", r.EXRULE)
	if len(r.RDATE) > 0 {
		b.WriteString("RDATE:")
		for i, d := range r.RDATE {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(d.UTC().Format(utcLayout))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

const utcLayout = "20060102T150405Z"

func writeRules(b *strings.Builder, name string, rules []string) {
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if len(rule) <= len(name) || !strings.EqualFold(rule[:len(name)+1], name+":") {
			b.WriteString(name)
			b.WriteByte(':')
		}
		b.WriteString(rule)
		b.WriteByte('\n')
	}
}

// TimeOccurrence represents a single occurrence of an event in time
type TimeOccurrence struct {
	Start        time.Time  // Start time of this occurrence
	End          time.Time  // End time of this occurrence
	IsException  bool       // True if this is an exception/override instance
	RecurrenceID *time.Time // The original start of the occurrence
}

// ExpansionOptions controls how recurrence expansion behaves
type ExpansionOptions struct {
	MaxOccurrences    int           // Maximum number of occurrences to expand (0 = unlimited)
	MaxTimeSpan       time.Duration // Maximum time span to expand (0 = unlimited)
	IncludeExceptions bool          // Whether to include exception instances in expansion
}

// DefaultExpansionOptions provides sensible defaults for expansion
var DefaultExpansionOptions = ExpansionOptions{
	MaxOccurrences:    1000,
	MaxTimeSpan:       365 * 24 * time.Hour * 2, // 2 years
	IncludeExceptions: true,
}
