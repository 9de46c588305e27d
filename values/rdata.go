package values

import (
	"regexp"
	"strings"
	"time"
)

var (
	foldRE    = regexp.MustCompile(`(?:\r\n?|\n)[ \t]`)
	newlineRE = regexp.MustCompile(`[\r\n]+`)
	ruleRE    = regexp.MustCompile(`(?i)^(?:R|EX)RULE[:;]`)
	dateRE    = regexp.MustCompile(`(?i)^(?:R|EX)DATE[:;]`)
)

// Unfold removes line folding: a line break followed by a space or tab.
func Unfold(rdata string) string {
	return foldRE.ReplaceAllString(rdata, "")
}

// ParseRecurrence parses a block of RRULE, EXRULE, RDATE and EXDATE lines.
// Floating RDATE/EXDATE date-times are read in loc.
//
// In strict mode the first bad line aborts parsing and its error is
// returned. Otherwise bad lines are logged and dropped and the remaining
// lines still contribute.
func ParseRecurrence(rdata string, loc *time.Location, strict bool, opts ...Option) (*Recurrence, error) {
	cfg := newParseConfig(opts)
	result := &Recurrence{}

	unfolded := strings.TrimSpace(Unfold(rdata))
	if unfolded == "" {
		return result, nil
	}

	for i, raw := range newlineRE.Split(unfolded, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		err := parseBlockLine(result, line, loc, opts)
		if err == nil {
			continue
		}
		if strict {
			return nil, err
		}
		cfg.logger.Error("dropping bad recurrence rule line",
			"line", line,
			"index", i,
			"error", err,
		)
	}
	return result, nil
}

func parseBlockLine(result *Recurrence, line string, loc *time.Location, opts []Option) error {
	var (
		obj Object
		err error
	)
	switch {
	case ruleRE.MatchString(line):
		obj, err = ParseRRule(line)
	case dateRE.MatchString(line):
		obj, err = ParseRDateList(line, loc, opts...)
	default:
		return &ParseError{Kind: ErrUnknownProperty, Line: line, Fragment: line}
	}
	if err != nil {
		return err
	}
	return result.add(obj)
}
