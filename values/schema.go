package values

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/internal/logging"
)

// Option configures parsing.
type Option func(*parseConfig)

type parseConfig struct {
	logger    *slog.Logger
	resolveTZ TimezoneResolver
}

func newParseConfig(opts []Option) *parseConfig {
	c := &parseConfig{
		logger:    logging.Discard(),
		resolveTZ: time.LoadLocation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the logger that receives dropped-line diagnostics in
// lenient mode.
func WithLogger(logger *slog.Logger) Option {
	return func(c *parseConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimezoneResolver replaces time.LoadLocation for TZID lookups.
func WithTimezoneResolver(resolve TimezoneResolver) Option {
	return func(c *parseConfig) {
		if resolve != nil {
			c.resolveTZ = resolve
		}
	}
}

// objectRule parses the parameters and content of one kind of content line.
type objectRule func(cfg *parseConfig, cl contentLine, loc *time.Location) (Object, error)

var objectRules = map[string]objectRule{
	"RRULE":  parseRuleObject,
	"EXRULE": parseRuleObject,
	"RDATE":  parseDateListObject,
	"EXDATE": parseDateListObject,
}

// ParseContentLine parses one unfolded RRULE, EXRULE, RDATE or EXDATE line.
// loc is the zone for floating RDATE/EXDATE date-times.
func ParseContentLine(line string, loc *time.Location, opts ...Option) (Object, error) {
	cl, err := splitContentLine(strings.TrimSpace(line))
	if err != nil {
		return nil, err
	}
	rule, ok := objectRules[cl.name]
	if !ok {
		return nil, &ParseError{Kind: ErrUnknownProperty, Line: line, Fragment: cl.name}
	}
	obj, err := rule(newParseConfig(opts), cl, loc)
	if err != nil {
		return nil, withLine(err, line)
	}
	return obj, nil
}

// rrulparam and exrparam only admit x-params.
func parseRuleObject(_ *parseConfig, cl contentLine, _ *time.Location) (Object, error) {
	for _, p := range cl.params {
		if !isXName(p.name) {
			return nil, badParam(p.name, p.value)
		}
	}
	r := NewRRule(cl.name, Daily)
	if err := applyRecur(r, cl.content); err != nil {
		return nil, err
	}
	return r, nil
}

var rrulePartRE = regexp.MustCompile(`(?i)^(FREQ|UNTIL|COUNT|INTERVAL|BYSECOND|BYMINUTE|BYHOUR|BYDAY|BYMONTHDAY|BYYEARDAY|BYWEEKNO|BYMONTH|BYSETPOS|WKST|X-[A-Z0-9\-]+)=(.*)$`)

// applyRecur validates the recur value as a whole and then dispatches each
// part to its rule.
func applyRecur(r *RRule, content string) error {
	parts := strings.Split(content, ";")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	type part struct{ name, value string }
	var ordered []part
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		m := rrulePartRE.FindStringSubmatch(p)
		if m == nil {
			return badPart(p, "")
		}
		name := strings.ToUpper(m[1])
		if seen[name] {
			return &ParseError{Kind: ErrDuplicatePart, Fragment: p}
		}
		seen[name] = true
		ordered = append(ordered, part{name: name, value: m[2]})
	}
	if !seen["FREQ"] {
		return &ParseError{Kind: ErrMissingPart, Fragment: "FREQ"}
	}
	if seen["UNTIL"] && seen["COUNT"] {
		return badPart(content, "UNTIL & COUNT are exclusive")
	}

	for _, p := range ordered {
		if isXName(p.name) {
			continue
		}
		if err := partRules[p.name](r, p.value); err != nil {
			return err
		}
	}
	return nil
}

type partRule func(r *RRule, value string) error

var partRules = map[string]partRule{
	"FREQ": func(r *RRule, v string) error {
		return assign(&r.Freq, xformFreq(v))
	},
	"UNTIL": func(r *RRule, v string) error {
		until, err := xformEndDate(v).Get()
		if err != nil {
			return err
		}
		r.Until = mo.Some(until)
		return nil
	},
	"COUNT": func(r *RRule, v string) error {
		count, err := xformInt(0)(v).Get()
		if err != nil {
			return err
		}
		r.Count = mo.Some(count)
		return nil
	},
	"INTERVAL": func(r *RRule, v string) error {
		return assign(&r.Interval, xformInt(1)(v))
	},
	"BYSECOND":   listPart(func(r *RRule) *[]int { return &r.BySecond }, unsignedIntList(0, 59)),
	"BYMINUTE":   listPart(func(r *RRule) *[]int { return &r.ByMinute }, unsignedIntList(0, 59)),
	"BYHOUR":     listPart(func(r *RRule) *[]int { return &r.ByHour }, unsignedIntList(0, 23)),
	"BYMONTHDAY": listPart(func(r *RRule) *[]int { return &r.ByMonthDay }, signedIntList(1, 31)),
	"BYYEARDAY":  listPart(func(r *RRule) *[]int { return &r.ByYearDay }, signedIntList(1, 366)),
	"BYWEEKNO":   listPart(func(r *RRule) *[]int { return &r.ByWeekNo }, signedIntList(1, 53)),
	"BYMONTH":    listPart(func(r *RRule) *[]int { return &r.ByMonth }, signedIntList(1, 12)),
	"BYSETPOS":   listPart(func(r *RRule) *[]int { return &r.BySetPos }, signedIntList(1, 366)),
	"BYDAY": func(r *RRule, v string) error {
		return assign(&r.ByDay, xformWeekdayList(v))
	},
	"WKST": func(r *RRule, v string) error {
		return assign(&r.WeekStart, xformWeekday(v))
	},
}

func assign[T any](dst *T, res mo.Result[T]) error {
	v, err := res.Get()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func listPart(field func(*RRule) *[]int, xf xform[[]int]) partRule {
	return func(r *RRule, v string) error {
		return assign(field(r), xf(v))
	}
}

// xform validates and converts the text of one part value.
type xform[T any] func(value string) mo.Result[T]

func xformFreq(v string) mo.Result[Frequency] {
	f, err := ParseFrequency(v)
	if err != nil {
		return mo.Err[Frequency](badPart(v, err.Error()))
	}
	return mo.Ok(f)
}

// enddate = date / date-time, the latter in UTC.
func xformEndDate(v string) mo.Result[DateValue] {
	d, err := ParseDateValue(v, nil)
	if err != nil {
		return mo.Err[DateValue](badPart(v, err.Error()))
	}
	return mo.Ok(d)
}

func xformWeekday(v string) mo.Result[time.Weekday] {
	d, err := ParseWeekday(v)
	if err != nil {
		return mo.Err[time.Weekday](badPart(v, err.Error()))
	}
	return mo.Ok(d)
}

// xformInt accepts unsigned decimal integers no smaller than min.
func xformInt(min int) xform[int] {
	return func(v string) mo.Result[int] {
		n, err := parseDigits(v)
		if err != nil {
			return mo.Err[int](badPart(v, "expected an unsigned integer"))
		}
		if n < min {
			return mo.Err[int](badPart(v, fmt.Sprintf("must be at least %d", min)))
		}
		return mo.Ok(n)
	}
}

// signedIntList parses a comma separated list of optionally signed integers
// whose magnitude lies in [absMin, absMax].
func signedIntList(absMin, absMax int) xform[[]int] {
	return intList(func(n int) bool {
		if n < 0 {
			n = -n
		}
		return n >= absMin && n <= absMax
	})
}

// unsignedIntList parses a comma separated list of integers in [min, max].
func unsignedIntList(min, max int) xform[[]int] {
	return intList(func(n int) bool { return n >= min && n <= max })
}

func intList(inRange func(int) bool) xform[[]int] {
	return func(v string) mo.Result[[]int] {
		tokens := strings.Split(v, ",")
		out := make([]int, 0, len(tokens))
		for _, tok := range tokens {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return mo.Err[[]int](badPart(v, fmt.Sprintf("not an integer: %q", tok)))
			}
			if !inRange(n) {
				return mo.Err[[]int](badPart(v, fmt.Sprintf("%d out of range", n)))
			}
			out = append(out, n)
		}
		return mo.Ok(out)
	}
}

var numDayRE = regexp.MustCompile(`(?i)^([+\-]?\d\d?)?(SU|MO|TU|WE|TH|FR|SA)$`)

// bywdaylist = weekdaynum *("," weekdaynum)
// weekdaynum = [[plus / minus] ordwk] weekday, ordwk in 1..53
func xformWeekdayList(v string) mo.Result[[]WeekdayNum] {
	tokens := strings.Split(v, ",")
	out := make([]WeekdayNum, 0, len(tokens))
	for _, tok := range tokens {
		m := numDayRE.FindStringSubmatch(tok)
		if m == nil {
			return mo.Err[[]WeekdayNum](badPart(tok, ""))
		}
		wday, _ := ParseWeekday(m[2])
		n := 0
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
			abs := n
			if abs < 0 {
				abs = -abs
			}
			if abs < 1 || abs > 53 {
				return mo.Err[[]WeekdayNum](badPart(tok, "ordinal out of range"))
			}
		}
		out = append(out, WeekdayNum{Num: n, Weekday: wday})
	}
	return mo.Ok(out)
}

// rdtparam admits VALUE and TZID at most once each, plus x-params.
func parseDateListObject(cfg *parseConfig, cl contentLine, loc *time.Location) (Object, error) {
	l := &RDateList{Name: cl.name, ValueType: ValueDateTime, TZID: loc}
	seen := make(map[string]bool, 2)
	for _, p := range cl.params {
		if isXName(p.name) {
			continue
		}
		if seen[p.name] {
			return nil, badParam(p.name, p.value)
		}
		seen[p.name] = true
		switch p.name {
		case "VALUE":
			switch strings.ToUpper(p.value) {
			case "DATE-TIME":
				l.ValueType = ValueDateTime
			case "DATE":
				l.ValueType = ValueDate
			case "PERIOD":
				l.ValueType = ValuePeriod
			default:
				return nil, badParam(p.name, p.value)
			}
		case "TZID":
			name := strings.TrimSpace(strings.TrimPrefix(p.value, "/"))
			tz, err := cfg.resolveTZ(strings.ReplaceAll(name, " ", "_"))
			if err != nil || tz == nil {
				return nil, badParam(p.name, p.value)
			}
			l.TZID = tz
		default:
			return nil, badParam(p.name, p.value)
		}
	}

	for _, tok := range strings.Split(cl.content, ",") {
		tok = strings.TrimSpace(tok)
		if l.ValueType == ValuePeriod {
			// period = start "/" (end / duration); only the start is an
			// occurrence.
			if slash := strings.IndexByte(tok, '/'); slash >= 0 {
				tok = tok[:slash]
			}
		}
		d, err := ParseDateValue(tok, l.TZID)
		if err != nil {
			return nil, badPart(tok, err.Error())
		}
		if l.ValueType == ValueDate && d.HasTime() {
			return nil, badPart(tok, "VALUE=DATE requires a date")
		}
		l.Dates = append(l.Dates, d)
	}
	return l, nil
}
