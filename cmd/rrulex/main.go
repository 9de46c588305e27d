// Command rrulex expands iCalendar recurrences.
//
//	rrulex -rdata 'RRULE:FREQ=MONTHLY;BYDAY=-1FR;COUNT=6' -start 2024-01-01T09:00:00 -tz Europe/Berlin
//	rrulex -ics calendar.ics -start 2024-01-01 -span 720h -format ics
//
// With -rdata the text and ics formats list the occurrences and the xcal
// format prints the recurrence itself as RFC 6321 XML. With -ics every
// recurring VEVENT and VTODO is expanded over [start, start+span].
package main

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/cyp0633/librecur/dateiter"
	"github.com/cyp0633/librecur/internal/logging"
	"github.com/cyp0633/librecur/recur"
	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/values"
	"github.com/cyp0633/librecur/xcal"
)

const prodID = "-//librecur//rrulex//EN"

type config struct {
	rdata    string
	ics      string
	start    string
	tz       string
	limit    int
	span     time.Duration
	strict   bool
	format   string
	engine   string
	logLevel string
}

// enginePresets are the -engine choices for -ics expansion.
var enginePresets = map[string]recurrence.EngineConfig{
	"default": recurrence.DefaultEngineConfig,
	"fast":    recurrence.HighPerformanceConfig,
	"lowmem":  recurrence.LowMemoryConfig,
	"nocache": recurrence.DisabledCacheConfig,
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.Setup(os.Stderr, cfg.logLevel)
	if err := run(cfg, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("rrulex failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, getenv func(string) string) (config, error) {
	cfg := config{
		tz:       envOr(getenv, "RRULEX_TZ", "UTC"),
		engine:   envOr(getenv, "RRULEX_ENGINE", "nocache"),
		logLevel: envOr(getenv, "RRULEX_LOG_LEVEL", "info"),
	}
	fs := flag.NewFlagSet("rrulex", flag.ContinueOnError)
	fs.StringVar(&cfg.rdata, "rdata", "", `recurrence lines; "-" reads stdin, a literal \n separates lines`)
	fs.StringVar(&cfg.ics, "ics", "", "iCalendar file to expand")
	fs.StringVar(&cfg.start, "start", "", "DTSTART for -rdata, range start for -ics (default now)")
	fs.StringVar(&cfg.tz, "tz", cfg.tz, "time zone of -start and of floating times (env RRULEX_TZ)")
	fs.IntVar(&cfg.limit, "limit", 20, "maximum number of occurrences (0 = unlimited)")
	fs.DurationVar(&cfg.span, "span", 365*24*time.Hour, "length of the -ics expansion range")
	fs.BoolVar(&cfg.strict, "strict", false, "fail on the first malformed line instead of skipping it")
	fs.StringVar(&cfg.format, "format", "text", "output format: text, xcal or ics")
	fs.StringVar(&cfg.engine, "engine", cfg.engine, "engine preset for -ics: default, fast, lowmem or nocache (env RRULEX_ENGINE)")
	fs.StringVar(&cfg.logLevel, "log-level", cfg.logLevel, "debug, info, warn or error (env RRULEX_LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch {
	case (cfg.rdata == "") == (cfg.ics == ""):
		return cfg, errors.New("exactly one of -rdata and -ics is required")
	case cfg.format != "text" && cfg.format != "xcal" && cfg.format != "ics":
		return cfg, fmt.Errorf("unknown format %q", cfg.format)
	case cfg.ics != "" && cfg.format == "xcal":
		return cfg, errors.New("-format xcal needs -rdata")
	case cfg.limit < 0:
		return cfg, errors.New("-limit must not be negative")
	}
	if _, ok := enginePresets[cfg.engine]; !ok {
		return cfg, fmt.Errorf("unknown engine preset %q", cfg.engine)
	}
	return cfg, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg config, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	loc, err := time.LoadLocation(cfg.tz)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}
	start, allDay, err := parseStart(cfg.start, loc)
	if err != nil {
		return err
	}

	if cfg.ics != "" {
		return runICS(cfg, start, stdout, logger)
	}

	rdata := cfg.rdata
	if rdata == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		rdata = string(b)
	}
	rdata = strings.ReplaceAll(rdata, `\n`, "\n")

	if cfg.format == "xcal" {
		return writeXCal(stdout, rdata, start, allDay, cfg.strict, logger)
	}

	newIter := dateiter.New
	if allDay {
		newIter = dateiter.NewAllDay
	}
	it, err := newIter(rdata, start, cfg.strict, recur.WithLogger(logger))
	if err != nil {
		return err
	}

	var occurrences []time.Time
	for t := range it.All() {
		if cfg.limit > 0 && len(occurrences) == cfg.limit {
			break
		}
		occurrences = append(occurrences, t)
	}
	if err := it.Err(); err != nil {
		logger.Warn("recurrence ended early", "error", err)
	}
	logger.Debug("expanded recurrence", "occurrences", len(occurrences))

	if cfg.format == "ics" {
		return writeOccurrencesICS(stdout, occurrences, allDay)
	}
	for _, t := range occurrences {
		if allDay {
			fmt.Fprintln(stdout, t.Format(time.DateOnly))
		} else {
			fmt.Fprintln(stdout, t.In(loc).Format(time.RFC3339))
		}
	}
	return nil
}

var startLayouts = []struct {
	layout string
	allDay bool
}{
	{time.RFC3339, false},
	{"2006-01-02T15:04:05", false},
	{"20060102T150405", false},
	{time.DateOnly, true},
	{"20060102", true},
}

// parseStart reads s in loc. An empty s is the current second.
func parseStart(s string, loc *time.Location) (start time.Time, allDay bool, err error) {
	if s == "" {
		return time.Now().In(loc).Truncate(time.Second), false, nil
	}
	for _, l := range startLayouts {
		if t, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			return t, l.allDay, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse start %q", s)
}

func writeXCal(w io.Writer, rdata string, start time.Time, allDay, strict bool, logger *slog.Logger) error {
	rec, err := values.ParseRecurrence(rdata, start.Location(), strict, values.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("parse recurrence: %w", err)
	}
	dtStart := dateiter.FromTime(start, false)
	if allDay {
		dtStart = values.NewDate(start.Year(), int(start.Month()), start.Day())
	}
	doc := xcal.EncodeRecurrence(rec, mo.Some(dtStart))
	if _, err := doc.WriteTo(w); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	return cal
}

func writeOccurrencesICS(w io.Writer, occurrences []time.Time, allDay bool) error {
	cal := newCalendar()
	uid := uuid.NewString()
	stamp := time.Now().UTC().Truncate(time.Second)
	for _, t := range occurrences {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, uid)
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		if allDay {
			ev.Props.SetDate(ical.PropDateTimeStart, t)
			ev.Props.SetDate(ical.PropRecurrenceID, t)
		} else {
			ev.Props.SetDateTime(ical.PropDateTimeStart, t)
			ev.Props.SetDateTime(ical.PropRecurrenceID, t)
		}
		cal.Children = append(cal.Children, ev.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}

func runICS(cfg config, rangeStart time.Time, stdout io.Writer, logger *slog.Logger) error {
	f, err := os.Open(cfg.ics)
	if err != nil {
		return err
	}
	defer f.Close()

	in, err := ical.NewDecoder(f).Decode()
	if err != nil {
		return fmt.Errorf("decode %s: %w", cfg.ics, err)
	}

	preset := cmp.Or(cfg.engine, "nocache")
	engine := recurrence.NewEngineWithConfig(enginePresets[preset], recurrence.WithLogger(logger))
	defer engine.Close()
	opts := recurrence.DefaultExpansionOptions
	opts.MaxOccurrences = cfg.limit
	opts.MaxTimeSpan = 0
	rangeEnd := rangeStart.Add(cfg.span)

	masters, overrides := splitSeries(in)
	out := newCalendar()
	for _, master := range masters {
		uid := ""
		if p := master.Props.Get(ical.PropUID); p != nil {
			uid = p.Value
		}
		instances, err := engine.ExpandComponent(master, overrides[uid], rangeStart, rangeEnd, opts)
		if err != nil {
			if cfg.strict {
				return fmt.Errorf("expand %s %q: %w", master.Name, uid, err)
			}
			logger.Error("skipping component", "component", master.Name, "uid", uid, "error", err)
			continue
		}
		logger.Debug("expanded component", "uid", uid, "instances", len(instances))
		out.Children = append(out.Children, instances...)
	}
	if stats, ok := engine.CacheStats(); ok {
		logger.Debug("recurrence cache", "engine", preset, "hits", stats.Hits, "misses", stats.Misses)
	}

	if cfg.format == "ics" {
		return ical.NewEncoder(stdout).Encode(out)
	}
	for _, comp := range out.Children {
		start, _, _ := recurrence.ExtractBasicTimeInfoFromComponent(comp)
		summary := ""
		if p := comp.Props.Get(ical.PropSummary); p != nil {
			summary = p.Value
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", start.In(rangeStart.Location()).Format(time.RFC3339), comp.Name, summary)
	}
	return nil
}

// splitSeries separates the masters from the overrides, which are keyed by UID.
func splitSeries(cal *ical.Calendar) ([]*ical.Component, map[string][]*ical.Component) {
	var masters []*ical.Component
	overrides := make(map[string][]*ical.Component)
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent && comp.Name != ical.CompToDo {
			continue
		}
		if comp.Props.Get(ical.PropRecurrenceID) != nil {
			uid := ""
			if p := comp.Props.Get(ical.PropUID); p != nil {
				uid = p.Value
			}
			overrides[uid] = append(overrides[uid], comp)
			continue
		}
		masters = append(masters, comp)
	}
	return masters, overrides
}
