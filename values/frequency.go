package values

import (
	"fmt"
	"strings"
)

// Frequency is the base repetition tier of a rule.
type Frequency int

const (
	Secondly Frequency = iota
	Minutely
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
)

var frequencyNames = [...]string{
	Secondly: "SECONDLY",
	Minutely: "MINUTELY",
	Hourly:   "HOURLY",
	Daily:    "DAILY",
	Weekly:   "WEEKLY",
	Monthly:  "MONTHLY",
	Yearly:   "YEARLY",
}

func (f Frequency) String() string {
	if f < Secondly || f > Yearly {
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
	return frequencyNames[f]
}

// ParseFrequency maps a FREQ value, case-insensitively, to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if strings.EqualFold(s, name) {
			return Frequency(f), nil
		}
	}
	return 0, fmt.Errorf("unknown frequency %q", s)
}
