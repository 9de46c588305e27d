package values

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProperty is returned for a content line whose name is not
	// RRULE, EXRULE, RDATE or EXDATE.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrMalformedLine is returned when a content line lacks the name:value
	// shape.
	ErrMalformedLine = errors.New("malformed content line")
	// ErrBadPart is returned for an unknown rule part or a part whose value
	// does not match its grammar or range.
	ErrBadPart = errors.New("bad part")
	// ErrDuplicatePart is returned when a rule part occurs twice.
	ErrDuplicatePart = errors.New("duplicate part")
	// ErrMissingPart is returned when FREQ is absent.
	ErrMissingPart = errors.New("missing part")
	// ErrBadParam is returned for a property parameter that is not allowed or
	// has a bad value.
	ErrBadParam = errors.New("bad parameter")
	// ErrInvalidArgument is returned when an object is added to a Recurrence
	// collection of the wrong role.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ParseError describes a grammar violation. It unwraps to one of the
// category sentinels above so callers can use errors.Is.
type ParseError struct {
	Kind     error
	Line     string
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Fragment != "" {
		msg += fmt.Sprintf(" %q", e.Fragment)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Line != "" && e.Line != e.Fragment {
		msg += fmt.Sprintf(" in %q", e.Line)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func badPart(fragment, reason string) error {
	return &ParseError{Kind: ErrBadPart, Fragment: fragment, Reason: reason}
}

func badParam(name, value string) error {
	return &ParseError{Kind: ErrBadParam, Fragment: name + "=" + value}
}

// withLine attaches the content line to err if it is a *ParseError that
// does not know its line yet.
func withLine(err error, line string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Line == "" {
		pe.Line = line
	}
	return err
}
