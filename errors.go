package ics

import (
	"errors"
	"fmt"
)

var (
	ErrStartAndEndDateNotDefined = errors.New("start time and end time not defined")
	// ErrorPropertyNotFound is the error returned if the requested valid
	// property is not set.
	ErrorPropertyNotFound = errors.New("property not found")
	// ErrMalformedCalendar is wrapped by parse errors concerning the
	// VCALENDAR envelope itself.
	ErrMalformedCalendar = errors.New("malformed calendar")
)

// LexError reports a physical-format violation in the input stream: a control
// character where none is allowed, or a carriage return without a following
// line feed. An unterminated quoted parameter value is not a LexError: the
// content-line parser reports it as a ParseError. A LexError is fatal to the
// parse.
type LexError struct {
	Line   int
	Column int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d column %d: %s", e.Line, e.Column, e.Reason)
}

// ParseError reports a structural violation: a BEGIN without a matching END,
// a missing colon, or a stream that ends inside a component. Fatal.
type ParseError struct {
	Line     int
	Expected string
	Found    string
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Expected != "" || e.Found != "" {
		return fmt.Sprintf("parse error at line %d: %s (expected %q, found %q)", e.Line, e.Reason, e.Expected, e.Found)
	}
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
}

// ValueError reports that a single property's value failed typed parsing. In
// lenient mode it is recorded on the property and parsing continues; in
// strict mode it aborts the parse.
type ValueError struct {
	Property string
	Line     int
	Reason   string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("value error in %s at line %d: %s", e.Property, e.Line, e.Reason)
}

// RecurErrorKind discriminates semantic violations in a recurrence rule.
type RecurErrorKind int

const (
	// RecurOutOfRange indicates a BY part value outside its RFC 5545
	// section 3.3.10 range.
	RecurOutOfRange RecurErrorKind = iota
	// RecurConflictingLimit indicates both COUNT and UNTIL were supplied.
	RecurConflictingLimit
	// RecurMutuallyExclusive indicates the component carries both DTEND (or
	// DUE) and DURATION.
	RecurMutuallyExclusive
)

func (k RecurErrorKind) String() string {
	switch k {
	case RecurOutOfRange:
		return "value out of range"
	case RecurConflictingLimit:
		return "COUNT and UNTIL are mutually exclusive"
	case RecurMutuallyExclusive:
		return "DTEND and DURATION are mutually exclusive"
	}
	return "unknown"
}

// RecurError surfaces at evaluation time unless strict parsing requested
// eager validation.
type RecurError struct {
	Kind   RecurErrorKind
	Detail string
}

func (e *RecurError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("recurrence error: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("recurrence error: %s", e.Kind)
}

// ZoneError reports a TZID that could not be resolved against the calendar's
// timezone registry or the host resolver. It is never fatal: the date-time
// keeps the name for output and arithmetic proceeds as floating.
type ZoneError struct {
	TZID string
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("unresolved timezone %q; treating as floating", e.TZID)
}
