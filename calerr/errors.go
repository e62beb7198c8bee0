// Package calerr holds the error types shared by the calendar value packages.
package calerr

import (
	"errors"
	"fmt"
)

// ErrorType classifies a calendar error.
type ErrorType string

const (
	// ErrFormat marks malformed RRULE, duration, period, date or date-time text.
	ErrFormat ErrorType = "format"
	// ErrRange marks a BY-rule or field value outside its RFC 5545 bounds.
	ErrRange ErrorType = "range"
	// ErrUnresolvable marks an expansion that ran out of budget before producing a result.
	ErrUnresolvable ErrorType = "unresolvable"
)

// Error represents a calendar value or expansion error
type Error struct {
	Type    ErrorType
	Message string
	Value   string // offending input, if any
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Type, so that
// errors.Is(err, calerr.ErrBudgetExceeded) style checks work on wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// ErrBudgetExceeded is returned when expansion stops because its cycle
// budget or deadline ran out.
var ErrBudgetExceeded = &Error{Type: ErrUnresolvable, Message: "recurrence budget exceeded"}

// Format builds a format error for the named value kind (e.g. "RRULE").
func Format(kind, value string, err error) error {
	return &Error{
		Type:    ErrFormat,
		Message: "invalid " + kind,
		Value:   value,
		Err:     err,
	}
}

// Formatf builds a format error with a formatted message.
func Formatf(value, format string, args ...any) error {
	return &Error{
		Type:    ErrFormat,
		Message: fmt.Sprintf(format, args...),
		Value:   value,
	}
}

// Range builds a range error for a rule part value.
func Range(rule string, value, lo, hi int) error {
	return &Error{
		Type:    ErrRange,
		Message: fmt.Sprintf("%s value %d outside [%d, %d]", rule, value, lo, hi),
	}
}

// Unresolvable builds the error for an expansion that stopped on its
// budget or deadline. It matches ErrBudgetExceeded, so it must not be
// used for lookup or parse failures.
func Unresolvable(rule string, cause error) error {
	return &Error{
		Type:    ErrUnresolvable,
		Message: "recurrence budget exceeded",
		Value:   rule,
		Err:     cause,
	}
}

func typeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsFormat reports whether err is (or wraps) a format error.
func IsFormat(err error) bool { return typeOf(err) == ErrFormat }

// IsRange reports whether err is (or wraps) a range error.
func IsRange(err error) bool { return typeOf(err) == ErrRange }

// IsUnresolvable reports whether err is (or wraps) an unresolvable-recurrence error.
func IsUnresolvable(err error) bool { return typeOf(err) == ErrUnresolvable }
