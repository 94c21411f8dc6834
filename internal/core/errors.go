package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrRequired       = errors.New("is required")
	ErrTooShort       = errors.New("too short")
	ErrTooLong        = errors.New("too long")
	ErrInvalidChoice  = errors.New("invalid choice")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrOutOfRange     = errors.New("out of range")
	ErrEndBeforeStart = errors.New("end time must be after start time")
	ErrInvalidColor   = errors.New("invalid color (expected #RRGGBB)")
	ErrInvalidTime    = errors.New("invalid time (expected HH:MM)")
	ErrInvalidEmail   = errors.New("invalid email address")
)

// FieldError reports which field failed validation. It unwraps to one of
// the sentinel errors above.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

var (
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// checkLength counts runes, not bytes. min > 0 also rejects whitespace-only input.
func checkLength(field, s string, min, max int) error {
	if min > 0 && strings.TrimSpace(s) == "" {
		return fieldErr(field, ErrRequired)
	}
	n := utf8.RuneCountInString(s)
	if n < min {
		return fieldErr(field, ErrTooShort)
	}
	if max > 0 && n > max {
		return fieldErr(field, fmt.Errorf("%w (max %d characters)", ErrTooLong, max))
	}
	return nil
}

func checkOptionalLength(field string, s *string, min, max int) error {
	if s == nil {
		return nil
	}
	return checkLength(field, *s, min, max)
}

func checkMin(field string, v *int, min int) error {
	if v != nil && *v < min {
		return fieldErr(field, fmt.Errorf("%w (must be >= %d)", ErrOutOfRange, min))
	}
	return nil
}

type choice interface {
	~string
	Valid() bool
}

// checkChoice accepts the empty value; required enums check for it first.
func checkChoice[T choice](field string, v T) error {
	if v != "" && !v.Valid() {
		return fieldErr(field, fmt.Errorf("%w %q", ErrInvalidChoice, string(v)))
	}
	return nil
}

func checkOptionalChoice[T choice](field string, v *T) error {
	if v == nil {
		return nil
	}
	if *v == "" {
		return fieldErr(field, ErrRequired)
	}
	return checkChoice(field, *v)
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
