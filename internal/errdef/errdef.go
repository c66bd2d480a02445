// Package errdef defines the error kinds shared by the scheduling core.
//
// Every kind wraps a formatted error so the message stays specific
// ("event \"trip\" already exists") while callers branch on the kind with
// the Is* predicates.
package errdef

import (
	"errors"
	"fmt"
)

// NewDuplicateName creates an error for an event name that is already taken.
func NewDuplicateName(format string, a ...any) error {
	return duplicateName{fmt.Errorf(format, a...)}
}

type duplicateName struct{ error }

func (e duplicateName) Unwrap() error { return e.error }

func IsDuplicateName(err error) bool {
	var e duplicateName
	return errors.As(err, &e)
}

// NewNotFound creates an error representing an event that could not be found.
func NewNotFound(format string, a ...any) error {
	return notFound{fmt.Errorf(format, a...)}
}

type notFound struct{ error }

func (e notFound) Unwrap() error { return e.error }

// IsNotFound returns true if err is an error representing a missing event and false otherwise.
func IsNotFound(err error) bool {
	var e notFound
	return errors.As(err, &e)
}

// NewWrongKind creates an error for an operation aimed at the other event kind.
func NewWrongKind(format string, a ...any) error {
	return wrongKind{fmt.Errorf(format, a...)}
}

type wrongKind struct{ error }

func (e wrongKind) Unwrap() error { return e.error }

func IsWrongKind(err error) bool {
	var e wrongKind
	return errors.As(err, &e)
}

// NewInvalidFormat creates an error for user input that does not parse.
// The message should name the expected format.
func NewInvalidFormat(format string, a ...any) error {
	return invalidFormat{fmt.Errorf(format, a...)}
}

type invalidFormat struct{ error }

func (e invalidFormat) Unwrap() error { return e.error }

func IsInvalidFormat(err error) bool {
	var e invalidFormat
	return errors.As(err, &e)
}

func NewForbidden(format string, a ...any) error {
	return forbidden{fmt.Errorf(format, a...)}
}

type forbidden struct{ error }

func (e forbidden) Unwrap() error { return e.error }

func IsForbidden(err error) bool {
	var e forbidden
	return errors.As(err, &e)
}

func NewNoParticipants(format string, a ...any) error {
	return noParticipants{fmt.Errorf(format, a...)}
}

type noParticipants struct{ error }

func (e noParticipants) Unwrap() error { return e.error }

func IsNoParticipants(err error) bool {
	var e noParticipants
	return errors.As(err, &e)
}

// NewNoTargetMonth creates an error for an availability poll without a month.
func NewNoTargetMonth(format string, a ...any) error {
	return noTargetMonth{fmt.Errorf(format, a...)}
}

type noTargetMonth struct{ error }

func (e noTargetMonth) Unwrap() error { return e.error }

func IsNoTargetMonth(err error) bool {
	var e noTargetMonth
	return errors.As(err, &e)
}

// NewStorage creates an error representing a failed durable read or write.
// Use %w in format to keep the underlying cause.
func NewStorage(format string, a ...any) error {
	return storage{fmt.Errorf(format, a...)}
}

type storage struct{ error }

func (e storage) Unwrap() error { return e.error }

// IsStorage returns true if err is a storage failure and false otherwise.
func IsStorage(err error) bool {
	var e storage
	return errors.As(err, &e)
}
