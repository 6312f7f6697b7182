package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	CodeValidation             ErrorCode = "VALIDATION_ERROR"
	CodeForbidden              ErrorCode = "FORBIDDEN"
	CodeNotFound               ErrorCode = "NOT_FOUND"
	CodeConflict               ErrorCode = "CONFLICT"
	CodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// Error is a rejection with a machine-readable code. Two Errors match under
// errors.Is when their codes are equal.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidStateTransition = &Error{Code: CodeInvalidStateTransition, Message: "invalid state transition"}
	ErrValidation             = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrForbidden              = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConcurrentModification = &Error{Code: CodeConflict, Message: "concurrent modification"}
)

func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateTransitionError is returned when a guard rejects a transition.
// It is never transient: callers must not retry it.
type InvalidStateTransitionError struct {
	Entity   string
	Action   string
	Expected []string
	Actual   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %s: expected %s actual %s", e.Entity, e.Action, strings.Join(e.Expected, "|"), e.Actual)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeInvalidStateTransition
}

// CodeOf returns the code carried by err, or CodeInternal if it has none
func CodeOf(err error) ErrorCode {
	var ist *InvalidStateTransitionError
	if errors.As(err, &ist) {
		return CodeInvalidStateTransition
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
