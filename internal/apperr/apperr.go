// Package apperr holds the structured error taxonomy shared by the booking
// engine. Every business-rule failure carries a machine-readable code, a
// human-readable message and a context map.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidTransition   Code = "invalid_transition"
	CodeAlreadyInState      Code = "already_in_state"
	CodeReservationConflict Code = "reservation_conflict"
	CodeDeposit             Code = "deposit_error"
	CodeValidation          Code = "validation_failed"
	CodeNotFound            Code = "not_found"
	CodeInternal            Code = "internal"
)

// Coded is implemented by every structured error of the engine.
type Coded interface {
	error
	Code() Code
	Context() map[string]any
}

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// CodeOf returns the code of the first Coded error in err's chain, or
// CodeInternal for infrastructure failures.
func CodeOf(err error) Code {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// ContextOf returns the structured context of err, nil when err is not Coded.
func ContextOf(err error) map[string]any {
	var c Coded
	if errors.As(err, &c) {
		return c.Context()
	}
	return nil
}

// IsBusiness reports whether err is an expected, caller-recoverable failure.
func IsBusiness(err error) bool {
	var c Coded
	return errors.As(err, &c)
}

type ValidationError struct {
	Field   string
	Reason  string
	Details map[string]any
}

func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) With(key string, v any) *ValidationError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = v
	return e
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Code() Code { return CodeValidation }

func (e *ValidationError) Context() map[string]any {
	ctx := map[string]any{"field": e.Field}
	for k, v := range e.Details {
		ctx[k] = v
	}
	return ctx
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	Entity string
	ID     string
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Code() Code { return CodeNotFound }

func (e *NotFoundError) Context() map[string]any {
	return map[string]any{"entity": e.Entity, "id": e.ID}
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
