package retur

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("return not found")
	ErrInvalidTransition    = errors.New("action not allowed from current status")
	ErrConfirmationRequired = errors.New("destroy must be confirmed")
	ErrConflict             = errors.New("return was modified by another session")
	ErrDuplicate            = errors.New("document number already exists")
	ErrUnavailable          = errors.New("record store unavailable")
	ErrValidation           = errors.New("validation failed")
)

type TransitionError struct {
	DocumentNumber string
	From           Status
	Action         Action
}

func (e *TransitionError) Error() string {
	if e.DocumentNumber != "" {
		return fmt.Sprintf("cannot %s return %s in status %q", e.Action, e.DocumentNumber, e.From.Label())
	}
	return fmt.Sprintf("cannot %s a return in status %q", e.Action, e.From.Label())
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidationError lists the required form fields that were left empty or
// carried an unusable value.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "required fields missing or invalid: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
