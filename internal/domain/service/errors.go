package service

import "errors"

var (
	// ErrNotConnected is returned by every capability while the gate is not ready.
	ErrNotConnected = errors.New("slack not connected")
	// ErrTimeout is how a Waiter reports that its window elapsed.
	ErrTimeout = errors.New("timed out waiting for a response")
	// ErrReminderNotFound covers never scheduled, already fired and already cancelled ids.
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrInvalidArgument is wrapped by every ValidationError.
	ErrInvalidArgument = errors.New("invalid argument")
	errWaiterCancelled = errors.New("waiter cancelled")
)

// ValidationError describes a rejected capability argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
