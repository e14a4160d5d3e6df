package processor

import (
	"errors"
	"fmt"

	"github.com/roach88/eventscope/internal/event"
)

// ErrorCode categorizes validation failures.
type ErrorCode string

const (
	// ErrCodeInvalidEventType indicates a nil or unrecognized event kind.
	ErrCodeInvalidEventType ErrorCode = "INVALID_EVENT_TYPE"

	// ErrCodeTimestampOrder indicates the event precedes the last committed timestamp.
	ErrCodeTimestampOrder ErrorCode = "TIMESTAMP_ORDER_VIOLATION"

	// ErrCodeDuplicateID indicates a create/start/send for an id that is already live.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeUnknownID indicates a reference to an id that is not live.
	ErrCodeUnknownID ErrorCode = "UNKNOWN_ID"

	// ErrCodeInvalidProperty indicates a property bag that violates the schema.
	ErrCodeInvalidProperty ErrorCode = "INVALID_PROPERTY"
)

// ValidationError reports why an event was rejected. No state was changed.
type ValidationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Kind is the kind of the rejected event (zero for nil events).
	Kind event.Kind

	// Entity names what ID refers to: "node", "edge", "activity", or "message".
	Entity string

	// ID is the offending identifier, if any.
	ID string

	// Key is the offending property key (INVALID_PROPERTY only).
	Key string

	// Reason is a human-readable description.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("%s: %s %s: property %q: %s", e.Code, e.Kind, e.ID, e.Key, e.Reason)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s: %s %q %s", e.Code, e.Kind, e.Entity, e.ID, e.Reason)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Kind, e.Reason)
	}
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ValidationError code of err, or "" if err is not one.
func CodeOf(err error) ErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// IsDuplicateID returns true if err is a DUPLICATE_ID validation error.
func IsDuplicateID(err error) bool { return CodeOf(err) == ErrCodeDuplicateID }

// IsUnknownID returns true if err is an UNKNOWN_ID validation error.
func IsUnknownID(err error) bool { return CodeOf(err) == ErrCodeUnknownID }

// IsTimestampOrder returns true if err is a TIMESTAMP_ORDER_VIOLATION.
func IsTimestampOrder(err error) bool { return CodeOf(err) == ErrCodeTimestampOrder }

// IsInvalidProperty returns true if err is an INVALID_PROPERTY validation error.
func IsInvalidProperty(err error) bool { return CodeOf(err) == ErrCodeInvalidProperty }

// IsInvalidEventType returns true if err is an INVALID_EVENT_TYPE validation error.
func IsInvalidEventType(err error) bool { return CodeOf(err) == ErrCodeInvalidEventType }

func newInvalidEventType(ev event.Event) *ValidationError {
	if ev == nil {
		return &ValidationError{Code: ErrCodeInvalidEventType, Reason: "nil event"}
	}
	if event.IsNil(ev) {
		return &ValidationError{Code: ErrCodeInvalidEventType, Kind: ev.Kind(), Reason: "nil event"}
	}
	return &ValidationError{
		Code:   ErrCodeInvalidEventType,
		Kind:   ev.Kind(),
		Reason: fmt.Sprintf("unsupported event type %T", ev),
	}
}

func newTimestampOrderError(ev event.Event, last event.Timestamp, cause error) *ValidationError {
	return &ValidationError{
		Code:   ErrCodeTimestampOrder,
		Kind:   ev.Kind(),
		ID:     event.Subject(ev),
		Reason: fmt.Sprintf("timestamp %d precedes last committed %d", ev.Time(), last),
		Err:    cause,
	}
}

func newDuplicateError(kind event.Kind, entity, id string) *ValidationError {
	return &ValidationError{
		Code:   ErrCodeDuplicateID,
		Kind:   kind,
		Entity: entity,
		ID:     id,
		Reason: "is already live",
	}
}

func newUnknownError(kind event.Kind, entity, id string) *ValidationError {
	return &ValidationError{
		Code:   ErrCodeUnknownID,
		Kind:   kind,
		Entity: entity,
		ID:     id,
		Reason: "is not live",
	}
}

func newPropertyError(kind event.Kind, id string, err error) *ValidationError {
	ve := &ValidationError{
		Code:   ErrCodeInvalidProperty,
		Kind:   kind,
		ID:     id,
		Reason: err.Error(),
		Err:    err,
	}
	var pe *event.PropertyError
	if errors.As(err, &pe) {
		ve.Key = pe.Key
		ve.Reason = pe.Reason
	}
	return ve
}
