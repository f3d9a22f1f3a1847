package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

var (
	// ErrMemberNotFound is the cause of a DispatchError when the COM object does not
	// expose the requested property or method
	ErrMemberNotFound = stderrors.New("member not found")

	// ErrNotSupported is returned by optional getters when the wrapped object variant
	// does not implement the member
	ErrNotSupported = stderrors.New("not supported by this object")

	// ErrTimeout matches every EventTimeoutError
	ErrTimeout = stderrors.New("event did not finish in time")

	// ErrUnknownValue is returned when COM reports an enumerated value with no named constant
	ErrUnknownValue = stderrors.New("unknown enumerated value")

	// ErrReleased is returned when an object or session is used after it was released
	ErrReleased = stderrors.New("COM object already released")

	// ErrUnsupportedPlatform is returned when COM automation is not available on this OS
	ErrUnsupportedPlatform = stderrors.New("COM automation requires Windows")

	// ErrEventsUnavailable is returned when an object exposes no event source
	ErrEventsUnavailable = stderrors.New("object has no event source")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// VectorCOMError is the base error type for all vectorcom errors
type VectorCOMError struct {
	message string
	cause   error
}

// Error implements the error interface
func (e *VectorCOMError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	if e.message != "" {
		return e.message
	}
	return "VectorCOM Error"
}

// Unwrap returns the underlying error
func (e *VectorCOMError) Unwrap() error {
	return e.cause
}

// New creates a new VectorCOMError
func New(message string) *VectorCOMError {
	return &VectorCOMError{message: message}
}

// Wrap wraps an error with a VectorCOMError
func Wrap(err error, message string) *VectorCOMError {
	return &VectorCOMError{message: message, cause: err}
}

// DispatchError represents a failed property access or method call on a COM object
type DispatchError struct {
	Member string
	Op     string
	Cause  error
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	return fmt.Sprintf("COM %s %s failed: %v", e.Op, e.Member, e.Cause)
}

// Unwrap returns the underlying error
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// NewDispatchError creates a new DispatchError
func NewDispatchError(member, operation string, cause error) *DispatchError {
	return &DispatchError{Member: member, Op: operation, Cause: cause}
}

// IsMemberNotFound reports whether err says that member is missing on the object.
// A missing member deeper in the call chain does not count.
func IsMemberNotFound(err error, member string) bool {
	var de *DispatchError
	if !stderrors.As(err, &de) {
		return false
	}
	return de.Member == member && stderrors.Is(de.Cause, ErrMemberNotFound)
}

// EventTimeoutError indicates a COM event was not observed before the deadline
type EventTimeoutError struct {
	Event   string
	Timeout time.Duration
	Cause   error
}

// Error implements the error interface
func (e *EventTimeoutError) Error() string {
	return fmt.Sprintf("Event %s did not finish within %v", e.Event, e.Timeout)
}

// Unwrap returns the underlying error
func (e *EventTimeoutError) Unwrap() error {
	return e.Cause
}

// Is makes every EventTimeoutError match ErrTimeout
func (e *EventTimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewEventTimeoutError creates a new EventTimeoutError
func NewEventTimeoutError(event string, timeout time.Duration, cause error) *EventTimeoutError {
	return &EventTimeoutError{Event: event, Timeout: timeout, Cause: cause}
}

// UnknownValueError reports an enumerated integer with no named constant
type UnknownValueError struct {
	Kind  string
	Value int
}

// Error implements the error interface
func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("Unknown %s value %d", e.Kind, e.Value)
}

// Unwrap returns ErrUnknownValue
func (e *UnknownValueError) Unwrap() error {
	return ErrUnknownValue
}

// NewUnknownValueError creates a new UnknownValueError
func NewUnknownValueError(kind string, value int) *UnknownValueError {
	return &UnknownValueError{Kind: kind, Value: value}
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("Configuration error in field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("Configuration error: %s", e.Message)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError
func NewConfigError(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}
