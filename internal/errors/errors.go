// Package errors provides structured error types for timeline operations.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindParse represents document or value parsing errors.
	KindParse
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindInvalidState represents operations on a curve or target that is not ready for them.
	KindInvalidState
	// KindUnsupportedOperation represents unknown curve types and other tags that
	// can only come from corrupted data.
	KindUnsupportedOperation
	// KindNotFound represents a lookup that had no match.
	KindNotFound
	// KindChannelMismatch represents a write whose channel count does not match the target.
	KindChannelMismatch
	// KindCancelled represents user-cancelled operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindParse:
		return "Parse error"
	case KindConfig:
		return "Configuration error"
	case KindInvalidState:
		return "Invalid state"
	case KindUnsupportedOperation:
		return "Unsupported operation"
	case KindNotFound:
		return "Not found"
	case KindChannelMismatch:
		return "Channel mismatch"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CoreError is the main error type for timeline operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewParseError creates a new parsing error.
func NewParseError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindParse, Message: message, Underlying: underlying}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message, Underlying: underlying}
}

// NewInvalidStateError creates a new invalid state error.
func NewInvalidStateError(message string) *CoreError {
	return &CoreError{Kind: KindInvalidState, Message: message}
}

// NewUnsupportedOperationError creates a new unsupported operation error.
func NewUnsupportedOperationError(message string) *CoreError {
	return &CoreError{Kind: KindUnsupportedOperation, Message: message}
}

// NewNotFoundError creates an error for a lookup miss.
func NewNotFoundError(what string) *CoreError {
	return &CoreError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", what)}
}

// NewChannelMismatchError creates an error for a write with the wrong number of channel values.
func NewChannelMismatchError(want, got int) *CoreError {
	return &CoreError{Kind: KindChannelMismatch, Message: fmt.Sprintf("expected %d channel values, got %d", want, got)}
}

// NewChannelsOutOfSyncError creates an error for channels that no longer share
// one time axis.
func NewChannelsOutOfSyncError(details string) *CoreError {
	return &CoreError{Kind: KindChannelMismatch, Message: "channels out of sync: " + details}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError(underlying error) *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled", Underlying: underlying}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsInvalidState checks if the error is an invalid state error.
func IsInvalidState(err error) bool {
	return IsKind(err, KindInvalidState)
}

// IsUnsupportedOperation checks if the error is an unsupported operation error.
func IsUnsupportedOperation(err error) bool {
	return IsKind(err, KindUnsupportedOperation)
}
