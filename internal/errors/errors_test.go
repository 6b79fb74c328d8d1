package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindIO, "I/O error"},
		{KindParse, "Parse error"},
		{KindConfig, "Configuration error"},
		{KindInvalidState, "Invalid state"},
		{KindUnsupportedOperation, "Unsupported operation"},
		{KindNotFound, "Not found"},
		{KindChannelMismatch, "Channel mismatch"},
		{KindCancelled, "Operation cancelled"},
		{ErrorKind(99), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCoreErrorError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &CoreError{
		Kind:       KindIO,
		Message:    "test message",
		Underlying: underlying,
	}

	got := err.Error()
	expected := "I/O error: test message: underlying error"
	if got != expected {
		t.Errorf("CoreError.Error() = %v, want %v", got, expected)
	}

	err2 := NewInvalidStateError("curve has 1 keyframe")
	expected2 := "Invalid state: curve has 1 keyframe"
	if got2 := err2.Error(); got2 != expected2 {
		t.Errorf("CoreError.Error() = %v, want %v", got2, expected2)
	}
}

func TestCoreErrorUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewParseError("bad document", underlying)

	if err.Unwrap() != underlying {
		t.Error("Unwrap() should return underlying error")
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should see the underlying error")
	}
}

func TestCoreErrorIs(t *testing.T) {
	err1 := &CoreError{Kind: KindNotFound, Message: "test1"}
	err2 := &CoreError{Kind: KindNotFound, Message: "test2"}
	err3 := &CoreError{Kind: KindConfig, Message: "test3"}

	if !err1.Is(err2) {
		t.Error("Same kind errors should match")
	}
	if err1.Is(err3) {
		t.Error("Different kind errors should not match")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		kind ErrorKind
	}{
		{"NewIOError", NewIOError("disk full", errors.New("no space")), KindIO},
		{"NewParseError", NewParseError("bad yaml", nil), KindParse},
		{"NewConfigError", NewConfigError("bad fps", nil), KindConfig},
		{"NewInvalidStateError", NewInvalidStateError("empty curve"), KindInvalidState},
		{"NewUnsupportedOperationError", NewUnsupportedOperationError("curve type 42"), KindUnsupportedOperation},
		{"NewNotFoundError", NewNotFoundError("target hand"), KindNotFound},
		{"NewChannelMismatchError", NewChannelMismatchError(3, 4), KindChannelMismatch},
		{"NewCancelledError", NewCancelledError(nil), KindCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Expected %v, got %v", tt.kind, tt.err.Kind)
			}
		})
	}
}

func TestChannelMismatchMessage(t *testing.T) {
	err := NewChannelMismatchError(3, 4)
	want := "Channel mismatch: expected 3 channel values, got 4"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewUnsupportedOperationError("curve type"))

	if !IsKind(err, KindUnsupportedOperation) {
		t.Error("IsKind should return true for matching kind")
	}
	if !IsUnsupportedOperation(err) {
		t.Error("IsUnsupportedOperation should return true through wrapping")
	}
	if IsKind(err, KindIO) {
		t.Error("IsKind should return false for non-matching kind")
	}
	if IsKind(errors.New("plain error"), KindConfig) {
		t.Error("IsKind should return false for non-CoreError")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(NewCancelledError(nil)) {
		t.Error("IsCancelled should return true for cancelled error")
	}
	if IsCancelled(NewInvalidStateError("test")) {
		t.Error("IsCancelled should return false for non-cancelled error")
	}
	if !IsInvalidState(NewInvalidStateError("test")) {
		t.Error("IsInvalidState should return true for invalid state error")
	}
}
