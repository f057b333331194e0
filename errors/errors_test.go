package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Internal("Test.Op", cause, "fetch failed")

	expected := "fetch failed: connection reset"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
	if err.Unwrap() != cause {
		t.Errorf("expected cause to be unwrapped")
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := InvalidInput("Test.Op", nil, "test message")
	if err.Error() != "test message" {
		t.Errorf("expected error string 'test message', got '%s'", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "not found error",
			err:      NotFound("op", nil, "not found"),
			expected: KindNotFound,
		},
		{
			name:     "wrapped timeout",
			err:      fmt.Errorf("outer: %w", Timeout("op", nil, "slow")),
			expected: KindTimeout,
		},
		{
			name:     "bare deadline",
			err:      context.DeadlineExceeded,
			expected: KindTimeout,
		},
		{
			name:     "non-custom error",
			err:      fmt.Errorf("standard error"),
			expected: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if !IsNotFound(NotFound("op", nil, "x")) {
		t.Error("expected IsNotFound to be true")
	}
	if IsNotFound(nil) {
		t.Error("expected IsNotFound(nil) to be false")
	}
	if !IsInvalidInput(InvalidInput("op", nil, "x")) {
		t.Error("expected IsInvalidInput to be true")
	}
	if IsTimeout(Internal("op", nil, "x")) {
		t.Error("expected IsTimeout to be false for internal errors")
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext("op", context.DeadlineExceeded, "slow"); got.Kind != KindTimeout {
		t.Errorf("expected timeout kind, got %v", got.Kind)
	}
	if got := FromContext("op", fmt.Errorf("boom"), "failed"); got.Kind != KindInternal {
		t.Errorf("expected internal kind, got %v", got.Kind)
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("op", nil, "Video not found"))
	if got := Message(err, "fallback"); got != "Video not found" {
		t.Errorf("expected 'Video not found', got '%s'", got)
	}
	if got := Message(fmt.Errorf("plain"), "fallback"); got != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", got)
	}
}
