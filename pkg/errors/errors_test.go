package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeSchemaViolation, "Node %s is missing text.", "a1")

	if err.Code != ErrCodeSchemaViolation {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeSchemaViolation)
	}

	if err.Message != "Node a1 is missing text." {
		t.Errorf("Message = %v, want %v", err.Message, "Node a1 is missing text.")
	}

	expected := "SCHEMA_VIOLATION: Node a1 is missing text."
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := Wrap(ErrCodeMalformedInput, cause, "File is not valid JSON.")

	if err.Code != ErrCodeMalformedInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMalformedInput)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeDanglingReference, "test"),
			code:     ErrCodeDanglingReference,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeDanglingReference, "test"),
			code:     ErrCodeSchemaViolation,
			expected: false,
		},
		{
			name:     "outer code wins",
			err:      Wrap(ErrCodeNetwork, New(ErrCodeMalformedInput, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeSizeLimitExceeded, "test"), ErrCodeSizeLimitExceeded},
		{"wrapped with fmt", errorsJoin(New(ErrCodeInvariantViolation, "x")), ErrCodeInvariantViolation},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func errorsJoin(err error) error { return errors.Join(errors.New("context"), err) }

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeDanglingReference, "Story has no valid starting node."), "Story has no valid starting node."},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsTaxonomy(t *testing.T) {
	for _, c := range []Code{ErrCodeMalformedInput, ErrCodeSchemaViolation, ErrCodeDanglingReference, ErrCodeSizeLimitExceeded, ErrCodeInvariantViolation} {
		if !IsTaxonomy(c) {
			t.Errorf("IsTaxonomy(%v) = false, want true", c)
		}
	}
	for _, c := range []Code{ErrCodeNetwork, ErrCodeNotFound, ErrCodeInternal, ""} {
		if IsTaxonomy(c) {
			t.Errorf("IsTaxonomy(%q) = true, want false", c)
		}
	}
}
