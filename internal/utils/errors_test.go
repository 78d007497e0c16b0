package utils

import (
	"errors"
	"strings"
	"testing"
)

// TestErrorWithSuggestionError verifies Error() output contains message and suggestion
func TestErrorWithSuggestionError(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("something went wrong"),
		Suggestion: "Try doing X",
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "something went wrong") {
		t.Errorf("Error() should contain error message, got: %s", errStr)
	}
	if !strings.Contains(errStr, "Suggestion: Try doing X") {
		t.Errorf("Error() should contain suggestion, got: %s", errStr)
	}
}

// TestWrapWithSuggestionUnwrap verifies wrapped errors stay matchable
func TestWrapWithSuggestionUnwrap(t *testing.T) {
	base := errors.New("base")
	err := WrapWithSuggestion(base, "do something")

	if !errors.Is(err, base) {
		t.Error("errors.Is should find the wrapped error")
	}

	var ews *ErrorWithSuggestion
	if !errors.As(err, &ews) {
		t.Fatal("errors.As should find *ErrorWithSuggestion")
	}
	if ews.GetSuggestion() != "do something" {
		t.Errorf("GetSuggestion() = %q, want %q", ews.GetSuggestion(), "do something")
	}
}

func TestErrTokenMissing(t *testing.T) {
	err := ErrTokenMissing()
	if !errors.Is(err, ErrMissingToken) {
		t.Error("ErrTokenMissing should wrap ErrMissingToken")
	}
	if !strings.Contains(err.Error(), "PPV_NOTION_TOKEN") {
		t.Errorf("suggestion should mention PPV_NOTION_TOKEN, got: %s", err.Error())
	}
}

func TestErrProjectNotFound(t *testing.T) {
	err := ErrProjectNotFound("Garden")
	if !strings.Contains(err.Error(), "project not found: Garden") {
		t.Errorf("unexpected error text: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "ppv project list") {
		t.Errorf("suggestion should mention 'ppv project list', got: %s", err.Error())
	}
}

func TestErrInvalidPriority(t *testing.T) {
	err := ErrInvalidPriority("urgent", []string{"A", "B"})
	if !strings.Contains(err.Error(), "invalid priority: urgent") {
		t.Errorf("unexpected error text: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "Valid options: A, B") {
		t.Errorf("suggestion should list valid options, got: %s", err.Error())
	}
}

func TestErrAuthenticationFailedWraps(t *testing.T) {
	base := errors.New("401 unauthorized")
	err := ErrAuthenticationFailed(base)
	if !errors.Is(err, base) {
		t.Error("ErrAuthenticationFailed should wrap the cause")
	}
}
