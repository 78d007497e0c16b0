package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrMissingToken is the sentinel behind ErrTokenMissing.
var ErrMissingToken = errors.New("notion integration token not configured")

// ErrTokenMissing returns an error when no integration token can be found.
func ErrTokenMissing() error {
	return &ErrorWithSuggestion{
		Err:        ErrMissingToken,
		Suggestion: "Run 'ppv auth set' or export PPV_NOTION_TOKEN",
	}
}

// ErrProjectNotFound returns an error for an unknown project reference.
func ErrProjectNotFound(ref string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("project not found: %s", ref),
		Suggestion: "Use 'ppv project list' to see all projects",
	}
}

// ErrInvalidPageID returns an error for a malformed page id.
func ErrInvalidPageID(id string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid page id: %s", id),
		Suggestion: "Use the id shown by 'ppv today --json' (dashes are optional)",
	}
}

// ErrInvalidPriority returns an error for a priority outside the rank table.
func ErrInvalidPriority(priority string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid priority: %s", priority),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrInvalidDate returns an error for an invalid date string.
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date: %s", dateStr),
		Suggestion: "Use date format YYYY-MM-DD (e.g., 2026-01-15), today, tomorrow or +Nd",
	}
}

// ErrAuthenticationFailed returns an error when the token is rejected.
func ErrAuthenticationFailed(err error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("authentication failed: %w", err),
		Suggestion: "Verify your integration token is correct and has access to the workspace",
	}
}
