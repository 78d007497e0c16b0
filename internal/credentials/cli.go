package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// CLIHandler handles CLI commands for credential management
type CLIHandler struct {
	manager *Manager
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewCLIHandler creates a new CLI handler for credential commands
func NewCLIHandler(manager *Manager, stdin io.Reader, stdout, stderr io.Writer) *CLIHandler {
	return &CLIHandler{
		manager: manager,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Set prompts for the token and stores it in the keyring
func (h *CLIHandler) Set(ctx context.Context) error {
	token, err := PromptTokenWithTTY(h.stdin, h.stdout, TerminalReaderFor(h.stdin))
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	if err := h.manager.Set(ctx, token); err != nil {
		if errors.Is(err, ErrKeyringNotAvailable) {
			return keyringNotAvailableError()
		}
		return fmt.Errorf("failed to store token: %w", err)
	}

	_, _ = fmt.Fprintln(h.stdout, "Token stored in system keyring")
	return nil
}

// keyringNotAvailableError explains the environment variable alternative
func keyringNotAvailableError() error {
	return fmt.Errorf(`system keyring not available

Alternative: set the token in the environment instead:
  export %s="secret_..."

A .env file in the working directory is also read at startup.
Run 'ppv auth status' to verify the token is detected.`, EnvToken)
}

// Status displays where the token comes from
func (h *CLIHandler) Status(ctx context.Context, jsonOutput bool) error {
	info, err := h.manager.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve token: %w", err)
	}

	if jsonOutput {
		data, err := info.JSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(h.stdout, string(data))
		return nil
	}

	if !info.Found {
		_, _ = fmt.Fprintln(h.stdout, "No Notion token found")
		_, _ = fmt.Fprintln(h.stdout, "Searched:")
		_, _ = fmt.Fprintln(h.stdout, "  - System keyring: Not found")
		_, _ = fmt.Fprintf(h.stdout, "  - Environment (%s): Not set\n", EnvToken)
		_, _ = fmt.Fprintln(h.stdout, "  - Config file (notion.token): Not set")
		_, _ = fmt.Fprintln(h.stdout, "\nSuggestion: Run 'ppv auth set'")
		return nil
	}

	_, _ = fmt.Fprintf(h.stdout, "Source: %s\n", info.Source)
	_, _ = fmt.Fprintln(h.stdout, "Token: ******** (hidden)")
	_, _ = fmt.Fprintln(h.stdout, "Status: Available")
	return nil
}

// Delete removes the token from the keyring
func (h *CLIHandler) Delete(ctx context.Context) error {
	if err := h.manager.Delete(ctx); err != nil {
		if errors.Is(err, ErrKeyringNotAvailable) {
			return keyringNotAvailableError()
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}

	_, _ = fmt.Fprintln(h.stdout, "Token removed from system keyring")
	return nil
}
