package credentials

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestHandler(k Keyring, stdin string, env func(string) string) (*CLIHandler, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	m := NewManager(WithKeyring(k), WithGetenv(env))
	return NewCLIHandler(m, strings.NewReader(stdin), stdout, &bytes.Buffer{}), stdout
}

func TestAuthSetCLI(t *testing.T) {
	k := NewMockKeyring()
	h, stdout := newTestHandler(k, "secret_cli\n", noEnv)

	if err := h.Set(context.Background()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Token stored in system keyring") {
		t.Errorf("output = %q", stdout.String())
	}
	if got, _ := k.Get(ServiceName, AccountName); got != "secret_cli" {
		t.Errorf("stored = %q", got)
	}
}

func TestAuthStatusCLI(t *testing.T) {
	ctx := context.Background()

	h, stdout := newTestHandler(NewMockKeyring(), "", envWith("secret_env"))
	if err := h.Status(ctx, false); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "Source: environment") || strings.Contains(out, "secret_env") {
		t.Errorf("output = %q", out)
	}

	h, stdout = newTestHandler(NewMockKeyring(), "", noEnv)
	_ = h.Status(ctx, false)
	if !strings.Contains(stdout.String(), "ppv auth set") {
		t.Errorf("missing-token output should suggest 'ppv auth set', got %q", stdout.String())
	}

	h, stdout = newTestHandler(NewMockKeyring(), "", noEnv)
	_ = h.Status(ctx, true)
	if strings.TrimSpace(stdout.String()) != `{"source":"none","found":false}` {
		t.Errorf("json output = %q", stdout.String())
	}
}

func TestAuthDeleteCLI(t *testing.T) {
	k := NewMockKeyring()
	_ = k.Set(ServiceName, AccountName, "secret")
	h, stdout := newTestHandler(k, "", noEnv)

	if err := h.Delete(context.Background()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "removed") {
		t.Errorf("output = %q", stdout.String())
	}
	if _, err := k.Get(ServiceName, AccountName); !errors.Is(err, ErrNotFound) {
		t.Error("token should be deleted")
	}
}

// unavailableKeyring simulates a headless environment
type unavailableKeyring struct{}

func (unavailableKeyring) Set(string, string, string) error { return ErrKeyringNotAvailable }
func (unavailableKeyring) Get(string, string) (string, error) { return "", ErrKeyringNotAvailable }
func (unavailableKeyring) Delete(string, string) error { return ErrKeyringNotAvailable }

func TestAuthSetKeyringNotAvailableCLI(t *testing.T) {
	h, _ := newTestHandler(unavailableKeyring{}, "secret\n", noEnv)

	err := h.Set(context.Background())
	if err == nil {
		t.Fatal("expected error when keyring is unavailable")
	}
	if !strings.Contains(err.Error(), EnvToken) {
		t.Errorf("error should mention %s, got %v", EnvToken, err)
	}
}

// TestAuthStatusFallsBackWhenKeyringUnavailable verifies env still works without a keyring
func TestAuthStatusFallsBackWhenKeyringUnavailable(t *testing.T) {
	h, stdout := newTestHandler(unavailableKeyring{}, "", envWith("secret_env"))
	if err := h.Status(context.Background(), false); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Source: environment") {
		t.Errorf("output = %q", stdout.String())
	}
}
