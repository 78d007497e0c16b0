// Package credentials stores and resolves the Notion integration token using the
// OS keyring, with fallback to the environment and the config file.
package credentials

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Keyring coordinates
const (
	ServiceName = "ppv-notion"
	AccountName = "default"

	// EnvToken is the environment variable holding the integration token
	EnvToken = "PPV_NOTION_TOKEN"
)

// Source indicates where the token was retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceConfig      Source = "config"
	SourceNone        Source = "none"
)

// TokenInfo describes the resolved token
type TokenInfo struct {
	Source Source
	Token  string
	Found  bool
}

// JSON serializes the token info (token excluded)
func (c *TokenInfo) JSON() ([]byte, error) {
	output := struct {
		Source string `json:"source"`
		Found  bool   `json:"found"`
	}{
		Source: string(c.Source),
		Found:  c.Found,
	}
	return json.Marshal(output)
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles credential operations
type Manager struct {
	keyring     Keyring
	getenv      func(string) string
	configToken string
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// WithGetenv overrides environment lookup
func WithGetenv(getenv func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// WithConfigToken sets the token from the config file, used as the last resort
func WithConfigToken(token string) ManagerOption {
	return func(m *Manager) {
		m.configToken = token
	}
}

// NewManager creates a new credential manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores the token in the keyring
func (m *Manager) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token must not be empty")
	}
	return m.keyring.Set(ServiceName, AccountName, token)
}

// Get resolves the token: keyring first, then PPV_NOTION_TOKEN, then the config file
func (m *Manager) Get(ctx context.Context) (*TokenInfo, error) {
	token, err := m.keyring.Get(ServiceName, AccountName)
	if err == nil && token != "" {
		return &TokenInfo{Source: SourceKeyring, Token: token, Found: true}, nil
	}

	if token := strings.TrimSpace(m.getenv(EnvToken)); token != "" {
		return &TokenInfo{Source: SourceEnvironment, Token: token, Found: true}, nil
	}

	if m.configToken != "" {
		return &TokenInfo{Source: SourceConfig, Token: m.configToken, Found: true}, nil
	}

	return &TokenInfo{Source: SourceNone}, nil
}

// Delete removes the token from the keyring. Deleting a missing token is not an error.
func (m *Manager) Delete(ctx context.Context) error {
	err := m.keyring.Delete(ServiceName, AccountName)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// TerminalReader reads a secret without echoing it
type TerminalReader interface {
	ReadPassword() (string, error)
}

// PromptToken prompts for the token, reading a line from reader
func PromptToken(reader io.Reader, writer io.Writer) (string, error) {
	return PromptTokenWithTTY(reader, writer, nil)
}

// PromptTokenWithTTY prompts for the token. When termReader is set the input is
// read without echo; otherwise a line is read from reader (piped input).
func PromptTokenWithTTY(reader io.Reader, writer io.Writer, termReader TerminalReader) (string, error) {
	_, _ = fmt.Fprint(writer, "Enter Notion integration token: ")

	if termReader != nil {
		token, err := termReader.ReadPassword()
		_, _ = fmt.Fprintln(writer)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(token), nil
	}

	if reader == nil {
		return "", fmt.Errorf("no input received")
	}
	scanner := bufio.NewScanner(reader)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no input received")
}
