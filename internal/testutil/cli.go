// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ppv/cmd/ppv/cmd"
	"ppv/internal/credentials"
	"ppv/internal/notification"
	"ppv/internal/testutil/notionmock"
)

// defaultTestConfig points the CLI at the mock server's databases
const defaultTestConfig = `# test config
notion:
  databases:
    projects: ` + notionmock.ProjectsDB + `
    notes: ` + notionmock.NotesDB + `
    action_items: ` + notionmock.ActionItemsDB + `
  spark_file_tag: ` + notionmock.SparkFileTagID + `
`

// CLITest provides a test helper for running CLI commands in isolation
// against an in-memory Notion server.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string

	// Notion is the mock API the CLI talks to
	Notion *notionmock.Server
	// Keyring is the keyring seen by the auth commands
	Keyring *credentials.MockKeyring

	mu     sync.Mutex
	env    map[string]string
	toasts []notification.Toast
}

// NewCLITest creates a new CLI test helper with an isolated config, cache and
// mock server. The token is provided through PPV_NOTION_TOKEN.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	c := newCLITest(t)
	c.SetEnv(credentials.EnvToken, notionmock.DefaultToken)
	return c
}

// NewCLITestWithoutToken creates a CLI test helper where no token can be found.
func NewCLITestWithoutToken(t *testing.T) *CLITest {
	t.Helper()
	return newCLITest(t)
}

func newCLITest(t *testing.T) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write a minimal default config to ensure isolation
	if err := os.WriteFile(configPath, []byte(defaultTestConfig), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	c := &CLITest{
		t:          t,
		tmpDir:     tmpDir,
		configPath: configPath,
		Notion:     notionmock.New(t, notionmock.DefaultToken),
		Keyring:    credentials.NewMockKeyring(),
		env:        make(map[string]string),
	}

	c.cfg = &cmd.Config{
		NoPrompt:      true,
		ConfigPath:    configPath,
		CachePath:     filepath.Join(tmpDir, "cache", "cache.db"),
		NotionBaseURL: c.Notion.URL(),
		Keyring:       c.Keyring,
		Getenv:        c.getenv,
		Notifier:      notification.Func(c.recordToast),
	}
	return c
}

func (c *CLITest) getenv(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env[key]
}

func (c *CLITest) recordToast(t notification.Toast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toasts = append(c.toasts, t)
}

// SetEnv sets an environment variable as seen by the CLI (empty removes it)
func (c *CLITest) SetEnv(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" {
		delete(c.env, key)
		return
	}
	c.env[key] = value
}

// SetStdin enables interactive prompts and feeds them the given input
func (c *CLITest) SetStdin(input string) {
	c.cfg.NoPrompt = false
	c.cfg.Stdin = strings.NewReader(input)
}

// Toasts returns the notifications reported so far
func (c *CLITest) Toasts() []notification.Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notification.Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Config returns the CLI config used for execution
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()

	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// AppendConfig appends YAML to the config file.
func (c *CLITest) AppendConfig(yamlContent string) {
	c.t.Helper()

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.t.Fatalf("failed to read config file: %v", err)
	}
	if err := os.WriteFile(c.configPath, append(data, []byte(yamlContent)...), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit codes don't match.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// AssertResultCode verifies that the output ends with the expected result code.
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		t.Errorf("expected result code %q but output is empty", expectedCode)
		return
	}
	lastLine := strings.TrimSpace(lines[len(lines)-1])
	if lastLine != expectedCode {
		t.Errorf("expected result code %q, got %q\nFull output:\n%s", expectedCode, lastLine, output)
	}
}

// Result code constants for convenience.
const (
	ResultActionCompleted = cmd.ResultActionCompleted
	ResultInfoOnly        = cmd.ResultInfoOnly
	ResultError           = cmd.ResultError
)
