package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestConfigCustomPath verifies Load reads an explicit path
func TestConfigCustomPath(t *testing.T) {
	path := writeConfig(t, `
notion:
  token: secret_abc
  base_url: http://localhost:9999
  timeout: 10s
  databases:
    projects: p1
cache:
  path: /tmp/ppv-test.db
no_prompt: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Notion.Token != "secret_abc" {
		t.Errorf("token = %q", cfg.Notion.Token)
	}
	if cfg.Notion.Databases.Projects != "p1" {
		t.Errorf("projects database = %q", cfg.Notion.Databases.Projects)
	}
	if cfg.GetNotionTimeout() != 10*time.Second {
		t.Errorf("GetNotionTimeout() = %v", cfg.GetNotionTimeout())
	}
	if cfg.GetCachePath() != "/tmp/ppv-test.db" {
		t.Errorf("GetCachePath() = %q", cfg.GetCachePath())
	}
	if !cfg.NoPrompt {
		t.Error("no_prompt should be true")
	}
}

// TestConfigDefaultsForEmptyFile verifies getters fall back to defaults
func TestConfigDefaultsForEmptyFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Parse([]byte("# empty\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.OutputFormat != "text" {
		t.Errorf("OutputFormat = %q, want text", cfg.OutputFormat)
	}
	if cfg.Cache.Partitions.Projects != DefaultProjectsPartition {
		t.Errorf("projects partition = %q", cfg.Cache.Partitions.Projects)
	}
	if cfg.Cache.Partitions.ActionItems != DefaultActionItemsPartition {
		t.Errorf("action items partition = %q", cfg.Cache.Partitions.ActionItems)
	}
	if cfg.GetDebounce() != DefaultDebounce {
		t.Errorf("GetDebounce() = %v", cfg.GetDebounce())
	}
	if cfg.GetNotionTimeout() != 0 {
		t.Errorf("GetNotionTimeout() = %v, want 0", cfg.GetNotionTimeout())
	}
	if cfg.GetProjectLookupConcurrency() != DefaultProjectLookupConcurrency {
		t.Errorf("GetProjectLookupConcurrency() = %d", cfg.GetProjectLookupConcurrency())
	}
}

// TestProjectLookupConcurrencyZero verifies an explicit 0 is kept (unbounded)
func TestProjectLookupConcurrencyZero(t *testing.T) {
	cfg, err := Parse([]byte("fetch:\n  project_lookup_concurrency: 0\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.GetProjectLookupConcurrency() != 0 {
		t.Errorf("GetProjectLookupConcurrency() = %d, want 0", cfg.GetProjectLookupConcurrency())
	}
}

func TestConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "notion: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestConfigValidation(t *testing.T) {
	neg := -1
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad output format", func(c *Config) { c.OutputFormat = "xml" }, "output_format"},
		{"same partitions", func(c *Config) { c.Cache.Partitions.ActionItems = c.Cache.Partitions.Projects }, "partitions must differ"},
		{"bad timeout", func(c *Config) { c.Notion.Timeout = "soon" }, "notion.timeout"},
		{"zero debounce", func(c *Config) { c.Edit.Debounce = "0s" }, "edit.debounce"},
		{"negative concurrency", func(c *Config) { c.Fetch.ProjectLookupConcurrency = &neg }, "project_lookup_concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFlagOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFlags(true, true, "json")

	if !cfg.NoPrompt || !cfg.Logging.Verbose || cfg.OutputFormat != "json" {
		t.Errorf("ApplyFlags did not override: %+v", cfg)
	}

	cfg.ApplyFlags(false, false, "")
	if !cfg.NoPrompt || cfg.OutputFormat != "json" {
		t.Error("unset flags should not reset values")
	}
}

func TestXDGPathExpansion(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))

	if got := DefaultPath(); got != filepath.Join(tmp, "cfg", "ppv", "config.yaml") {
		t.Errorf("DefaultPath() = %q", got)
	}
	if got := GetDataDir(); got != filepath.Join(tmp, "data", "ppv") {
		t.Errorf("GetDataDir() = %q", got)
	}
}

func TestPathExpansionTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := ExpandPath("~/ppv/cache.db"); got != filepath.Join(home, "ppv", "cache.db") {
		t.Errorf("ExpandPath() = %q", got)
	}
	if ExpandPath("") != "" {
		t.Error("ExpandPath(\"\") should be empty")
	}
}

func TestPathExpansionEnvVars(t *testing.T) {
	t.Setenv("PPV_TEST_DIR", "/srv/ppv")
	if got := ExpandPath("$PPV_TEST_DIR/cache.db"); got != "/srv/ppv/cache.db" {
		t.Errorf("ExpandPath() = %q", got)
	}
}

func TestRedactedHidesToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notion.Token = "secret_abc"

	data, err := cfg.Redacted().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "secret_abc") {
		t.Error("redacted config should not contain the token")
	}
	if cfg.Notion.Token != "secret_abc" {
		t.Error("Redacted should not modify the original")
	}
}
