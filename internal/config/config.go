// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Default values used when a key is missing from the config file
const (
	DefaultProjectsPartition        = "projects"
	DefaultActionItemsPartition     = "action-items"
	DefaultProjectLookupConcurrency = 8
	DefaultDebounce                 = 3 * time.Second
)

// Config represents the application configuration
type Config struct {
	Notion        NotionConfig        `yaml:"notion"`
	Cache         CacheConfig         `yaml:"cache"`
	Fetch         FetchConfig         `yaml:"fetch"`
	Edit          EditConfig          `yaml:"edit"`
	Notifications NotificationsConfig `yaml:"notifications"`
	NoPrompt      bool                `yaml:"no_prompt"`
	OutputFormat  string              `yaml:"output_format"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// NotionConfig holds the remote workspace settings
type NotionConfig struct {
	Token        string          `yaml:"token"`
	BaseURL      string          `yaml:"base_url"`
	Version      string          `yaml:"version"`
	Timeout      string          `yaml:"timeout"` // e.g. "30s"; empty = no timeout
	Databases    DatabasesConfig `yaml:"databases"`
	SparkFileTag string          `yaml:"spark_file_tag"`
}

// DatabasesConfig holds the ids of the three Notion databases
type DatabasesConfig struct {
	Projects    string `yaml:"projects"`
	Notes       string `yaml:"notes"`
	ActionItems string `yaml:"action_items"`
}

// CacheConfig holds local cache settings
type CacheConfig struct {
	Path       string           `yaml:"path"`
	Partitions PartitionsConfig `yaml:"partitions"`
}

// PartitionsConfig names the two cache partitions
type PartitionsConfig struct {
	Projects    string `yaml:"projects"`
	ActionItems string `yaml:"action_items"`
}

// FetchConfig holds settings for today's action items
type FetchConfig struct {
	ProjectLookupConcurrency *int `yaml:"project_lookup_concurrency"` // nil = default, 0 = unbounded
}

// EditConfig holds editing settings
type EditConfig struct {
	Debounce string `yaml:"debounce"` // e.g. "3s"
}

// NotificationsConfig holds toast settings
type NotificationsConfig struct {
	Desktop bool `yaml:"desktop"` // also show results as OS notifications
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Path: filepath.Join(GetDataDir(), "cache.db"),
			Partitions: PartitionsConfig{
				Projects:    DefaultProjectsPartition,
				ActionItems: DefaultActionItemsPartition,
			},
		},
		OutputFormat: "text",
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the embedded sample.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeSample(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML and applies defaults for unset fields
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(GetDataDir(), "cache.db")
	} else {
		cfg.Cache.Path = ExpandPath(cfg.Cache.Path)
	}
	if cfg.Cache.Partitions.Projects == "" {
		cfg.Cache.Partitions.Projects = DefaultProjectsPartition
	}
	if cfg.Cache.Partitions.ActionItems == "" {
		cfg.Cache.Partitions.ActionItems = DefaultActionItemsPartition
	}

	return cfg, nil
}

// writeSample writes the embedded sample config to path
func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	if c.Cache.Partitions.Projects == c.Cache.Partitions.ActionItems {
		return fmt.Errorf("cache partitions must differ, both are %q", c.Cache.Partitions.Projects)
	}

	if c.Notion.Timeout != "" {
		d, err := time.ParseDuration(c.Notion.Timeout)
		if err != nil {
			return fmt.Errorf("invalid duration for notion.timeout: %q", c.Notion.Timeout)
		}
		if d < 0 {
			return fmt.Errorf("notion.timeout must not be negative, got %q", c.Notion.Timeout)
		}
	}

	if c.Edit.Debounce != "" {
		d, err := time.ParseDuration(c.Edit.Debounce)
		if err != nil {
			return fmt.Errorf("invalid duration for edit.debounce: %q", c.Edit.Debounce)
		}
		if d <= 0 {
			return fmt.Errorf("edit.debounce must be positive, got %q", c.Edit.Debounce)
		}
	}

	if c.Fetch.ProjectLookupConcurrency != nil && *c.Fetch.ProjectLookupConcurrency < 0 {
		return fmt.Errorf("fetch.project_lookup_concurrency must not be negative, got %d", *c.Fetch.ProjectLookupConcurrency)
	}

	return nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(noPrompt, verbose bool, outputFormat string) {
	if noPrompt {
		c.NoPrompt = true
	}
	if verbose {
		c.Logging.Verbose = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// GetNotionTimeout returns the request timeout. Returns 0 (no timeout) if not configured.
func (c *Config) GetNotionTimeout() time.Duration {
	if c.Notion.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Notion.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetDebounce returns the content edit debounce window.
// Returns 3 seconds as default if not configured or if parsing fails.
func (c *Config) GetDebounce() time.Duration {
	if c.Edit.Debounce == "" {
		return DefaultDebounce
	}
	d, err := time.ParseDuration(c.Edit.Debounce)
	if err != nil || d <= 0 {
		return DefaultDebounce
	}
	return d
}

// GetProjectLookupConcurrency returns the project-title fan-out limit.
// Returns 8 if not configured; 0 means unbounded.
func (c *Config) GetProjectLookupConcurrency() int {
	if c.Fetch.ProjectLookupConcurrency == nil || *c.Fetch.ProjectLookupConcurrency < 0 {
		return DefaultProjectLookupConcurrency
	}
	return *c.Fetch.ProjectLookupConcurrency
}

// GetCachePath returns the path to the SQLite cache file
func (c *Config) GetCachePath() string {
	return c.Cache.Path
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "ppv")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "ppv")
	}
	return filepath.Join(home, fallbackPath, "ppv")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}

// Redacted returns a copy safe to print: the token is masked
func (c *Config) Redacted() *Config {
	out := *c
	if out.Notion.Token != "" {
		out.Notion.Token = "********"
	}
	return &out
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
