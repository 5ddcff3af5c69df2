package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/harrison/rgrep/internal/logger"
	"github.com/harrison/rgrep/internal/models"
	"gopkg.in/yaml.v3"
)

// Config represents rgrep configuration options
type Config struct {
	// Depth is the maximum traversal depth below the root (0 = root only)
	Depth int `yaml:"depth"`

	// ThreadCount is the maximum number of search tasks alive at once
	ThreadCount int `yaml:"thread_count"`

	// InvertMatch reports the entries or lines that do not match
	InvertMatch bool `yaml:"invert_match"`

	// LineNumber prints line numbers and highlights in content mode
	LineNumber bool `yaml:"line_number"`

	// NameBase matches entry names instead of file contents
	NameBase bool `yaml:"name_base"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogFile is an optional run log appended to on every run
	LogFile string `yaml:"log_file"`

	// Color is auto, always or never
	Color string `yaml:"color"`

	// Timeout bounds the whole run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// FailFast cancels in-flight tasks on the first task failure
	FailFast bool `yaml:"fail_fast"`

	// Summary prints a one-line run summary to stderr
	Summary bool `yaml:"summary"`

	// ExcludeDirs lists directory names that are never descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// Overrides carries command-line values. Nil fields leave the config untouched.
type Overrides struct {
	Depth       *int
	ThreadCount *int
	InvertMatch *bool
	LineNumber  *bool
	NameBase    *bool
	LogLevel    *string
	LogFile     *string
	Color       *string
	Timeout     *time.Duration
	FailFast    *bool
	Summary     *bool
	ExcludeDirs []string
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Depth:       1,
		ThreadCount: 2,
		LogLevel:    "info",
		Color:       "auto",
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// Only keys present in the file override the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Timeout is a duration string in the file
	type yamlConfig struct {
		Depth       int      `yaml:"depth"`
		ThreadCount int      `yaml:"thread_count"`
		InvertMatch bool     `yaml:"invert_match"`
		LineNumber  bool     `yaml:"line_number"`
		NameBase    bool     `yaml:"name_base"`
		LogLevel    string   `yaml:"log_level"`
		LogFile     string   `yaml:"log_file"`
		Color       string   `yaml:"color"`
		Timeout     string   `yaml:"timeout"`
		FailFast    bool     `yaml:"fail_fast"`
		Summary     bool     `yaml:"summary"`
		ExcludeDirs []string `yaml:"exclude_dirs"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// An explicit zero (depth: 0, invert_match: false) must still win over
	// the default, so presence is read from the raw document.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	present := func(key string) bool {
		_, ok := rawMap[key]
		return ok
	}

	if present("depth") {
		cfg.Depth = yamlCfg.Depth
	}
	if present("thread_count") {
		cfg.ThreadCount = yamlCfg.ThreadCount
	}
	if present("invert_match") {
		cfg.InvertMatch = yamlCfg.InvertMatch
	}
	if present("line_number") {
		cfg.LineNumber = yamlCfg.LineNumber
	}
	if present("name_base") {
		cfg.NameBase = yamlCfg.NameBase
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogFile != "" {
		cfg.LogFile = yamlCfg.LogFile
	}
	if yamlCfg.Color != "" {
		cfg.Color = yamlCfg.Color
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if present("fail_fast") {
		cfg.FailFast = yamlCfg.FailFast
	}
	if present("summary") {
		cfg.Summary = yamlCfg.Summary
	}
	if present("exclude_dirs") {
		cfg.ExcludeDirs = yamlCfg.ExcludeDirs
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .rgrep/config.yaml in the specified directory
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".rgrep", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(o Overrides) {
	if o.Depth != nil {
		c.Depth = *o.Depth
	}
	if o.ThreadCount != nil {
		c.ThreadCount = *o.ThreadCount
	}
	if o.InvertMatch != nil {
		c.InvertMatch = *o.InvertMatch
	}
	if o.LineNumber != nil {
		c.LineNumber = *o.LineNumber
	}
	if o.NameBase != nil {
		c.NameBase = *o.NameBase
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogFile != nil {
		c.LogFile = *o.LogFile
	}
	if o.Color != nil {
		c.Color = *o.Color
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.FailFast != nil {
		c.FailFast = *o.FailFast
	}
	if o.Summary != nil {
		c.Summary = *o.Summary
	}
	if o.ExcludeDirs != nil {
		c.ExcludeDirs = o.ExcludeDirs
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.ThreadCount < 1 {
		return fmt.Errorf("thread_count must be >= 1, got %d", c.ThreadCount)
	}
	if c.Depth < 0 {
		return fmt.Errorf("depth must be >= 0, got %d", c.Depth)
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.Color) {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color %q, must be one of: auto, always, never", c.Color)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	for _, dir := range c.ExcludeDirs {
		if dir == "" || strings.ContainsRune(dir, filepath.Separator) {
			return fmt.Errorf("exclude_dirs entries must be plain directory names, got %q", dir)
		}
	}
	return nil
}

// Build compiles pattern and returns the search configuration for root. An
// invalid pattern yields a *models.PatternCompileError and no configuration.
func (c *Config) Build(pattern, root string) (*models.SearchConfig, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &models.PatternCompileError{Pattern: pattern, Err: err}
	}

	mode := models.ContentSearch
	if c.NameBase {
		mode = models.NameSearch
	}

	return &models.SearchConfig{
		Pattern:          re,
		RootPath:         root,
		Mode:             mode,
		MaxDepth:         c.Depth,
		ConcurrencyLimit: c.ThreadCount,
		InvertMatch:      c.InvertMatch,
		ShowLineNumber:   c.LineNumber,
		Verbose:          strings.EqualFold(strings.TrimSpace(c.LogLevel), "trace"),
	}, nil
}
