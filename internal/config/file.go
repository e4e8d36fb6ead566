package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// File names searched by Load.
const (
	GlobalFileName  = "config.yaml"
	ProjectFileName = ".code-edit.yaml"
)

// Built-in defaults, used when no file or flag sets a value.
const (
	DefaultTemperature  = 0.1
	DefaultTimeout      = 300 * time.Second
	DefaultBackupSuffix = ".backup"
	DefaultContextLines = 3
)

// Config holds settings read from YAML. Zero values mean "not set" so that
// files can be layered; use the accessor methods to get effective values.
type Config struct {
	Model        string   `yaml:"model,omitempty"`
	Provider     string   `yaml:"provider,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	MaxTokens    int      `yaml:"max_tokens,omitempty"`
	Timeout      string   `yaml:"timeout,omitempty"`
	BackupSuffix string   `yaml:"backup_suffix,omitempty"`
	ContextLines *int     `yaml:"context_lines,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty"`

	// Sources lists the files that contributed, lowest precedence first.
	Sources []string `yaml:"-"`
}

// GlobalPath returns the path of the global config file, or "" when no
// config directory can be determined.
func GlobalPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, GlobalFileName)
}

// Load reads the global config file and then the project file in workDir,
// with project values overriding global ones field by field.
// Missing files are skipped.
func Load(workDir string) (*Config, error) {
	cfg := &Config{}

	paths := []string{}
	if global := GlobalPath(); global != "" {
		paths = append(paths, global)
	}
	paths = append(paths, filepath.Join(workDir, ProjectFileName))

	for _, path := range paths {
		layer, err := ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		cfg.merge(layer)
		cfg.Sources = append(cfg.Sources, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile parses a single YAML config file.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.Provider != "" {
		c.Provider = o.Provider
	}
	if o.Temperature != nil {
		c.Temperature = o.Temperature
	}
	if o.MaxTokens != 0 {
		c.MaxTokens = o.MaxTokens
	}
	if o.Timeout != "" {
		c.Timeout = o.Timeout
	}
	if o.BackupSuffix != "" {
		c.BackupSuffix = o.BackupSuffix
	}
	if o.ContextLines != nil {
		c.ContextLines = o.ContextLines
	}
	if o.SystemPrompt != "" {
		c.SystemPrompt = o.SystemPrompt
	}
}

// Validate checks values that YAML typing alone cannot.
func (c *Config) Validate() error {
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid timeout %q: must be positive", c.Timeout)
		}
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("invalid temperature %v: must be between 0 and 2", *c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("invalid max_tokens %d: must not be negative", c.MaxTokens)
	}
	if c.ContextLines != nil && *c.ContextLines < 0 {
		return fmt.Errorf("invalid context_lines %d: must not be negative", *c.ContextLines)
	}
	return nil
}

// EffectiveTemperature returns the configured temperature or the default.
func (c *Config) EffectiveTemperature() float64 {
	if c.Temperature != nil {
		return *c.Temperature
	}
	return DefaultTemperature
}

// EffectiveTimeout returns the configured timeout or the default.
// Validate has already rejected unparsable values.
func (c *Config) EffectiveTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

// EffectiveBackupSuffix returns the configured suffix or ".backup".
func (c *Config) EffectiveBackupSuffix() string {
	if c.BackupSuffix != "" {
		return c.BackupSuffix
	}
	return DefaultBackupSuffix
}

// EffectiveContextLines returns the configured diff context or 3.
func (c *Config) EffectiveContextLines() int {
	if c.ContextLines != nil {
		return *c.ContextLines
	}
	return DefaultContextLines
}
