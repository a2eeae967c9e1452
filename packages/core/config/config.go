package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the scriptsuite configuration
type Config struct {
	DefaultEnvironment string                       `yaml:"defaultEnvironment,omitempty"`
	Timeout            int                          `yaml:"timeout,omitempty"`    // milliseconds, suite default when a suite sets none
	Retries            int                          `yaml:"retries,omitempty"`    // suite default when a suite sets none
	RetryDelay         int                          `yaml:"retryDelay,omitempty"` // milliseconds
	StopOnFailure      *bool                        `yaml:"stopOnFailure,omitempty"`
	Shell              string                       `yaml:"shell,omitempty"`
	Remote             string                       `yaml:"remote,omitempty"` // remote agent URL, replaces the shell runner
	ScriptsDir         string                       `yaml:"scriptsDir,omitempty"`
	Database           string                       `yaml:"database,omitempty"`
	HistoryLimit       int                          `yaml:"historyLimit,omitempty"`
	RateLimit          float64                      `yaml:"rateLimit,omitempty"` // invocations per second, 0 = unlimited
	Reporters          []string                     `yaml:"reporters,omitempty"`
	OutputDir          string                       `yaml:"outputDir,omitempty"`
	Verbose            *bool                        `yaml:"verbose,omitempty"`
	NoColor            *bool                        `yaml:"noColor,omitempty"`
	Environments       map[string]map[string]string `yaml:"environments,omitempty"`
	Notify             *NotifyConfig                `yaml:"notify,omitempty"`
}

// NotifyConfig configures run notifications
type NotifyConfig struct {
	On           string `yaml:"on,omitempty"` // always, failure, success, recovery
	SlackWebhook string `yaml:"slackWebhook,omitempty"`
	SlackChannel string `yaml:"slackChannel,omitempty"`
	TeamsWebhook string `yaml:"teamsWebhook,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetStopOnFailure returns the stop-on-failure setting, defaulting to false
func (c *Config) GetStopOnFailure() bool {
	return getBool(c.StopOnFailure, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a duration
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// RetryDelayDuration returns RetryDelay as a duration
func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".scriptsuite.yaml",
	"scriptsuite.yaml",
	".scriptsuite.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate rejects values that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative")
	case c.Retries < 0:
		return fmt.Errorf("retries must not be negative")
	case c.RetryDelay < 0:
		return fmt.Errorf("retryDelay must not be negative")
	case c.RateLimit < 0:
		return fmt.Errorf("rateLimit must not be negative")
	}
	if c.Notify != nil {
		switch c.Notify.On {
		case "", "always", "failure", "success", "recovery":
		default:
			return fmt.Errorf("notify.on must be one of always, failure, success, recovery; got %q", c.Notify.On)
		}
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Retries > 0 {
		result.Retries = other.Retries
	}
	if other.RetryDelay > 0 {
		result.RetryDelay = other.RetryDelay
	}
	if other.Shell != "" {
		result.Shell = other.Shell
	}
	if other.Remote != "" {
		result.Remote = other.Remote
	}
	if other.ScriptsDir != "" {
		result.ScriptsDir = other.ScriptsDir
	}
	if other.Database != "" {
		result.Database = other.Database
	}
	if other.HistoryLimit > 0 {
		result.HistoryLimit = other.HistoryLimit
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}

	// Boolean flags - only override if explicitly set in other config
	if other.StopOnFailure != nil {
		result.StopOnFailure = other.StopOnFailure
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	if len(other.Environments) > 0 {
		envs := make(map[string]map[string]string, len(c.Environments)+len(other.Environments))
		for name, vars := range c.Environments {
			envs[name] = vars
		}
		for name, vars := range other.Environments {
			merged := make(map[string]string, len(envs[name])+len(vars))
			for k, v := range envs[name] {
				merged[k] = v
			}
			for k, v := range vars {
				merged[k] = v
			}
			envs[name] = merged
		}
		result.Environments = envs
	}

	if other.Notify != nil {
		result.Notify = other.Notify
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
