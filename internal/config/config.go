// Package config loads bugtrack settings from a YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the API host used when nothing else is configured
const DefaultAPIURL = "http://localhost:8000"

// Config holds the client configuration
type Config struct {
	APIURL      string        `yaml:"api_url"`
	Timeout     time.Duration `yaml:"timeout"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	Theme       string        `yaml:"theme,omitempty"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// Overrides are command-line values; empty fields leave the config alone
type Overrides struct {
	APIURL      string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		APIURL:   DefaultAPIURL,
		Timeout:  30 * time.Second,
		LogFile:  defaultLogFile(),
		LogLevel: "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/bugtrack/config.yaml
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "bugtrack", "config.yaml")
}

func defaultLogFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "bugtrack.log"
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "bugtrack", "bugtrack.log")
}

// Load reads path, then applies environment overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile reads path over the defaults without looking at the environment,
// so the result can be edited and saved back.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

// Keys lists the settings Set accepts
var Keys = []string{"api_url", "timeout", "log_file", "log_level", "theme", "metrics_addr"}

// Set assigns one setting by its YAML key and validates the result
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "api_url":
		next.APIURL = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		next.Timeout = d
	case "log_file":
		next.LogFile = value
	case "log_level":
		next.LogLevel = strings.ToLower(value)
	case "theme":
		next.Theme = value
	case "metrics_addr":
		next.MetricsAddr = value
	default:
		return fmt.Errorf("unknown setting %q (want one of %s)", key, strings.Join(Keys, ", "))
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.APIURL = getEnv("BUGTRACK_API_URL", c.APIURL)
	c.Timeout = getDuration("BUGTRACK_TIMEOUT", c.Timeout)
	c.LogFile = getEnv("BUGTRACK_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("BUGTRACK_LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = getEnv("BUGTRACK_METRICS_ADDR", c.MetricsAddr)
}

// Apply layers command-line overrides on top
func (c *Config) Apply(o Overrides) {
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.Verbose {
		c.LogLevel = "debug"
	}
}

// Validate checks the values that would otherwise fail late
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute URL", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url %q must use http or https", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
