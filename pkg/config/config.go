package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Pinterest downloader
type Config struct {
	// HTTP client behaviour shared by every remote call
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Rate limiting between remote calls
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Profile enumeration settings
	Profile ProfileConfig `yaml:"profile" json:"profile"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// HTTPConfig holds settings applied to the shared HTTP session
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language" json:"accept_language"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ProfileConfig holds profile pin enumeration configuration
type ProfileConfig struct {
	// MaxPins caps how many pins are collected per profile; 0 means no cap.
	MaxPins int `yaml:"max_pins" json:"max_pins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) " +
				"Chrome/126.0.0.0 Safari/537.36",
			AcceptLanguage: "en-US,en;q=0.9",
			MaxRetries:     3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Profile: ProfileConfig{
			MaxPins: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the effective configuration: defaults, then config file,
// then environment, then explicit command-line overrides.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional; missing files are fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".pindl.yaml",
		".pindl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "pindl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "pindl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".pindl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if userAgent := os.Getenv("PINDL_USER_AGENT"); userAgent != "" {
		c.HTTP.UserAgent = userAgent
	}
	if timeout := os.Getenv("PINDL_TIMEOUT_SECONDS"); timeout != "" {
		var val int
		fmt.Sscanf(timeout, "%d", &val)
		if val > 0 {
			c.HTTP.Timeout = time.Duration(val) * time.Second
		}
	}
	if rpm := os.Getenv("PINDL_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if outputDir := os.Getenv("PINDL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if maxPins := os.Getenv("PINDL_MAX_PROFILE_PINS"); maxPins != "" {
		var val int
		fmt.Sscanf(maxPins, "%d", &val)
		if val >= 0 {
			c.Profile.MaxPins = val
		}
	}
	if logLevel := os.Getenv("PINDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("PINDL_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// applyFlags overrides configuration with explicit command-line values
func (c *Config) applyFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "output":
			if v, ok := value.(string); ok && v != "" {
				c.Output.BaseDirectory = v
			}
		case "max-pins":
			if v, ok := value.(int); ok && v >= 0 {
				c.Profile.MaxPins = v
			}
		case "timeout":
			if v, ok := value.(int); ok && v > 0 {
				c.HTTP.Timeout = time.Duration(v) * time.Second
			}
		case "rate-limit":
			if v, ok := value.(int); ok && v > 0 {
				c.RateLimit.RequestsPerMinute = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.HTTP.Timeout <= 0 {
		result = multierror.Append(result, errors.New("http timeout must be positive"))
	}
	if c.HTTP.UserAgent == "" {
		result = multierror.Append(result, errors.New("user agent must not be empty"))
	}
	if c.HTTP.MaxRetries < 0 {
		result = multierror.Append(result, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		result = multierror.Append(result, errors.New("requests per minute must be positive"))
	}
	if c.Output.BaseDirectory == "" {
		result = multierror.Append(result, errors.New("output base directory must not be empty"))
	}
	if c.Profile.MaxPins < 0 {
		result = multierror.Append(result, errors.New("max profile pins cannot be negative"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		result = multierror.Append(result, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}

	return result.ErrorOrNil()
}
