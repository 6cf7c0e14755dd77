// Package config provides configuration management for chainscope.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Provider names accepted in provider.name
const (
	ProviderTradier = "tradier"
	ProviderMock    = "mock"
)

const (
	defaultLogLevel        = "info"
	defaultProviderTimeout = "10s"
	defaultPort            = 8080
	defaultHistorySize     = 100
	defaultConcurrency     = 4
)

// Config represents the complete application configuration.
type Config struct {
	Environment    EnvironmentConfig    `yaml:"environment"`
	Provider       ProviderConfig       `yaml:"provider"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Scan           ScanConfig           `yaml:"scan"`
	Server         ServerConfig         `yaml:"server"`
}

// EnvironmentConfig defines logging settings.
type EnvironmentConfig struct {
	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat string `yaml:"log_format"` // text | json
	// LogFile enables rotating file output in addition to stderr
	LogFile string `yaml:"log_file"`
}

// ProviderConfig defines where market data comes from.
type ProviderConfig struct {
	Name        string `yaml:"name"` // tradier | mock
	APIKey      string `yaml:"api_key"`
	APIEndpoint string `yaml:"api_endpoint"`
	Timeout     string `yaml:"timeout"`
	Sandbox     bool   `yaml:"sandbox"`
}

// RetryConfig defines retry behavior for upstream calls.
type RetryConfig struct {
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
	Timeout        string `yaml:"timeout"`
	MaxRetries     int    `yaml:"max_retries"`
}

// CircuitBreakerConfig defines when upstream calls stop being attempted.
type CircuitBreakerConfig struct {
	Interval     string  `yaml:"interval"`
	Timeout      string  `yaml:"timeout"`
	FailureRatio float64 `yaml:"failure_ratio"`
	MaxRequests  uint32  `yaml:"max_requests"`
	MinRequests  uint32  `yaml:"min_requests"`
}

// ScanConfig defines the symbols analyzed by the scan command.
type ScanConfig struct {
	Symbols     []string `yaml:"symbols"`
	Concurrency int      `yaml:"concurrency"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	AuthToken   string `yaml:"auth_token"`
	Port        int    `yaml:"port"`
	HistorySize int    `yaml:"history_size"`
}

// Default returns a configuration that runs against the mock provider
// without a config file.
func Default() *Config {
	c := &Config{
		Provider: ProviderConfig{Name: ProviderMock},
		Scan:     ScanConfig{Symbols: []string{"SPY", "QQQ", "IWM"}},
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return c
}

// Load reads and parses the configuration file from the specified path.
// A .env file next to the config, or in the working directory, is loaded
// first so ${VAR} references resolve. Existing environment variables win.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env"), ".env"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Validate fills defaults for unset values and checks that the rest are usable.
func (c *Config) Validate() error {
	c.normalize()

	// Environment validation
	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}
	if c.Environment.LogFormat != "text" && c.Environment.LogFormat != "json" {
		return fmt.Errorf("environment.log_format must be 'text' or 'json'")
	}

	// Provider validation
	switch c.Provider.Name {
	case ProviderTradier:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("provider.name must be 'tradier' or 'mock'")
	}
	if err := positiveDuration("provider.timeout", c.Provider.Timeout); err != nil {
		return err
	}

	// Retry validation
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	for _, d := range []struct{ path, value string }{
		{"retry.initial_backoff", c.Retry.InitialBackoff},
		{"retry.max_backoff", c.Retry.MaxBackoff},
		{"retry.timeout", c.Retry.Timeout},
	} {
		if err := positiveDuration(d.path, d.value); err != nil {
			return err
		}
	}
	if c.RetryMaxBackoff() < c.RetryInitialBackoff() {
		return fmt.Errorf("retry.max_backoff (%s) must be >= retry.initial_backoff (%s)",
			c.Retry.MaxBackoff, c.Retry.InitialBackoff)
	}

	// Circuit breaker validation
	if c.CircuitBreaker.FailureRatio <= 0 || c.CircuitBreaker.FailureRatio > 1 {
		return fmt.Errorf("circuit_breaker.failure_ratio must be in (0,1]")
	}
	if err := positiveDuration("circuit_breaker.interval", c.CircuitBreaker.Interval); err != nil {
		return err
	}
	if err := positiveDuration("circuit_breaker.timeout", c.CircuitBreaker.Timeout); err != nil {
		return err
	}

	// Scan validation
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be > 0")
	}
	for i, s := range c.Scan.Symbols {
		if s == "" {
			return fmt.Errorf("scan.symbols[%d] is empty", i)
		}
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.HistorySize <= 0 {
		return fmt.Errorf("server.history_size must be > 0")
	}

	return nil
}

// normalize sets default values for unset fields
func (c *Config) normalize() {
	c.Environment.LogLevel = strings.ToLower(strings.TrimSpace(c.Environment.LogLevel))
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = defaultLogLevel
	}
	c.Environment.LogFormat = strings.ToLower(strings.TrimSpace(c.Environment.LogFormat))
	if c.Environment.LogFormat == "" {
		c.Environment.LogFormat = "text"
	}

	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderTradier
	}
	if c.Provider.Timeout == "" {
		c.Provider.Timeout = defaultProviderTimeout
	}

	if c.Retry.InitialBackoff == "" {
		c.Retry.InitialBackoff = "1s"
	}
	if c.Retry.MaxBackoff == "" {
		c.Retry.MaxBackoff = "30s"
	}
	if c.Retry.Timeout == "" {
		c.Retry.Timeout = "2m"
	}

	cb := &c.CircuitBreaker
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 3
	}
	if cb.Interval == "" {
		cb.Interval = "60s"
	}
	if cb.Timeout == "" {
		cb.Timeout = "30s"
	}
	if cb.MinRequests == 0 {
		cb.MinRequests = 5
	}
	if cb.FailureRatio == 0 {
		cb.FailureRatio = 0.6
	}

	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = defaultConcurrency
	}
	for i, s := range c.Scan.Symbols {
		c.Scan.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.HistorySize == 0 {
		c.Server.HistorySize = defaultHistorySize
	}
}

func positiveDuration(path, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", path, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", path)
	}
	return nil
}

// duration parses a validated duration, returning fallback if it does not parse.
func duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// UseMock reports whether the synthetic provider is configured.
func (c *Config) UseMock() bool {
	return c.Provider.Name == ProviderMock
}

// ProviderTimeout returns the HTTP timeout for provider requests.
func (c *Config) ProviderTimeout() time.Duration {
	return duration(c.Provider.Timeout, 10*time.Second)
}

// RetryInitialBackoff returns the first retry delay.
func (c *Config) RetryInitialBackoff() time.Duration {
	return duration(c.Retry.InitialBackoff, time.Second)
}

// RetryMaxBackoff returns the retry delay cap.
func (c *Config) RetryMaxBackoff() time.Duration {
	return duration(c.Retry.MaxBackoff, 30*time.Second)
}

// RetryTimeout returns the overall deadline for one retried call.
func (c *Config) RetryTimeout() time.Duration {
	return duration(c.Retry.Timeout, 2*time.Minute)
}

// BreakerInterval returns the closed-state count reset interval.
func (c *Config) BreakerInterval() time.Duration {
	return duration(c.CircuitBreaker.Interval, 60*time.Second)
}

// BreakerTimeout returns how long the breaker stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return duration(c.CircuitBreaker.Timeout, 30*time.Second)
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
