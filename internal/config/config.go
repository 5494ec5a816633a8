// Package config loads runtime configuration for the hello-world binaries.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file
// named by HELLOWORLD_CONFIG, then environment variables. A .env file in the
// working directory is loaded into the environment first when present.
// Library packages never read configuration themselves; the binary passes
// the relevant values down.
package config

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable that points at a YAML config file.
const FileEnv = "HELLOWORLD_CONFIG"

type API struct {
	BaseURL       string        `yaml:"base_url" env:"API_BASE_URL"`
	Timeout       time.Duration `yaml:"timeout" env:"API_TIMEOUT"`
	RetryAttempts int           `yaml:"retry_attempts" env:"API_RETRY_ATTEMPTS"`
}

type Mock struct {
	// Enabled routes API requests to the in-process fake backend.
	Enabled bool   `yaml:"enabled" env:"ENABLE_MOCK"`
	Debug   bool   `yaml:"debug" env:"MOCK_DEBUG"`
	Prefix  string `yaml:"prefix" env:"MOCK_PREFIX"`
}

type App struct {
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
	Environment string `yaml:"environment" env:"APP_ENV"`
}

type Server struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR"`
	// AllowedOrigins is a comma-separated CORS allow list; "*" allows any.
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"RATE_BURST"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Config is the complete runtime configuration.
type Config struct {
	API    API    `yaml:"api"`
	Mock   Mock   `yaml:"mock"`
	App    App    `yaml:"app"`
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:       "http://localhost:8080/api",
			Timeout:       10 * time.Second,
			RetryAttempts: 3,
		},
		Mock: Mock{
			Prefix: "/api",
		},
		App: App{
			Name:        "Hello World",
			Version:     "1.0.0",
			Environment: "development",
		},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: "http://localhost:5173",
			RateLimit:      20,
			RateBurst:      40,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads path as a YAML overlay on the defaults, without
// consulting the environment.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// loadEnv overrides fields whose environment variable is set. Unset
// variables leave the current value alone; a set value that does not parse
// is an error.
func (c *Config) loadEnv() error {
	// StrictDecode reports "nothing set" as ErrInvalidTarget.
	if err := envdecode.StrictDecode(c); err != nil && !stderrors.Is(err, envdecode.ErrInvalidTarget) {
		return fmt.Errorf("failed to decode environment: %w", err)
	}
	return nil
}

// Validate checks the values the binaries depend on.
func (c *Config) Validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.RetryAttempts < 0 {
		return fmt.Errorf("api retry attempts must not be negative, got %d", c.API.RetryAttempts)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q must be an absolute URL", c.API.BaseURL)
	}
	if c.Mock.Prefix != "" && !strings.HasPrefix(c.Mock.Prefix, "/") {
		return fmt.Errorf("mock prefix %q must start with /", c.Mock.Prefix)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

// Origins splits Server.AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
