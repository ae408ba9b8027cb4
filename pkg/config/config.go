// Package config loads the server configuration from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
)

// EnvPrefix is prepended to every variable name. Unprefixed names are
// accepted as a fallback, so DATABASE_URL works as well as
// PARKMCP_DATABASE_URL.
const EnvPrefix = "parkmcp"

// ErrMissingDatabaseURL is returned by Validate when no database is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// FileConfig is the structure of the optional YAML file.
type FileConfig struct {
	OverpassURL string                 `yaml:"overpass_url"`
	SearchURL   string                 `yaml:"search_url"`
	SpeechURL   string                 `yaml:"speech_url"`
	UserAgent   string                 `yaml:"user_agent"`
	LogLevel    string                 `yaml:"log_level"`
	RateLimits  map[string]fetch.Limit `yaml:"rate_limits"`
}

// Config is the merged configuration. Environment variables override file
// values, which override built-in defaults.
type Config struct {
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	DatabaseURL  string `envconfig:"DATABASE_URL"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	SearchAPIKey string `envconfig:"SEARCH_API_KEY"`

	// Empty endpoints select each client's public default.
	OverpassURL string `envconfig:"OVERPASS_URL"`
	SearchURL   string `envconfig:"SEARCH_URL"`
	SpeechURL   string `envconfig:"SPEECH_URL"`

	UserAgent         string        `envconfig:"USER_AGENT"`
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// RateLimits comes from the file only; services it omits keep
	// fetch.DefaultLimits.
	RateLimits map[string]fetch.Limit `ignored:"true"`
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports configuration that prevents startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// Warnings lists optional settings that are missing. Tools depending on
// them fail per call instead of at startup.
func (c *Config) Warnings() []string {
	var out []string
	if c.OpenAIAPIKey == "" {
		out = append(out, "OPENAI_API_KEY is not set; speechToText and textToSpeech will fail")
	}
	if c.SearchAPIKey == "" {
		out = append(out, "SEARCH_API_KEY is not set; saveParkingInfo will fail")
	}
	return out
}

// Limits merges the configured rate limits over fetch.DefaultLimits.
func (c *Config) Limits() map[string]fetch.Limit {
	limits := fetch.DefaultLimits()
	for service, l := range c.RateLimits {
		limits[service] = l
	}
	return limits
}

// Load reads .env (if present), then the environment to find the config
// file, then the file, then the environment again for overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var initialCfg Config
	if err := envconfig.Process(EnvPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	finalCfg := initialCfg
	if initialCfg.ConfigFilePath != "" {
		fileCfg, err := readFile(initialCfg.ConfigFilePath)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded configuration from file", "path", initialCfg.ConfigFilePath)
		finalCfg.applyFile(fileCfg)
	}

	if err := envconfig.Process(EnvPrefix, &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}

	if finalCfg.UserAgent == "" {
		finalCfg.UserAgent = fetch.DefaultUserAgent
	}
	if finalCfg.LogLevel == "" {
		finalCfg.LogLevel = "info"
	}

	return &finalCfg, nil
}

func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
	}
	return &fileCfg, nil
}

func (c *Config) applyFile(f *FileConfig) {
	if f.OverpassURL != "" {
		c.OverpassURL = f.OverpassURL
	}
	if f.SearchURL != "" {
		c.SearchURL = f.SearchURL
	}
	if f.SpeechURL != "" {
		c.SpeechURL = f.SpeechURL
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	c.RateLimits = f.RateLimits
}
