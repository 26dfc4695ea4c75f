// Package config loads screen-patrol configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (SCREEN_PATROL_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .screen-patrol.yaml in current directory
//  2. ~/.config/screen-patrol/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timvw/screen-patrol/internal/field"
	"github.com/timvw/screen-patrol/internal/screen"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCREEN_PATROL_"

// Config holds all screen-patrol configuration.
type Config struct {
	// Reconstruction
	LabelPattern string `yaml:"label_pattern"`
	Filler       string `yaml:"filler"`
	KeepTrailing bool   `yaml:"keep_trailing"` // Close the field after the last marker instead of dropping it

	// Session
	Session     string `yaml:"session"` // "s3270" or "replay"
	S3270Path   string `yaml:"s3270_path"`
	Host        string `yaml:"host"`
	ScreensFile string `yaml:"screens_file"`

	// LLM label fallback
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int64  `yaml:"max_tokens"`
	LLMLabels bool   `yaml:"llm_labels"`

	// Scan and cache
	Parallel int    `yaml:"parallel"`
	CacheTTL string `yaml:"cache_ttl"` // Go duration string, e.g. "5m"

	// Presentation
	LogLevel string `yaml:"log_level"` // debug, info, warn, error; empty disables logging
	Theme    string `yaml:"theme"`     // "dark" (default) or "light"

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	CacheTTLDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		LabelPattern: screen.DefaultLabelPattern,
		Filler:       field.DefaultFiller,
		Session:      "s3270",
		S3270Path:    "/usr/bin/s3270",
		Host:         "10.3.10.3",
		ScreensFile:  "capture.3270session.yaml",
		Provider:     "anthropic",
		MaxTokens:    1024,
		Parallel:     4,
		CacheTTL:     "5m",
		Theme:        "dark",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	var err error
	cfg.CacheTTLDuration, err = parseDurationOrDisable(cfg.CacheTTL, 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL %q: %w", cfg.CacheTTL, err)
	}
	if cfg.Parallel < 1 {
		return nil, fmt.Errorf("parallel must be at least 1, got %d", cfg.Parallel)
	}
	if len([]rune(cfg.Filler)) != 1 {
		return nil, fmt.Errorf("filler must be a single character, got %q", cfg.Filler)
	}

	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	if data, err := os.ReadFile(".screen-patrol.yaml"); err == nil {
		return ".screen-patrol.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "screen-patrol", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	setString(&cfg.LabelPattern, file.LabelPattern)
	setString(&cfg.Filler, file.Filler)
	setString(&cfg.Session, file.Session)
	setString(&cfg.S3270Path, file.S3270Path)
	setString(&cfg.Host, file.Host)
	setString(&cfg.ScreensFile, file.ScreensFile)
	setString(&cfg.Provider, file.Provider)
	setString(&cfg.Model, file.Model)
	setString(&cfg.BaseURL, file.BaseURL)
	setString(&cfg.APIKey, file.APIKey)
	setString(&cfg.CacheTTL, file.CacheTTL)
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.Theme, file.Theme)
	setString(&cfg.OTELEndpoint, file.OTELEndpoint)
	setString(&cfg.OTELHeaders, file.OTELHeaders)
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Parallel > 0 {
		cfg.Parallel = file.Parallel
	}
	if file.KeepTrailing {
		cfg.KeepTrailing = true
	}
	if file.LLMLabels {
		cfg.LLMLabels = true
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	setString(&cfg.LabelPattern, os.Getenv(EnvPrefix+"LABEL_PATTERN"))
	setString(&cfg.Filler, os.Getenv(EnvPrefix+"FILLER"))
	setString(&cfg.Session, os.Getenv(EnvPrefix+"SESSION"))
	setString(&cfg.S3270Path, os.Getenv(EnvPrefix+"S3270_PATH"))
	setString(&cfg.Host, os.Getenv(EnvPrefix+"HOST"))
	setString(&cfg.ScreensFile, os.Getenv(EnvPrefix+"SCREENS_FILE"))
	setString(&cfg.Provider, os.Getenv(EnvPrefix+"PROVIDER"))
	setString(&cfg.Model, os.Getenv(EnvPrefix+"MODEL"))
	setString(&cfg.BaseURL, os.Getenv(EnvPrefix+"BASE_URL"))
	setString(&cfg.APIKey, os.Getenv(EnvPrefix+"API_KEY"))
	setString(&cfg.CacheTTL, os.Getenv(EnvPrefix+"CACHE_TTL"))
	setString(&cfg.LogLevel, os.Getenv(EnvPrefix+"LOG_LEVEL"))
	setString(&cfg.Theme, os.Getenv(EnvPrefix+"THEME"))
	setString(&cfg.OTELEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	setString(&cfg.OTELHeaders, os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))

	if v := os.Getenv(EnvPrefix + "MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_TOKENS %q: %w", EnvPrefix, v, err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv(EnvPrefix + "PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPARALLEL %q: %w", EnvPrefix, v, err)
		}
		cfg.Parallel = n
	}
	if v := os.Getenv(EnvPrefix + "LLM_LABELS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sLLM_LABELS %q: %w", EnvPrefix, v, err)
		}
		cfg.LLMLabels = b
	}
	if v := os.Getenv(EnvPrefix + "KEEP_TRAILING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sKEEP_TRAILING %q: %w", EnvPrefix, v, err)
		}
		cfg.KeepTrailing = b
	}

	// API key fallbacks
	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.APIKey == "" {
				cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
			}
		}
	}

	// Azure base URL fallback
	if cfg.BaseURL == "" {
		if rn := os.Getenv("AZURE_RESOURCE_NAME"); rn != "" {
			switch cfg.Provider {
			case "anthropic":
				cfg.BaseURL = fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", rn)
			case "openai":
				cfg.BaseURL = fmt.Sprintf("https://%s.openai.azure.com/openai/v1", rn)
			}
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}
