package config

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string
	StorePath      string
	DBPath         string
	WindowSize     int
	LogMode        string
	APIToken       string
	RefreshCron    string
	AuditRetention time.Duration
	RateLimit      int // requests per minute per client
	Timezone       string
	CORSOrigins    []string
	OllamaURL      string // empty disables the chat endpoint
	OllamaModel    string
}

// fileConfig is the optional YAML overlay named by MOOD_CONFIG_FILE
type fileConfig struct {
	Port           string `yaml:"port"`
	StorePath      string `yaml:"store_path"`
	DBPath         string `yaml:"db_path"`
	WindowSize     int    `yaml:"window_size"`
	LogMode        string `yaml:"log_mode"`
	APIToken       string `yaml:"api_token"`
	RefreshCron    string `yaml:"refresh_cron"`
	AuditRetention string `yaml:"audit_retention"`
	RateLimit      int    `yaml:"rate_limit"`
	Timezone       string `yaml:"timezone"`
	CORSOrigins    string `yaml:"cors_origins"`
	OllamaURL      string `yaml:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model"`
}

func defaults() fileConfig {
	return fileConfig{
		Port:           "8000",
		StorePath:      "entries.json",
		DBPath:         "mood.db",
		WindowSize:     7,
		LogMode:        "dev",
		RefreshCron:    "0 3 * * *",
		AuditRetention: "720h",
		RateLimit:      60,
		Timezone:       "UTC",
		CORSOrigins:    "*",
		OllamaURL:      "http://localhost:11434",
		OllamaModel:    "gemma3:27b",
	}
}

// Load reads defaults, then the YAML file if MOOD_CONFIG_FILE is set, then
// environment variables. Later sources win.
func Load() (*Config, error) {
	fc := defaults()

	if path := os.Getenv("MOOD_CONFIG_FILE"); path != "" {
		if err := fc.overlayFile(path); err != nil {
			return nil, err
		}
	}

	fc.Port = getEnv("MOOD_PORT", fc.Port)
	fc.StorePath = getEnv("MOOD_STORE_PATH", fc.StorePath)
	fc.DBPath = getEnv("MOOD_DB_PATH", fc.DBPath)
	fc.LogMode = getEnv("MOOD_LOG_MODE", fc.LogMode)
	fc.APIToken = getEnv("MOOD_API_TOKEN", fc.APIToken)
	fc.RefreshCron = getEnv("MOOD_REFRESH_CRON", fc.RefreshCron)
	fc.AuditRetention = getEnv("MOOD_AUDIT_RETENTION", fc.AuditRetention)
	fc.Timezone = getEnv("MOOD_TIMEZONE", fc.Timezone)
	fc.CORSOrigins = getEnv("MOOD_CORS_ORIGINS", fc.CORSOrigins)
	fc.OllamaModel = getEnv("MOOD_OLLAMA_MODEL", fc.OllamaModel)
	if val, ok := os.LookupEnv("MOOD_OLLAMA_URL"); ok {
		// set but empty turns chat off
		fc.OllamaURL = strings.TrimSpace(val)
	}

	var err error
	if fc.WindowSize, err = getEnvInt("MOOD_WINDOW_SIZE", fc.WindowSize); err != nil {
		return nil, err
	}
	if fc.RateLimit, err = getEnvInt("MOOD_RATE_LIMIT", fc.RateLimit); err != nil {
		return nil, err
	}

	retention, err := time.ParseDuration(fc.AuditRetention)
	if err != nil {
		return nil, fmt.Errorf("MOOD_AUDIT_RETENTION: %w", err)
	}

	cfg := &Config{
		Port:           fc.Port,
		StorePath:      fc.StorePath,
		DBPath:         fc.DBPath,
		WindowSize:     fc.WindowSize,
		LogMode:        fc.LogMode,
		APIToken:       fc.APIToken,
		RefreshCron:    fc.RefreshCron,
		AuditRetention: retention,
		RateLimit:      fc.RateLimit,
		Timezone:       fc.Timezone,
		CORSOrigins:    splitList(fc.CORSOrigins),
		OllamaURL:      fc.OllamaURL,
		OllamaModel:    fc.OllamaModel,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (fc *fileConfig) overlayFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var overlay fileConfig
	if err := yaml.Unmarshal(content, &overlay); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&fc.Port, overlay.Port)
	setString(&fc.StorePath, overlay.StorePath)
	setString(&fc.DBPath, overlay.DBPath)
	setString(&fc.LogMode, overlay.LogMode)
	setString(&fc.APIToken, overlay.APIToken)
	setString(&fc.RefreshCron, overlay.RefreshCron)
	setString(&fc.AuditRetention, overlay.AuditRetention)
	setString(&fc.Timezone, overlay.Timezone)
	setString(&fc.CORSOrigins, overlay.CORSOrigins)
	setString(&fc.OllamaURL, overlay.OllamaURL)
	setString(&fc.OllamaModel, overlay.OllamaModel)
	if overlay.WindowSize != 0 {
		fc.WindowSize = overlay.WindowSize
	}
	if overlay.RateLimit != 0 {
		fc.RateLimit = overlay.RateLimit
	}
	return nil
}

func (c *Config) validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("MOOD_STORE_PATH is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("MOOD_DB_PATH is required")
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("MOOD_WINDOW_SIZE must be at least 1, got %d", c.WindowSize)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("MOOD_RATE_LIMIT must be at least 1, got %d", c.RateLimit)
	}
	if c.AuditRetention <= 0 {
		return fmt.Errorf("MOOD_AUDIT_RETENTION must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("MOOD_TIMEZONE: %w", err)
	}
	if c.ChatEnabled() && c.OllamaModel == "" {
		return fmt.Errorf("MOOD_OLLAMA_MODEL is required when MOOD_OLLAMA_URL is set")
	}
	return nil
}

// ChatEnabled reports whether the companion chat has a model server
func (c *Config) ChatEnabled() bool {
	return c.OllamaURL != ""
}

// AuthEnabled reports whether API requests need a bearer token
func (c *Config) AuthEnabled() bool {
	return c.APIToken != ""
}

// TokenValid checks a bearer token against the configured one
func (c *Config) TokenValid(token string) bool {
	if c.APIToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.APIToken)) == 1
}

// Location returns the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

// splitList parses a comma separated list, dropping blanks
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
