// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Ranking strategies for the ranking view.
const (
	RankingFromCache = "cache"
	RankingFromQuery = "query"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Ingest IngestConfig
	View   ViewConfig
	Limits LimitsConfig
	Cover  CoverConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// Device selects the page size options offered: "pc" or "mobile".
	Device string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath holds the document store and the preferences database.
	BasePath string
}

// ServerConfig holds the local render API configuration.
type ServerConfig struct {
	Port         string        // default: 8420
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 0, the event stream is long-lived
	IdleTimeout  time.Duration // default: 60s

	AllowedOrigins     []string // CORS origins; empty allows any
	MutationsPerSecond float64  // per client address
}

// IngestConfig holds settings for the remote ingestion function.
type IngestConfig struct {
	FunctionURL   string
	AllowedHost   string // submitted URLs must contain this host
	Timeout       time.Duration
	RatePerSecond float64
}

// ViewConfig controls how paginated views resolve their orderings.
type ViewConfig struct {
	// RankingStrategy is "cache" (derive from the works collection) or "query" (top-N range query).
	RankingStrategy string
	RankingLimit    int
}

// LimitsConfig holds per-owner caps.
type LimitsConfig struct {
	MaxLists        int
	MaxItemsPerList int
}

// CoverConfig controls cover placeholder generation for mosaic mode.
type CoverConfig struct {
	RatePerSecond float64 // per cover host
	Timeout       time.Duration
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("shareboard", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	device := fs.String("device", "", "Device class for page size options: pc or mobile (default: pc)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local data")

	serverPort := fs.String("port", "", "Render API port (default: 8420)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	ingestURL := fs.String("ingest-url", "", "URL of the ingestion function")
	ingestHost := fs.String("ingest-host", "", "Host that submitted work URLs must contain (default: dlsite.com)")
	ingestTimeout := fs.String("ingest-timeout", "", "Ingestion request timeout (default: 20s)")

	rankingStrategy := fs.String("ranking-strategy", "", "Ranking view source: cache or query (default: cache)")
	rankingLimit := fs.String("ranking-limit", "", "Top-N size for the query ranking strategy (default: 20)")

	maxLists := fs.String("max-lists", "", "Maximum lists per owner (default: 10)")
	maxItems := fs.String("max-list-items", "", "Maximum items per list (default: 100)")

	coverTimeout := fs.String("cover-timeout", "", "Cover download timeout (default: 15s)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			Device:      getConfigValue(*device, "DEVICE_CLASS", "pc"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8420"),
			AllowedOrigins:     splitList(getConfigValue("", "CORS_ALLOWED_ORIGINS", "")),
			MutationsPerSecond: getFloatConfigValue("", "MUTATIONS_PER_SECOND", 5),
		},
		Ingest: IngestConfig{
			FunctionURL:   getConfigValue(*ingestURL, "INGEST_URL", ""),
			AllowedHost:   getConfigValue(*ingestHost, "INGEST_ALLOWED_HOST", "dlsite.com"),
			RatePerSecond: getFloatConfigValue("", "INGEST_RATE_PER_SECOND", 0.5),
		},
		View: ViewConfig{
			RankingStrategy: getConfigValue(*rankingStrategy, "RANKING_STRATEGY", RankingFromCache),
			RankingLimit:    getIntConfigValue(*rankingLimit, "RANKING_LIMIT", 20),
		},
		Limits: LimitsConfig{
			MaxLists:        getIntConfigValue(*maxLists, "MAX_LISTS", 10),
			MaxItemsPerList: getIntConfigValue(*maxItems, "MAX_LIST_ITEMS", 100),
		},
		Cover: CoverConfig{
			RatePerSecond: getFloatConfigValue("", "COVER_RATE_PER_SECOND", 4),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Ingest.Timeout, err = getDurationConfigValue(*ingestTimeout, "INGEST_TIMEOUT", "20s"); err != nil {
		return nil, err
	}

	if cfg.Cover.Timeout, err = getDurationConfigValue(*coverTimeout, "COVER_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.App.Device {
	case "pc", "mobile":
	default:
		return fmt.Errorf("invalid device class: %s (must be pc or mobile)", c.App.Device)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.View.RankingStrategy != RankingFromCache && c.View.RankingStrategy != RankingFromQuery {
		return fmt.Errorf("invalid ranking strategy: %s (must be cache or query)", c.View.RankingStrategy)
	}
	if c.View.RankingLimit < 1 {
		return fmt.Errorf("ranking limit must be positive, got %d", c.View.RankingLimit)
	}

	if c.Limits.MaxLists < 1 || c.Limits.MaxItemsPerList < 1 {
		return errors.New("list limits must be positive")
	}

	return nil
}

// DocumentStorePath is the directory of the local document store.
func (c *Config) DocumentStorePath() string {
	return filepath.Join(c.Data.BasePath, "docs")
}

// PreferencesPath is the file of the session-local preferences database.
func (c *Config) PreferencesPath() string {
	return filepath.Join(c.Data.BasePath, "preferences.db")
}

// CoverCachePath is the directory of computed cover placeholders.
func (c *Config) CoverCachePath() string {
	return filepath.Join(c.Data.BasePath, "placeholders")
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, ".shareboard"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
