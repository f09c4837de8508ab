// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the configuration for the HTTP API and the engine's runtime
// thresholds.
type Config struct {
	ListenAddr   string // HTTP listen address (default ":8080")
	ArtifactsDir string // working directory root holding manifest.json/catalog.json (default ".")
	SnapshotsDir string // path, relative to ArtifactsDir, holding labeled snapshot directories (default "samples/adventureworks-batches")
	LogLevel     string // log level: debug, info, warn, error (default "info")
	Env          string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Broad-checks thresholds, overridable via OBS_* env vars.
	VolumeThresholdPct                 float64
	FreshnessThresholdMinutes          int
	ReferenceFreshnessThresholdMinutes int

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

const (
	defaultVolumeThresholdPct                 = 25.0
	defaultFreshnessThresholdMinutes          = 180
	defaultReferenceFreshnessThresholdMinutes = 7 * 24 * 60
)

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
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

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// tomlFile mirrors the subset of Config keys accepted from obs.toml.
type tomlFile struct {
	ListenAddr                         string   `toml:"listen_addr"`
	ArtifactsDir                       string   `toml:"artifacts_dir"`
	SnapshotsDir                       string   `toml:"snapshots_dir"`
	LogLevel                           string   `toml:"log_level"`
	Env                                string   `toml:"env"`
	RateLimitRPS                       float64  `toml:"rate_limit_rps"`
	RateLimitBurst                     int      `toml:"rate_limit_burst"`
	CORSAllowedOrigins                 []string `toml:"cors_allowed_origins"`
	VolumeThresholdPct                 float64  `toml:"volume_threshold_pct"`
	FreshnessThresholdMinutes          int      `toml:"freshness_threshold_minutes"`
	ReferenceFreshnessThresholdMinutes int      `toml:"reference_freshness_threshold_minutes"`
}

// LoadFromEnv loads configuration from environment variables, optionally
// layering an obs.toml file underneath (env vars always take precedence —
// the same rule LoadDotEnv applies to .env files).
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		ArtifactsDir: os.Getenv("ARTIFACTS_DIR"),
		SnapshotsDir: os.Getenv("SNAPSHOTS_DIR"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		Env:          os.Getenv("ENV"),
	}

	if tf, err := loadTOMLFile("obs.toml"); err == nil && tf != nil {
		applyTOMLDefaults(cfg, tf)
	} else if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("obs.toml: %v", err))
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	cfg.VolumeThresholdPct = parseFloatEnvGuarded("OBS_VOLUME_THRESHOLD_PCT", cfg.VolumeThresholdPct, defaultVolumeThresholdPct)
	cfg.FreshnessThresholdMinutes = parseIntEnvGuarded("OBS_FRESHNESS_THRESHOLD_MINUTES", cfg.FreshnessThresholdMinutes, defaultFreshnessThresholdMinutes)
	cfg.ReferenceFreshnessThresholdMinutes = parseIntEnvGuarded("OBS_REFERENCE_FRESHNESS_THRESHOLD_MINUTES", cfg.ReferenceFreshnessThresholdMinutes, defaultReferenceFreshnessThresholdMinutes)

	// Defaults
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = "."
	}
	if cfg.SnapshotsDir == "" {
		cfg.SnapshotsDir = "samples/adventureworks-batches"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.VolumeThresholdPct <= 0 {
		cfg.VolumeThresholdPct = defaultVolumeThresholdPct
	}
	if cfg.FreshnessThresholdMinutes <= 0 {
		cfg.FreshnessThresholdMinutes = defaultFreshnessThresholdMinutes
	}
	if cfg.ReferenceFreshnessThresholdMinutes <= 0 {
		cfg.ReferenceFreshnessThresholdMinutes = defaultReferenceFreshnessThresholdMinutes
	}

	if cfg.IsProduction() && len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		cfg.Warnings = append(cfg.Warnings, "CORS wildcard (*) is in effect in production")
	}

	return cfg, nil
}

func applyTOMLDefaults(cfg *Config, tf *tomlFile) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = tf.ListenAddr
	}
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = tf.ArtifactsDir
	}
	if cfg.SnapshotsDir == "" {
		cfg.SnapshotsDir = tf.SnapshotsDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = tf.LogLevel
	}
	if cfg.Env == "" {
		cfg.Env = tf.Env
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = tf.RateLimitRPS
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = tf.RateLimitBurst
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = tf.CORSAllowedOrigins
	}
	if cfg.VolumeThresholdPct == 0 {
		cfg.VolumeThresholdPct = tf.VolumeThresholdPct
	}
	if cfg.FreshnessThresholdMinutes == 0 {
		cfg.FreshnessThresholdMinutes = tf.FreshnessThresholdMinutes
	}
	if cfg.ReferenceFreshnessThresholdMinutes == 0 {
		cfg.ReferenceFreshnessThresholdMinutes = tf.ReferenceFreshnessThresholdMinutes
	}
}

func loadTOMLFile(path string) (*tomlFile, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var tf tomlFile
	if _, err := toml.DecodeFile(path, &tf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &tf, nil
}

// parseFloatEnvGuarded parses a float env var. When unset it keeps current
// (the obs.toml value) if non-zero, else returns fallback; when set but
// unparseable, non-finite, or negative it returns fallback.
func parseFloatEnvGuarded(key string, current, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		if current != 0 {
			return current
		}
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return fallback
	}
	return f
}

// parseIntEnvGuarded parses an int env var. When unset it keeps current
// (the obs.toml value) if non-zero, else returns fallback; when set but
// unparseable or negative it returns fallback.
func parseIntEnvGuarded(key string, current, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		if current != 0 {
			return current
		}
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
