package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearObsEnv(t *testing.T) {
	for _, k := range []string{
		"LISTEN_ADDR", "ARTIFACTS_DIR", "LOG_LEVEL", "ENV",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"OBS_VOLUME_THRESHOLD_PCT", "OBS_FRESHNESS_THRESHOLD_MINUTES",
		"OBS_REFERENCE_FRESHNESS_THRESHOLD_MINUTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearObsEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ".", cfg.ArtifactsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 25.0, cfg.VolumeThresholdPct)
	assert.Equal(t, 180, cfg.FreshnessThresholdMinutes)
	assert.Equal(t, 10080, cfg.ReferenceFreshnessThresholdMinutes)
}

func TestLoadFromEnv_ThresholdOverrides(t *testing.T) {
	clearObsEnv(t)
	t.Setenv("OBS_VOLUME_THRESHOLD_PCT", "40")
	t.Setenv("OBS_FRESHNESS_THRESHOLD_MINUTES", "60")
	t.Setenv("OBS_REFERENCE_FRESHNESS_THRESHOLD_MINUTES", "1440")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 40.0, cfg.VolumeThresholdPct)
	assert.Equal(t, 60, cfg.FreshnessThresholdMinutes)
	assert.Equal(t, 1440, cfg.ReferenceFreshnessThresholdMinutes)
}

func TestLoadFromEnv_NonFiniteOrNegativeFallsBackToDefault(t *testing.T) {
	clearObsEnv(t)
	t.Setenv("OBS_VOLUME_THRESHOLD_PCT", "-5")
	t.Setenv("OBS_FRESHNESS_THRESHOLD_MINUTES", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.VolumeThresholdPct)
	assert.Equal(t, 180, cfg.FreshnessThresholdMinutes)
}

func TestLoadFromEnv_CORSOrigins(t *testing.T) {
	clearObsEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "warn"
	assert.Equal(t, "WARN", cfg.SlogLevel().String())
	cfg.LogLevel = ""
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{Env: "production"}
	assert.True(t, cfg.IsProduction())
	cfg.Env = "Development"
	assert.False(t, cfg.IsProduction())
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_KEY=test_value\n"), 0644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "test_value", os.Getenv("TEST_KEY"))
	_ = os.Unsetenv("TEST_KEY")
}

func TestLoadDotEnv_SkipsComments(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# comment\nTEST_COMMENT_KEY=value\n"), 0644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "value", os.Getenv("TEST_COMMENT_KEY"))
	_ = os.Unsetenv("TEST_COMMENT_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("TEST_PRECEDENCE_KEY"))
}
