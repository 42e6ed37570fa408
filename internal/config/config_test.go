package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "APP_ENV", "ORS_API_KEY", "OPENWEATHER_API_KEY", "ORS_BASE_URL",
		"OPENWEATHER_BASE_URL", "ROUTE_TIMEOUT", "WEATHER_TIMEOUT", "PLANNER_CONCURRENCY",
		"OTEL_ENABLED", "OTEL_TRACES_SAMPLER_ARG", "OPS_JWT_SIGNING_KEY", "PUBSUB_PROJECT_ID", "DB_HOST", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg := config.FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, config.DefaultORSBaseURL, cfg.ORSBaseURL)
	assert.Equal(t, config.DefaultOpenWeatherBaseURL, cfg.OpenWeatherURL)
	assert.Equal(t, 15*time.Second, cfg.RouteTimeout)
	assert.Equal(t, 10*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 4, cfg.PlannerConcurrency)
	assert.False(t, cfg.OTelEnabled)
	assert.InDelta(t, 1.0, cfg.OTelSampleRatio, 1e-9)
	assert.False(t, cfg.PubSubEnabled())
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ORS_API_KEY", "ors-key")
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")
	t.Setenv("ROUTE_TIMEOUT", "20s")
	t.Setenv("WEATHER_TIMEOUT", "bogus")
	t.Setenv("PLANNER_CONCURRENCY", "8")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("PUBSUB_PROJECT_ID", "ecoroute-prod")
	t.Setenv("PUBSUB_TOPIC", "plans")

	cfg := config.FromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 20*time.Second, cfg.RouteTimeout)
	assert.Equal(t, 10*time.Second, cfg.WeatherTimeout, "invalid durations fall back")
	assert.Equal(t, 8, cfg.PlannerConcurrency)
	assert.True(t, cfg.OTelEnabled)
	assert.InDelta(t, 0.25, cfg.OTelSampleRatio, 1e-9)
	assert.True(t, cfg.PubSubEnabled())
	assert.Equal(t, "plans", cfg.PubSubTopic)
	assert.NoError(t, cfg.RequireProviderKeys())
}

func TestRequireProviderKeys(t *testing.T) {
	err := config.Config{ORSAPIKey: "x"}.RequireProviderKeys()
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "OPENWEATHER_API_KEY")
	assert.NotContains(t, err.Error(), "ORS_API_KEY")

	err = config.Config{}.RequireProviderKeys()
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "ORS_API_KEY")
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ORS_API_KEY=from-file\nAPP_PORT=7070\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv never overrides variables that are already set.
	t.Setenv("APP_PORT", "6060")
	t.Setenv("ORS_API_KEY", "")
	require.NoError(t, os.Unsetenv("ORS_API_KEY"))

	cfg := config.Load()

	assert.Equal(t, "from-file", cfg.ORSAPIKey)
	assert.Equal(t, "6060", cfg.Port)
}
