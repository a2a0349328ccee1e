package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	EnvConfigFile, EnvPort, EnvWeatherProvider, EnvOpenWeatherAPIKey,
	EnvWeatherAPIKey, EnvProviderTimeout, EnvForecastHorizon,
	EnvForecastCacheTTL, EnvForecastCacheMaxEntries, EnvModelPath,
	EnvModelReloadInterval, EnvAirportsFile, EnvTZName, EnvShutdownTimeout,
	EnvLogLevel,
}

// clearEnv blanks every key so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.toml"))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openweather", cfg.WeatherProvider)
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 120*time.Hour, cfg.ForecastHorizon)
	assert.Zero(t, cfg.ForecastCacheTTL)
	assert.Equal(t, 256, cfg.ForecastCacheMaxEntries)
	assert.Equal(t, "flight_delay_model.txt", cfg.ModelPath)
	assert.Equal(t, time.Minute, cfg.ModelReloadInterval)
	assert.Empty(t, cfg.AirportsFile)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9090"
weather_provider = "openmeteo"
forecast_cache_ttl = "10m"
tz_name = "America/Sao_Paulo"
log_level = "debug"
`), 0o600))
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvPort, "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "openmeteo", cfg.WeatherProvider)
	assert.Equal(t, 10*time.Minute, cfg.ForecastCacheTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		EnvPort:                    "http",
		EnvWeatherProvider:         "darksky",
		EnvProviderTimeout:         "soon",
		EnvForecastHorizon:         "-1h",
		EnvForecastCacheMaxEntries: "many",
		EnvTZName:                  "Mars/Olympus",
		EnvLogLevel:                "loud",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \n"), 0o600))
	t.Setenv(EnvConfigFile, path)

	_, err := Load()
	assert.Error(t, err)
}
