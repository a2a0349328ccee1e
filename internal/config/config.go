package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/i474232898/flight-delay-prediction/internal/weather/providers"
)

const (
	DefaultConfigFile = "config.toml"

	EnvConfigFile              = "CONFIG_FILE"
	EnvPort                    = "PORT"
	EnvWeatherProvider         = "WEATHER_PROVIDER"
	EnvOpenWeatherAPIKey       = "OPENWEATHER_API_KEY"
	EnvWeatherAPIKey           = "WEATHERAPI_API_KEY"
	EnvProviderTimeout         = "PROVIDER_TIMEOUT"
	EnvForecastHorizon         = "FORECAST_HORIZON"
	EnvForecastCacheTTL        = "FORECAST_CACHE_TTL"
	EnvForecastCacheMaxEntries = "FORECAST_CACHE_MAX_ENTRIES"
	EnvModelPath               = "MODEL_PATH"
	EnvModelReloadInterval     = "MODEL_RELOAD_INTERVAL"
	EnvAirportsFile            = "AIRPORTS_FILE"
	EnvTZName                  = "TZ_NAME"
	EnvShutdownTimeout         = "SHUTDOWN_TIMEOUT"
	EnvLogLevel                = "LOG_LEVEL"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid config")

var defaults = map[string]string{
	EnvPort:                    "8080",
	EnvWeatherProvider:         providers.OpenWeather,
	EnvProviderTimeout:         "5s",
	EnvForecastHorizon:         "120h",
	EnvForecastCacheTTL:        "0",
	EnvForecastCacheMaxEntries: "256",
	EnvModelPath:               "flight_delay_model.txt",
	EnvModelReloadInterval:     "1m",
	EnvTZName:                  "Local",
	EnvShutdownTimeout:         "10s",
	EnvLogLevel:                "info",
}

type AppConfig struct {
	Port string

	WeatherProvider   string
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	ProviderTimeout   time.Duration
	ForecastHorizon   time.Duration

	// Forecast cache; a zero TTL disables it.
	ForecastCacheTTL        time.Duration
	ForecastCacheMaxEntries int

	ModelPath           string
	ModelReloadInterval time.Duration

	// AirportsFile replaces the embedded airport dataset when set.
	AirportsFile string

	// Location is used for departure times without an offset.
	Location        *time.Location
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
}

// fileConfig mirrors the env keys in config.toml.
type fileConfig struct {
	Port                    string `toml:"port"`
	WeatherProvider         string `toml:"weather_provider"`
	OpenWeatherAPIKey       string `toml:"openweather_api_key"`
	WeatherAPIKey           string `toml:"weatherapi_api_key"`
	ProviderTimeout         string `toml:"provider_timeout"`
	ForecastHorizon         string `toml:"forecast_horizon"`
	ForecastCacheTTL        string `toml:"forecast_cache_ttl"`
	ForecastCacheMaxEntries string `toml:"forecast_cache_max_entries"`
	ModelPath               string `toml:"model_path"`
	ModelReloadInterval     string `toml:"model_reload_interval"`
	AirportsFile            string `toml:"airports_file"`
	TZName                  string `toml:"tz_name"`
	ShutdownTimeout         string `toml:"shutdown_timeout"`
	LogLevel                string `toml:"log_level"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		EnvPort:                    f.Port,
		EnvWeatherProvider:         f.WeatherProvider,
		EnvOpenWeatherAPIKey:       f.OpenWeatherAPIKey,
		EnvWeatherAPIKey:           f.WeatherAPIKey,
		EnvProviderTimeout:         f.ProviderTimeout,
		EnvForecastHorizon:         f.ForecastHorizon,
		EnvForecastCacheTTL:        f.ForecastCacheTTL,
		EnvForecastCacheMaxEntries: f.ForecastCacheMaxEntries,
		EnvModelPath:               f.ModelPath,
		EnvModelReloadInterval:     f.ModelReloadInterval,
		EnvAirportsFile:            f.AirportsFile,
		EnvTZName:                  f.TZName,
		EnvShutdownTimeout:         f.ShutdownTimeout,
		EnvLogLevel:                f.LogLevel,
	}
}

// source resolves a key from the environment, then the config file, then the
// built-in default.
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.file[key]); v != "" {
		return v
	}
	return defaults[key]
}

func (s source) duration(key string) (time.Duration, error) {
	raw := s.get(key)
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, key)
	}
	return d, nil
}

func (s source) integer(key string) (int, error) {
	n, err := strconv.Atoi(s.get(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return n, nil
}

// Load reads configuration from .env, an optional TOML file and the
// environment, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = DefaultConfigFile
	}

	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	return build(source{file: file.values()})
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func build(src source) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:              src.get(EnvPort),
		WeatherProvider:   strings.ToLower(src.get(EnvWeatherProvider)),
		OpenWeatherAPIKey: src.get(EnvOpenWeatherAPIKey),
		WeatherAPIKey:     src.get(EnvWeatherAPIKey),
		ModelPath:         src.get(EnvModelPath),
		AirportsFile:      src.get(EnvAirportsFile),
	}

	if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		return nil, fmt.Errorf("%w: %s %q", ErrInvalidConfig, EnvPort, cfg.Port)
	}

	switch cfg.WeatherProvider {
	case providers.OpenWeather, providers.OpenMeteo, providers.WeatherAPI:
	default:
		return nil, fmt.Errorf("%w: %s %q", ErrInvalidConfig, EnvWeatherProvider, cfg.WeatherProvider)
	}

	var err error
	if cfg.ProviderTimeout, err = src.duration(EnvProviderTimeout); err != nil {
		return nil, err
	}
	if cfg.ForecastHorizon, err = src.duration(EnvForecastHorizon); err != nil {
		return nil, err
	}
	if cfg.ForecastCacheTTL, err = src.duration(EnvForecastCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ForecastCacheMaxEntries, err = src.integer(EnvForecastCacheMaxEntries); err != nil {
		return nil, err
	}
	if cfg.ModelReloadInterval, err = src.duration(EnvModelReloadInterval); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = src.duration(EnvShutdownTimeout); err != nil {
		return nil, err
	}

	if cfg.Location, err = loadLocation(src.get(EnvTZName)); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(src.get(EnvLogLevel))); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvLogLevel, err)
	}

	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvTZName, err)
	}
	return loc, nil
}
