package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/flight-delay-prediction/internal/airports"
	httpapi "github.com/i474232898/flight-delay-prediction/internal/api/http"
	"github.com/i474232898/flight-delay-prediction/internal/config"
	"github.com/i474232898/flight-delay-prediction/internal/model"
	"github.com/i474232898/flight-delay-prediction/internal/prediction"
	"github.com/i474232898/flight-delay-prediction/internal/scheduler"
	"github.com/i474232898/flight-delay-prediction/internal/store"
	"github.com/i474232898/flight-delay-prediction/internal/weather"
	"github.com/i474232898/flight-delay-prediction/internal/weather/providers"
)

const serviceName = "flight-delay-prediction"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	dir, err := loadAirports(cfg.AirportsFile)
	if err != nil {
		logger.Error("failed to load airports", "error", err)
		os.Exit(1)
	}
	logger.Info("airport directory ready", "airports", dir.Len())

	// Shared HTTP client for outbound provider calls; the resolver bounds each call.
	httpClient := &http.Client{
		Timeout: cfg.ProviderTimeout,
	}

	provider, err := providers.New(cfg.WeatherProvider, httpClient, providers.Keys{
		OpenWeather: cfg.OpenWeatherAPIKey,
		WeatherAPI:  cfg.WeatherAPIKey,
	})
	if err != nil {
		logger.Error("failed to create weather provider", "error", err)
		os.Exit(1)
	}

	resolverOpts := []weather.ResolverOption{
		weather.WithHorizon(cfg.ForecastHorizon),
		weather.WithTimeout(cfg.ProviderTimeout),
		weather.WithLocation(cfg.Location),
		weather.WithLogger(logger),
	}
	if cfg.ForecastCacheTTL > 0 {
		resolverOpts = append(resolverOpts, weather.WithCache(store.NewMemoryStore(cfg.ForecastCacheTTL, cfg.ForecastCacheMaxEntries)))
	}
	resolver := weather.NewResolver(dir, provider, resolverOpts...)

	// The service starts without a model when the artifact is unusable and
	// reports it through /health until a reload succeeds.
	state := model.NewState(cfg.ModelPath, model.LightGBMLoader, logger)
	if err := state.Load(); err != nil {
		logger.Warn("starting without a model", "error", err)
	}

	sched := scheduler.New(cfg.ModelReloadInterval, state, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	service := prediction.NewService(resolver, state,
		prediction.WithLocation(cfg.Location),
		prediction.WithLogger(logger),
	)

	app := httpapi.NewApp(httpapi.Options{
		Service:   serviceName,
		Logger:    logger,
		AccessLog: true,
	})
	httpapi.RegisterRoutes(app, serviceName, service, state)

	// Start server with graceful shutdown
	go func() {
		logger.Info("http server listening", "port", cfg.Port, "provider", provider.Name())
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

func loadAirports(path string) (*airports.Directory, error) {
	if path == "" {
		return airports.Default()
	}
	return airports.LoadFile(path)
}
