package weather

import (
	"context"
	"strconv"
	"time"
)

// ForecastProvider abstracts a forecast data source (e.g. OpenWeatherMap,
// WeatherAPI, Open-Meteo). Samples are returned in ascending time order.
type ForecastProvider interface {
	Name() string
	// Source is the human-readable label reported in weather contexts.
	Source() string
	FetchForecast(ctx context.Context, lat, lon float64) ([]Sample, error)
}

// ForecastCache is the contract the in-memory forecast cache must satisfy.
type ForecastCache interface {
	Get(key string, now time.Time) ([]Sample, bool)
	Save(key string, samples []Sample, now time.Time)
}

// APIError is returned by providers when the upstream API answers with a
// non-success status.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Provider + ": " + e.Message
	}
	return e.Provider + ": HTTP " + strconv.Itoa(e.StatusCode)
}

// Detail returns the provider message, falling back to the HTTP status.
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return "HTTP " + strconv.Itoa(e.StatusCode)
}
