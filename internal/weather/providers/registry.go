package providers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// Provider names accepted by New.
const (
	OpenWeather = "openweather"
	OpenMeteo   = "openmeteo"
	WeatherAPI  = "weatherapi"
)

// ErrUnknownProvider is returned by New for unsupported provider names.
var ErrUnknownProvider = errors.New("unknown weather provider")

// Keys carries the API keys the providers may need.
type Keys struct {
	OpenWeather string
	WeatherAPI  string
}

// New constructs the named forecast provider.
func New(name string, client *http.Client, keys Keys) (weather.ForecastProvider, error) {
	switch name {
	case OpenWeather:
		return NewOpenWeatherProvider(client, keys.OpenWeather), nil
	case OpenMeteo:
		return NewOpenMeteoProvider(client), nil
	case WeatherAPI:
		return NewWeatherAPIProvider(client, keys.WeatherAPI), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
