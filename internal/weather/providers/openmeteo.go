package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo's
// hourly forecast. It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	days    int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		days:    6,
		client:  client,
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Source() string {
	return "Open-Meteo (WMO weather code)"
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.Sample, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("hourly", "weathercode")
		values.Set("timezone", "UTC")
		values.Set("forecast_days", fmt.Sprintf("%d", p.days))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.client, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time        []string `json:"time"`
			WeatherCode []int    `json:"weathercode"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode forecast: %w", p.name, err)
	}

	times, codes := payload.Hourly.Time, payload.Hourly.WeatherCode
	if len(times) != len(codes) {
		return nil, fmt.Errorf("%s: hourly series length mismatch (%d times, %d codes)", p.name, len(times), len(codes))
	}

	samples := make([]weather.Sample, 0, len(times))
	for i, raw := range times {
		ts, err := time.ParseInLocation("2006-01-02T15:04", raw, time.UTC)
		if err != nil {
			continue
		}
		samples = append(samples, weather.Sample{
			Time:       ts,
			Descriptor: mapOpenMeteoCode(codes[i]),
		})
	}

	sortSamples(samples)
	return samples, nil
}

// mapOpenMeteoCode translates WMO weather codes into the OpenWeatherMap
// "main" vocabulary.
func mapOpenMeteoCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code >= 1 && code <= 3:
		return "Clouds"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow"
	case code >= 95 && code <= 99:
		return "Thunderstorm"
	default:
		return ""
	}
}
