package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// OpenWeatherProvider implements weather.ForecastProvider for the
// OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		client:  client,
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Source() string {
	return "OpenWeatherMap (Main Field)"
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.Sample, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.client, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt      int64 `json:"dt"`
			Weather []struct {
				Main string `json:"main"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode forecast: %w", p.name, err)
	}

	samples := make([]weather.Sample, 0, len(payload.List))
	for _, item := range payload.List {
		if len(item.Weather) == 0 {
			continue
		}
		samples = append(samples, weather.Sample{
			Time:       time.Unix(item.Dt, 0).UTC(),
			Descriptor: item.Weather[0].Main,
		})
	}

	sortSamples(samples)
	return samples, nil
}

func sortSamples(samples []weather.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
}
