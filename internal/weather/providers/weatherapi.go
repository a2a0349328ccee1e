package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/flight-delay-prediction/internal/common"
	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// WeatherAPIProvider implements weather.ForecastProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		days:    6,
		client:  client,
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Source() string {
	return "WeatherAPI.com (condition text)"
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.Sample, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "lat,lon".
		values.Set("q", fmt.Sprintf("%f,%f", lat, lon))
		values.Set("days", fmt.Sprintf("%d", p.days))
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.client, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch int64 `json:"time_epoch"`
					Condition struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode forecast: %w", p.name, err)
	}

	var samples []weather.Sample
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			samples = append(samples, weather.Sample{
				Time:       time.Unix(h.TimeEpoch, 0).UTC(),
				Descriptor: mapWeatherAPICondition(h.Condition.Text),
			})
		}
	}

	sortSamples(samples)
	return samples, nil
}

// mapWeatherAPICondition translates free-text conditions into the
// OpenWeatherMap "main" vocabulary. Order matters: "light rain with thunder"
// is a thunderstorm.
func mapWeatherAPICondition(text string) string {
	switch {
	case text == "":
		return ""
	case common.HasAny(text, "thunder", "storm"):
		return "Thunderstorm"
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets"):
		return "Snow"
	case common.HasAny(text, "drizzle"):
		return "Drizzle"
	case common.HasAny(text, "rain", "shower"):
		return "Rain"
	case common.HasAny(text, "fog"):
		return "Fog"
	case common.HasAny(text, "mist"):
		return "Mist"
	case common.HasAny(text, "cloud", "overcast"):
		return "Clouds"
	case common.HasAny(text, "sunny", "clear"):
		return "Clear"
	default:
		return ""
	}
}
