package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errMissingAPIKey = errors.New("api key is not configured")
	errUnexpected    = errors.New("unexpected result type from circuit breaker")
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			// Client errors (bad key, bad coordinates) say nothing about
			// upstream health.
			var apiErr *weather.APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil
		},
	})
}

// doRequestWithResilience executes the HTTP request once through the circuit
// breaker. Forecast enrichment is best effort, so failures are never retried.
// Non-2xx responses become *weather.APIError.
func doRequestWithResilience(
	ctx context.Context,
	provider string,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, stripQuery(execErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, newAPIError(provider, resp)
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, errUnexpected
	}
	return resp, nil
}

// stripQuery drops the query string from transport errors. The query carries
// the provider API key.
func stripQuery(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	u, perr := url.Parse(uerr.URL)
	if perr != nil {
		return &url.Error{Op: uerr.Op, URL: "<redacted>", Err: uerr.Err}
	}
	u.RawQuery = ""
	return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
}

// newAPIError extracts the provider's error message from the response body.
// OpenWeatherMap uses {"message"}, WeatherAPI {"error":{"message"}} and
// Open-Meteo {"reason"}.
func newAPIError(provider string, resp *http.Response) *weather.APIError {
	apiErr := &weather.APIError{Provider: provider, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Reason  string          `json:"reason"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	var msg string
	if json.Unmarshal(payload.Message, &msg) == nil && msg != "" {
		apiErr.Message = msg
		return apiErr
	}

	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
		apiErr.Message = nested.Message
		return apiErr
	}

	apiErr.Message = payload.Reason
	return apiErr
}
