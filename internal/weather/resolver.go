package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/i474232898/flight-delay-prediction/internal/airports"
	"github.com/i474232898/flight-delay-prediction/internal/common"
)

const (
	// DefaultHorizon is how far ahead the free forecast tier answers.
	DefaultHorizon = 5 * 24 * time.Hour
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 5 * time.Second
)

// Airports is the lookup the resolver needs from the airport directory.
type Airports interface {
	Lookup(iata string) (airports.Record, bool)
}

// Resolver decides which weather policy applies to an airport and departure
// time and, when a forecast can answer, queries the provider once.
// It never returns an error: every failure degrades to CategoryGood.
type Resolver struct {
	airports Airports
	provider ForecastProvider
	cache    ForecastCache

	horizon  time.Duration
	timeout  time.Duration
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHorizon overrides the forecast horizon.
func WithHorizon(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.horizon = d
		}
	}
}

// WithTimeout overrides the provider call timeout.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCache enables forecast caching.
func WithCache(c ForecastCache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// WithLocation sets the zone naive departure strings are read in.
func WithLocation(loc *time.Location) ResolverOption {
	return func(r *Resolver) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for resolution events.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(dir Airports, provider ForecastProvider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		airports: dir,
		provider: provider,
		horizon:  DefaultHorizon,
		timeout:  DefaultTimeout,
		location: time.Local,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve parses a raw departure string and resolves weather for it.
func (r *Resolver) Resolve(ctx context.Context, iata, raw string) Outcome {
	airport, ok := r.airports.Lookup(iata)
	if !ok {
		return r.finish(iata, time.Time{}, degraded(ReasonUnknownAirport))
	}

	target, err := common.ParseLocalTime(raw, r.location)
	if err != nil {
		return r.finish(iata, time.Time{}, degraded(ReasonInvalidDate))
	}

	return r.resolveAirport(ctx, airport, target)
}

// ResolveAt resolves weather for an already parsed departure time.
func (r *Resolver) ResolveAt(ctx context.Context, iata string, target time.Time) Outcome {
	airport, ok := r.airports.Lookup(iata)
	if !ok {
		return r.finish(iata, target, degraded(ReasonUnknownAirport))
	}
	return r.resolveAirport(ctx, airport, target)
}

func (r *Resolver) resolveAirport(ctx context.Context, airport airports.Record, target time.Time) Outcome {
	now := r.now()

	// The free tier has no history and only a few days of forecast.
	if target.Before(now) {
		return r.finish(airport.IATA, target, degraded(ReasonNoHistory))
	}
	if target.After(now.Add(r.horizon)) {
		return r.finish(airport.IATA, target, degraded(ReasonBeyondHorizon))
	}

	samples, err := r.forecast(ctx, airport, now)
	if err != nil {
		r.logger.Warn("forecast lookup failed",
			"iata", airport.IATA,
			"provider", r.providerName(),
			"error", err,
		)
		return r.finish(airport.IATA, target, degraded(failureReason(err)))
	}

	sample, ok := ClosestSample(samples, target)
	if !ok {
		return r.finish(airport.IATA, target, degraded(ReasonNoMatchingSample))
	}

	return r.finish(airport.IATA, target, Outcome{
		Category:   Classify(sample.Descriptor),
		Descriptor: sample.Descriptor,
		Reason:     ReasonForecastMatched,
	})
}

func (r *Resolver) forecast(ctx context.Context, airport airports.Record, now time.Time) ([]Sample, error) {
	if r.provider == nil {
		return nil, errors.New("no forecast provider configured")
	}

	if r.cache != nil {
		if samples, ok := r.cache.Get(airport.IATA, now); ok {
			return samples, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	samples, err := r.provider.FetchForecast(ctx, airport.Lat, airport.Lon)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && len(samples) > 0 {
		r.cache.Save(airport.IATA, samples, now)
	}
	return samples, nil
}

func (r *Resolver) providerName() string {
	if r.provider == nil {
		return "none"
	}
	return r.provider.Name()
}

func (r *Resolver) finish(iata string, target time.Time, o Outcome) Outcome {
	if r.provider != nil {
		o.Source = r.provider.Source()
	}
	r.logger.Info("weather resolved",
		"iata", iata,
		"target", target,
		"category", o.Category,
		"descriptor", o.Descriptor,
		"reason", o.Reason,
		"degraded", o.Degraded(),
	)
	return o
}

func failureReason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ReasonProviderError + ": " + apiErr.Detail()
	}
	// The request URL carries the API key; report only the transport cause.
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return ReasonConnectionError + ": " + err.Error()
}

// ClosestSample returns the sample with the smallest absolute distance to
// target. Ties keep the earlier sample in the slice.
func ClosestSample(samples []Sample, target time.Time) (Sample, bool) {
	var (
		best     Sample
		bestDiff time.Duration
		found    bool
	)
	for _, s := range samples {
		diff := s.Time.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff {
			best, bestDiff, found = s, diff, true
		}
	}
	return best, found
}
