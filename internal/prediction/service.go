// Package prediction validates delay requests and runs weather enrichment,
// feature building and inference for them.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/flight-delay-prediction/internal/common"
	"github.com/i474232898/flight-delay-prediction/internal/features"
	"github.com/i474232898/flight-delay-prediction/internal/model"
	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// Label is the human-facing prediction class.
type Label string

const (
	LabelOnTime  Label = "ON_TIME"
	LabelDelayed Label = "DELAYED"
)

// Display returns the label as shown to API clients.
func (l Label) Display() string {
	if l == LabelDelayed {
		return "Delayed"
	}
	return "On Time"
}

// Result is the outcome of a single prediction.
type Result struct {
	Class              int
	Label              Label
	ProbabilityOfDelay float64
	Weather            weather.Outcome
	Features           features.Vector
}

// WeatherResolver resolves the weather category for an origin airport.
type WeatherResolver interface {
	ResolveAt(ctx context.Context, iata string, target time.Time) weather.Outcome
}

// ModelSource hands out the currently loaded classifier.
type ModelSource interface {
	Classifier() (model.Classifier, bool)
}

// Service orchestrates a prediction.
type Service struct {
	resolver WeatherResolver
	models   ModelSource
	location *time.Location
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the zone naive departure times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(resolver WeatherResolver, models ModelSource, opts ...Option) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if alias := fld.Tag.Get("alias"); alias != "" {
			return alias
		}
		return fld.Name
	})

	s := &Service{
		resolver: resolver,
		models:   models,
		location: time.Local,
		validate: v,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict validates the request, resolves the origin weather and runs the
// classifier. Weather problems degrade the category; they never fail the call.
func (s *Service) Predict(ctx context.Context, req Request) (Result, error) {
	clf, ok := s.models.Classifier()
	if !ok {
		return Result{}, ErrModelUnavailable
	}

	req = req.normalized()
	if err := s.validateRequest(req); err != nil {
		return Result{}, err
	}

	departure, err := common.ParseLocalTime(req.Departure, s.location)
	if err != nil {
		return Result{}, invalid(fmt.Sprintf("invalid departure date %q: %v", req.Departure, err))
	}

	outcome := s.resolver.ResolveAt(ctx, req.Origin, departure)
	vec := features.Build(req.Origin, req.Destination, departure, outcome.Category)

	class, p, err := s.score(clf, vec)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}

	res := Result{
		Class:              class,
		Label:              LabelOnTime,
		ProbabilityOfDelay: p,
		Weather:            outcome,
		Features:           vec,
	}
	if class == model.ClassDelayed {
		res.Label = LabelDelayed
	}

	s.logger.Info("prediction",
		"origin", req.Origin,
		"destination", req.Destination,
		"departure", departure.Format(time.RFC3339),
		"weather_category", outcome.Category,
		"weather_reason", outcome.Reason,
		"features", res.Features,
		"label", res.Label,
		"probability_delay", res.ProbabilityOfDelay,
	)
	return res, nil
}

// score runs the classifier once when it can report class and probability
// together. Otherwise the probability is optional and its failure only
// leaves it at zero.
func (s *Service) score(clf model.Classifier, vec features.Vector) (int, float64, error) {
	if sc, ok := clf.(model.Scorer); ok {
		return sc.Score(vec)
	}

	class, err := clf.Predict(vec)
	if err != nil {
		return 0, 0, err
	}

	est, ok := clf.(model.ProbabilityEstimator)
	if !ok {
		return class, 0, nil
	}
	p, err := est.PredictProba(vec)
	if err != nil {
		s.logger.Warn("probability unavailable", "error", err)
		return class, 0, nil
	}
	return class, p, nil
}

func (s *Service) validateRequest(req Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid(err.Error())
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, "missing required field: "+fe.Field())
		case "nefield":
			problems = append(problems, "origin and destination must be different airports")
		default:
			problems = append(problems, fmt.Sprintf("invalid IATA code %q for %s: expected 3 letters", fe.Value(), fe.Field()))
		}
	}
	return invalid(problems...)
}
