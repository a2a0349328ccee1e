package prediction

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/flight-delay-prediction/internal/features"
	"github.com/i474232898/flight-delay-prediction/internal/model"
	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

type fakeResolver struct {
	calls   atomic.Int32
	outcome weather.Outcome
	gotIATA string
	gotTime time.Time
}

func (f *fakeResolver) ResolveAt(_ context.Context, iata string, target time.Time) weather.Outcome {
	f.calls.Add(1)
	f.gotIATA = iata
	f.gotTime = target
	return f.outcome
}

type fakeModels struct {
	clf model.Classifier
}

func (f fakeModels) Classifier() (model.Classifier, bool) {
	return f.clf, f.clf != nil
}

type fakeClassifier struct {
	class    int
	proba    float64
	probaErr error
	err      error
	got      features.Vector
}

func (f *fakeClassifier) Predict(v features.Vector) (int, error) {
	f.got = v
	return f.class, f.err
}

func (f *fakeClassifier) PredictProba(features.Vector) (float64, error) {
	return f.proba, f.probaErr
}

// scoringClassifier counts how often each entry point runs.
type scoringClassifier struct {
	class    int
	proba    float64
	scores   int
	predicts int
	probas   int
}

func (s *scoringClassifier) Predict(features.Vector) (int, error) {
	s.predicts++
	return s.class, nil
}

func (s *scoringClassifier) PredictProba(features.Vector) (float64, error) {
	s.probas++
	return s.proba, nil
}

func (s *scoringClassifier) Score(features.Vector) (int, float64, error) {
	s.scores++
	return s.class, s.proba, nil
}

type classOnly int

func (c classOnly) Predict(features.Vector) (int, error) { return int(c), nil }

func newTestService(res *fakeResolver, clf model.Classifier) *Service {
	return NewService(res, fakeModels{clf: clf}, WithLocation(time.UTC))
}

func validRequest() Request {
	return Request{Origin: "gru", Destination: " gig ", Departure: "2025-06-03 14:30"}
}

func TestPredictDelayed(t *testing.T) {
	res := &fakeResolver{outcome: weather.Outcome{
		Category:   weather.CategorySevere,
		Descriptor: "Snow",
		Reason:     weather.ReasonForecastMatched,
		Source:     "OpenWeatherMap (Main Field)",
	}}
	clf := &fakeClassifier{class: 1, proba: 0.81}

	out, err := newTestService(res, clf).Predict(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Class)
	assert.Equal(t, LabelDelayed, out.Label)
	assert.Equal(t, "Delayed", out.Label.Display())
	assert.InDelta(t, 0.81, out.ProbabilityOfDelay, 1e-9)
	assert.Equal(t, weather.CategorySevere, out.Weather.Category)

	assert.EqualValues(t, 1, res.calls.Load())
	assert.Equal(t, "GRU", res.gotIATA)
	assert.Equal(t, time.Date(2025, 6, 3, 14, 30, 0, 0, time.UTC), res.gotTime)

	want := features.Vector{
		Month: 6, DayOfWeek: 2, DepTime: 1430,
		Origin: "GRU", Dest: "GIG", WeatherCategory: "Severe",
	}
	assert.Equal(t, want, clf.got)
	assert.Equal(t, want, out.Features)
	assert.Equal(t, weather.CategorySevere, weather.Classify(res.outcome.Descriptor))
}

func TestPredictUsesSingleScore(t *testing.T) {
	res := &fakeResolver{outcome: weather.Outcome{Category: weather.CategoryModerate}}
	clf := &scoringClassifier{class: 1, proba: 0.58}

	out, err := newTestService(res, clf).Predict(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, LabelDelayed, out.Label)
	assert.InDelta(t, 0.58, out.ProbabilityOfDelay, 1e-9)

	assert.Equal(t, 1, clf.scores)
	assert.Zero(t, clf.predicts)
	assert.Zero(t, clf.probas)
}

func TestPredictOnTimeWithoutProbability(t *testing.T) {
	res := &fakeResolver{outcome: weather.Outcome{Category: weather.CategoryGood, Reason: weather.ReasonNoHistory}}

	out, err := newTestService(res, classOnly(0)).Predict(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, LabelOnTime, out.Label)
	assert.Equal(t, "On Time", out.Label.Display())
	assert.Zero(t, out.ProbabilityOfDelay)
}

func TestPredictProbabilityFailureIsNotFatal(t *testing.T) {
	res := &fakeResolver{outcome: weather.Outcome{Category: weather.CategoryGood}}
	clf := &fakeClassifier{class: 1, proba: 0.9, probaErr: errors.New("no proba")}

	out, err := newTestService(res, clf).Predict(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, LabelDelayed, out.Label)
	assert.Zero(t, out.ProbabilityOfDelay)
}

func TestPredictClassifierError(t *testing.T) {
	res := &fakeResolver{outcome: weather.Outcome{Category: weather.CategoryGood}}
	clf := &fakeClassifier{err: errors.New("boom")}

	_, err := newTestService(res, clf).Predict(context.Background(), validRequest())
	require.Error(t, err)

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestPredictModelUnavailable(t *testing.T) {
	res := &fakeResolver{}
	_, err := newTestService(res, nil).Predict(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Zero(t, res.calls.Load())
}

func TestPredictValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "missing departure",
			req:  Request{Origin: "GRU", Destination: "GIG"},
			want: "dt_partida_prevista|data_partida",
		},
		{
			name: "missing origin",
			req:  Request{Destination: "GIG", Departure: "2025-06-03"},
			want: "sg_iata_origem|origem",
		},
		{
			name: "same airports",
			req:  Request{Origin: "GRU", Destination: "gru", Departure: "2025-06-03"},
			want: "must be different",
		},
		{
			name: "bad iata",
			req:  Request{Origin: "GR1", Destination: "GIG", Departure: "2025-06-03"},
			want: "expected 3 letters",
		},
		{
			name: "bad date",
			req:  Request{Origin: "GRU", Destination: "GIG", Departure: "03/06/2025"},
			want: "invalid departure date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResolver{}
			_, err := newTestService(res, classOnly(0)).Predict(context.Background(), tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.want)
			assert.Zero(t, res.calls.Load())
		})
	}
}

func TestParseRequestAliases(t *testing.T) {
	req, err := ParseRequest([]byte(`{"sg_iata_origem":"gru","destino":"GIG","data_partida":"2025-06-03 10:00"}`))
	require.NoError(t, err)
	assert.Equal(t, Request{Origin: "GRU", Destination: "GIG", Departure: "2025-06-03 10:00"}, req)

	req, err = ParseRequest([]byte(`{"sg_iata_origem":"  ","origem":"cgh","sg_iata_destino":"SDU","destino":"GIG","dt_partida_prevista":"2025-06-03T08:00:00"}`))
	require.NoError(t, err)
	assert.Equal(t, Request{Origin: "CGH", Destination: "SDU", Departure: "2025-06-03T08:00:00"}, req)
}

func TestParseRequestRejectsBadBodies(t *testing.T) {
	for _, body := range []string{"", "  ", "null"} {
		_, err := ParseRequest([]byte(body))
		assert.ErrorIs(t, err, ErrEmptyBody, "body %q", body)
	}

	for _, body := range []string{"[1,2]", "{", `{"origem":123}`} {
		_, err := ParseRequest([]byte(body))
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "body %q", body)
	}
}
