package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/flight-delay-prediction/internal/features"
	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

const modelHeader = `tree
version=v3
num_class=1
num_tree_per_iteration=1
label_index=0
max_feature_idx=5
objective=binary sigmoid:1
feature_names=Month DayOfWeek DepTime Origin Dest weather_category
feature_infos=[1:12] [1:7] [5:2359] 0:1:2 0:1 0:1:2:3

end of trees

pandas_categorical:[["ATL", "GRU", "JFK"], ["GIG", "LIS"], ["Good", "Moderate", "Severe", "critical"]]
`

type fakeEnsemble struct {
	nFeatures int
	score     float64
	err       error
	got       []float64
	calls     int
}

func (f *fakeEnsemble) NFeatures() int     { return f.nFeatures }
func (f *fakeEnsemble) NOutputGroups() int { return 1 }

func (f *fakeEnsemble) Predict(fvals []float64, _ int, out []float64) error {
	f.calls++
	f.got = append([]float64(nil), fvals...)
	if f.err != nil {
		return f.err
	}
	out[0] = f.score
	return nil
}

type constClassifier int

func (c constClassifier) Predict(features.Vector) (int, error) { return int(c), nil }

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema(strings.NewReader(modelHeader))
	require.NoError(t, err)

	assert.Equal(t, features.DefaultColumns, schema.Columns)
	assert.Equal(t, 1, schema.Code(features.ColOrigin, "GRU"))
	assert.Equal(t, 1, schema.Code(features.ColDest, "LIS"))
	assert.Equal(t, 3, schema.Code(features.ColWeatherCategory, "critical"))
	assert.Equal(t, features.UnknownLevel, schema.Code(features.ColDest, "CGH"))
}

func TestParseSchemaWithoutCategoricals(t *testing.T) {
	in := "feature_names=Month DayOfWeek DepTime\npandas_categorical:null\n"
	schema, err := ParseSchema(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Month", "DayOfWeek", "DepTime"}, schema.Columns)
}

func TestParseSchemaErrors(t *testing.T) {
	_, err := ParseSchema(strings.NewReader("tree\nversion=v3\n"))
	assert.ErrorIs(t, err, ErrNoFeatureNames)

	_, err = ParseSchema(strings.NewReader("feature_names=Month\npandas_categorical:[oops\n"))
	assert.Error(t, err)

	_, err = ParseSchema(strings.NewReader("feature_names=Month Distance\n"))
	assert.ErrorIs(t, err, features.ErrUnknownColumn)
}

func TestLightGBMPredict(t *testing.T) {
	schema, err := ParseSchema(strings.NewReader(modelHeader))
	require.NoError(t, err)

	ens := &fakeEnsemble{nFeatures: 6, score: 0.73}
	m, err := newLightGBM(ens, schema)
	require.NoError(t, err)

	v := features.Vector{Month: 6, DayOfWeek: 7, DepTime: 1430, Origin: "GRU", Dest: "CGH", WeatherCategory: "Severe"}

	p, err := m.PredictProba(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.73, p, 1e-9)
	assert.Equal(t, []float64{6, 7, 1430, 1, -1, 2}, ens.got)

	class, err := m.Predict(v)
	require.NoError(t, err)
	assert.Equal(t, ClassDelayed, class)

	ens.score = 0.5
	class, err = m.Predict(v)
	require.NoError(t, err)
	assert.Equal(t, ClassOnTime, class)
}

func TestLightGBMScoreEvaluatesOnce(t *testing.T) {
	schema, err := ParseSchema(strings.NewReader(modelHeader))
	require.NoError(t, err)

	ens := &fakeEnsemble{nFeatures: 6, score: 0.64}
	m, err := newLightGBM(ens, schema)
	require.NoError(t, err)

	class, p, err := m.Score(features.Vector{Month: 1, DayOfWeek: 1, Origin: "JFK", Dest: "LIS", WeatherCategory: "Good"})
	require.NoError(t, err)
	assert.Equal(t, ClassDelayed, class)
	assert.InDelta(t, 0.64, p, 1e-9)
	assert.Equal(t, 1, ens.calls)

	var _ Scorer = m
}

func TestLightGBMPredictError(t *testing.T) {
	schema, err := features.NewSchema(features.DefaultColumns, nil)
	require.NoError(t, err)

	m, err := newLightGBM(&fakeEnsemble{nFeatures: 6, err: errors.New("bad input")}, schema)
	require.NoError(t, err)

	_, err = m.Predict(features.Vector{})
	assert.ErrorContains(t, err, "bad input")

	_, _, err = m.Score(features.Vector{})
	assert.ErrorContains(t, err, "bad input")
}

func TestLightGBMFeatureMismatch(t *testing.T) {
	schema, err := features.NewSchema(features.DefaultColumns, nil)
	require.NoError(t, err)

	_, err = newLightGBM(&fakeEnsemble{nFeatures: 4}, schema)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestLoadLightGBMMissingFile(t *testing.T) {
	_, err := LightGBMLoader(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestStateEmpty(t *testing.T) {
	s := NewState("unused", nil, nil)

	_, ok := s.Classifier()
	assert.False(t, ok)
	assert.False(t, s.Loaded())
	assert.True(t, s.LoadedAt().IsZero())
	assert.Error(t, s.Load())
}

func TestStateLoadAndRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	var loads atomic.Int32
	s := NewState(path, func(string) (Classifier, error) {
		loads.Add(1)
		return constClassifier(1), nil
	}, nil)

	require.NoError(t, s.Refresh())
	assert.True(t, s.Loaded())
	assert.False(t, s.LoadedAt().IsZero())
	assert.EqualValues(t, 1, loads.Load())

	// Unchanged file is not reloaded.
	require.NoError(t, s.Refresh())
	assert.EqualValues(t, 1, loads.Load())

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	require.NoError(t, s.Refresh())
	assert.EqualValues(t, 2, loads.Load())

	require.NoError(t, s.Load())
	assert.EqualValues(t, 3, loads.Load())
}

func TestStateFailedReloadKeepsPreviousModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	fail := false
	s := NewState(path, func(string) (Classifier, error) {
		if fail {
			return nil, errors.New("corrupt artifact")
		}
		return constClassifier(0), nil
	}, nil)
	require.NoError(t, s.Load())
	loadedAt := s.LoadedAt()

	fail = true
	err := s.Load()
	assert.ErrorContains(t, err, "corrupt artifact")

	clf, ok := s.Classifier()
	require.True(t, ok)
	assert.Equal(t, constClassifier(0), clf)
	assert.Equal(t, loadedAt, s.LoadedAt())
}

func TestStateRefreshMissingFile(t *testing.T) {
	s := NewState(filepath.Join(t.TempDir(), "missing.txt"), LightGBMLoader, nil)
	assert.Error(t, s.Refresh())
	assert.False(t, s.Loaded())

	s.Set(constClassifier(1))
	assert.True(t, s.Loaded())
	assert.Error(t, s.Refresh())
	assert.True(t, s.Loaded())

	s.Set(nil)
	assert.False(t, s.Loaded())
}

func TestStateInspectsLoadedSchema(t *testing.T) {
	schema, err := features.NewSchema(features.DefaultColumns, map[string][]string{
		features.ColWeatherCategory: {"Good", "Moderate", "Severe"},
	})
	require.NoError(t, err)
	m, err := newLightGBM(&fakeEnsemble{nFeatures: 6}, schema)
	require.NoError(t, err)

	s := NewState("unused", func(string) (Classifier, error) { return m, nil }, nil)
	require.NoError(t, s.Load())

	assert.Equal(t, []weather.Category{weather.CategoryCritical}, s.inspectSchema(m))
	assert.Nil(t, s.inspectSchema(constClassifier(0)))
}
