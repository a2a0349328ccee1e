package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitryikh/leaves"

	"github.com/i474232898/flight-delay-prediction/internal/features"
)

const (
	featureNamesKey      = "feature_names="
	pandasCategoricalKey = "pandas_categorical:"

	// decisionThreshold mirrors the classifier's argmax over two classes.
	decisionThreshold = 0.5
)

var (
	// ErrFeatureMismatch is returned when the model and the schema disagree
	// on the number of features.
	ErrFeatureMismatch = errors.New("model: feature count mismatch")
	// ErrNoFeatureNames is returned when a model file lacks feature_names.
	ErrNoFeatureNames = errors.New("model: feature_names not found")
)

// ensemble is the subset of *leaves.Ensemble the classifier uses.
type ensemble interface {
	NFeatures() int
	NOutputGroups() int
	Predict(fvals []float64, nEstimators int, predictions []float64) error
}

// LightGBM evaluates a LightGBM binary model saved in text format.
type LightGBM struct {
	ensemble ensemble
	schema   *features.Schema
}

// LoadLightGBM loads the model and its categorical schema from one file.
func LoadLightGBM(path string) (*LightGBM, error) {
	e, err := leaves.LGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("load lightgbm ensemble: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	schema, err := ParseSchema(f)
	if err != nil {
		return nil, err
	}

	return newLightGBM(e, schema)
}

// LightGBMLoader adapts LoadLightGBM to the Loader signature.
func LightGBMLoader(path string) (Classifier, error) {
	m, err := LoadLightGBM(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newLightGBM(e ensemble, schema *features.Schema) (*LightGBM, error) {
	if e.NFeatures() != len(schema.Columns) {
		return nil, fmt.Errorf("%w: model has %d, schema has %d", ErrFeatureMismatch, e.NFeatures(), len(schema.Columns))
	}
	return &LightGBM{ensemble: e, schema: schema}, nil
}

// Schema returns the feature schema read from the model file.
func (m *LightGBM) Schema() *features.Schema {
	return m.schema
}

// Score evaluates the ensemble once and returns ClassDelayed when the delay
// probability exceeds one half.
func (m *LightGBM) Score(v features.Vector) (int, float64, error) {
	p, err := m.PredictProba(v)
	if err != nil {
		return 0, 0, err
	}
	if p > decisionThreshold {
		return ClassDelayed, p, nil
	}
	return ClassOnTime, p, nil
}

// Predict returns the class alone. Callers that also need the probability
// should use Score.
func (m *LightGBM) Predict(v features.Vector) (int, error) {
	class, _, err := m.Score(v)
	return class, err
}

// PredictProba returns the probability of the delayed class.
func (m *LightGBM) PredictProba(v features.Vector) (float64, error) {
	groups := m.ensemble.NOutputGroups()
	if groups < 1 {
		groups = 1
	}
	out := make([]float64, groups)
	if err := m.ensemble.Predict(v.Encode(m.schema), 0, out); err != nil {
		return 0, fmt.Errorf("lightgbm predict: %w", err)
	}
	return out[len(out)-1], nil
}

// ParseSchema reads feature_names and pandas_categorical from a LightGBM
// text model. Categorical vocabularies are assigned to the categorical
// columns in feature order.
func ParseSchema(r io.Reader) (*features.Schema, error) {
	var (
		columns []string
		catRaw  string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 64<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, featureNamesKey) && columns == nil:
			columns = strings.Fields(strings.TrimPrefix(line, featureNamesKey))
		case strings.HasPrefix(line, pandasCategoricalKey):
			catRaw = strings.TrimPrefix(line, pandasCategoricalKey)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	if len(columns) == 0 {
		return nil, ErrNoFeatureNames
	}

	var levels [][]interface{}
	if catRaw != "" && catRaw != "null" {
		if err := json.Unmarshal([]byte(catRaw), &levels); err != nil {
			return nil, fmt.Errorf("parse pandas_categorical: %w", err)
		}
	}

	vocabulary := make(map[string][]string)
	next := 0
	for _, col := range columns {
		if !isCategorical(col) || next >= len(levels) {
			continue
		}
		vocab := make([]string, len(levels[next]))
		for i, l := range levels[next] {
			if s, ok := l.(string); ok {
				vocab[i] = s
			} else {
				vocab[i] = fmt.Sprint(l)
			}
		}
		vocabulary[col] = vocab
		next++
	}

	return features.NewSchema(columns, vocabulary)
}

func isCategorical(col string) bool {
	switch col {
	case features.ColOrigin, features.ColDest, features.ColWeatherCategory:
		return true
	}
	return false
}
