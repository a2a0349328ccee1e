package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// UnknownLevel encodes a categorical value absent from the training
// vocabulary. LightGBM routes negative categories to its "other" branch.
const UnknownLevel = -1

// ErrUnknownColumn is returned when a schema names a column the vector
// cannot supply.
var ErrUnknownColumn = errors.New("features: unknown column")

// Schema describes the model's column order and, for categorical columns,
// the training-time vocabulary in code order.
type Schema struct {
	Columns    []string
	Vocabulary map[string][]string

	index map[string]map[string]int
}

// NewSchema validates the columns and indexes the vocabularies.
func NewSchema(columns []string, vocabulary map[string][]string) (*Schema, error) {
	var empty Vector
	idx := make(map[string]map[string]int, len(vocabulary))

	for _, col := range columns {
		if _, ok := empty.numeric(col); ok {
			continue
		}
		if _, ok := empty.categorical(col); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
		levels := make(map[string]int, len(vocabulary[col]))
		for i, level := range vocabulary[col] {
			if _, dup := levels[level]; !dup {
				levels[level] = i
			}
		}
		idx[col] = levels
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Schema{Columns: cols, Vocabulary: vocabulary, index: idx}, nil
}

// Code returns the categorical code for a value, or UnknownLevel.
func (s *Schema) Code(col, value string) int {
	if code, ok := s.index[col][value]; ok {
		return code
	}
	return UnknownLevel
}

// UnknownWeatherCategories returns the weather categories the model's
// weather_category vocabulary lacks. Such categories encode as UnknownLevel.
// A schema without that column returns nil.
func (s *Schema) UnknownWeatherCategories() []weather.Category {
	levels, ok := s.index[ColWeatherCategory]
	if !ok {
		return nil
	}
	var missing []weather.Category
	for _, cat := range weather.Categories {
		if _, ok := levels[string(cat)]; !ok {
			missing = append(missing, cat)
		}
	}
	return missing
}

// Encode lays the vector out in schema column order, replacing categorical
// values by their vocabulary codes.
func (v Vector) Encode(s *Schema) []float64 {
	out := make([]float64, len(s.Columns))
	for i, col := range s.Columns {
		if n, ok := v.numeric(col); ok {
			out[i] = n
			continue
		}
		if c, ok := v.categorical(col); ok {
			out[i] = float64(s.Code(col, c))
			continue
		}
		out[i] = math.NaN()
	}
	return out
}
