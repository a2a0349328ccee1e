// Package model holds the delay classifier contract, the LightGBM artifact
// loader and the application-lifetime handle to the loaded model.
package model

import (
	"github.com/i474232898/flight-delay-prediction/internal/features"
)

// Binary class outputs.
const (
	ClassOnTime  = 0
	ClassDelayed = 1
)

// Classifier predicts the binary delay class for a feature vector.
type Classifier interface {
	Predict(v features.Vector) (int, error)
}

// ProbabilityEstimator is implemented by classifiers that can report the
// probability of the delayed class.
type ProbabilityEstimator interface {
	PredictProba(v features.Vector) (float64, error)
}

// Scorer is implemented by classifiers that produce the class and the
// delay probability from a single evaluation.
type Scorer interface {
	Score(v features.Vector) (class int, probability float64, err error)
}

// Loader reads a classifier artifact from disk.
type Loader func(path string) (Classifier, error)
