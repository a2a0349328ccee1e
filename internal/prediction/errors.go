package prediction

import (
	"errors"
	"strings"
)

// ErrModelUnavailable is returned while no classifier is loaded.
var ErrModelUnavailable = errors.New("model offline")

// ErrEmptyBody is returned for a missing or null request body.
var ErrEmptyBody error = &ValidationError{Problems: []string{"request body is empty"}}

// ValidationError describes why a request was rejected before inference.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func invalid(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}
