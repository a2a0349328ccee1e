package weather

import (
	"time"
)

// Category is the ordinal weather severity level the delay model was
// trained on. The string values are the model's categorical symbols.
type Category string

const (
	CategoryGood     Category = "Good"
	CategoryModerate Category = "Moderate"
	CategorySevere   Category = "Severe"
	CategoryCritical Category = "critical"
)

// Categories lists every category the resolver can emit, in ascending
// severity.
var Categories = []Category{CategoryGood, CategoryModerate, CategorySevere, CategoryCritical}

// Reasons attached to outcomes. Provider failures append detail to the
// last two.
const (
	ReasonUnknownAirport   = "unknown airport"
	ReasonInvalidDate      = "invalid date"
	ReasonNoHistory        = "no historical data available"
	ReasonBeyondHorizon    = "date exceeds forecast horizon"
	ReasonForecastMatched  = "forecast matched"
	ReasonNoMatchingSample = "no matching forecast data"
	ReasonProviderError    = "provider error"
	ReasonConnectionError  = "connection error"
)

// Sample is one point of a provider forecast. Descriptor uses the
// OpenWeatherMap "main" vocabulary (Rain, Clouds, Thunderstorm, ...).
type Sample struct {
	Time       time.Time `json:"time"`
	Descriptor string    `json:"descriptor"`
}

// Outcome is the result of resolving weather for an airport and time.
// Category falls back to CategoryGood whenever no authoritative data exists.
type Outcome struct {
	Category   Category `json:"category"`
	Descriptor string   `json:"descriptor,omitempty"`
	Reason     string   `json:"reason"`
	Source     string   `json:"source,omitempty"`
}

// Degraded reports whether the outcome came from a fallback branch rather
// than a matched forecast sample.
func (o Outcome) Degraded() bool {
	return o.Reason != ReasonForecastMatched
}

// Main returns the descriptor, or the reason when no descriptor is known.
func (o Outcome) Main() string {
	if o.Descriptor != "" {
		return o.Descriptor
	}
	return o.Reason
}

func degraded(reason string) Outcome {
	return Outcome{Category: CategoryGood, Reason: reason}
}
