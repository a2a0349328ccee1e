// Package features turns a flight request into the feature schema the delay
// model was trained on.
package features

import (
	"time"

	"github.com/i474232898/flight-delay-prediction/internal/weather"
)

// Column names as they appear in the model's feature_names.
const (
	ColMonth           = "Month"
	ColDayOfWeek       = "DayOfWeek"
	ColDepTime         = "DepTime"
	ColOrigin          = "Origin"
	ColDest            = "Dest"
	ColWeatherCategory = "weather_category"
)

// DefaultColumns is the training-time column order.
var DefaultColumns = []string{ColMonth, ColDayOfWeek, ColDepTime, ColOrigin, ColDest, ColWeatherCategory}

// Vector is the model input for a single flight.
type Vector struct {
	Month           int     `json:"Month"`
	DayOfWeek       int     `json:"DayOfWeek"`
	DepTime         float64 `json:"DepTime"`
	Origin          string  `json:"Origin"`
	Dest            string  `json:"Dest"`
	WeatherCategory string  `json:"weather_category"`
}

// Build derives the feature vector from a departure time and resolved
// weather. Calendar and clock fields use the departure's own wall clock.
func Build(origin, dest string, departure time.Time, category weather.Category) Vector {
	return Vector{
		Month:           int(departure.Month()),
		DayOfWeek:       isoWeekday(departure.Weekday()),
		DepTime:         float64(departure.Hour()*100 + departure.Minute()),
		Origin:          origin,
		Dest:            dest,
		WeatherCategory: string(category),
	}
}

// isoWeekday maps Go's Sunday=0 convention to Monday=1 ... Sunday=7.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// numeric returns the value of a numeric column.
func (v Vector) numeric(col string) (float64, bool) {
	switch col {
	case ColMonth:
		return float64(v.Month), true
	case ColDayOfWeek:
		return float64(v.DayOfWeek), true
	case ColDepTime:
		return v.DepTime, true
	}
	return 0, false
}

// categorical returns the value of a categorical column.
func (v Vector) categorical(col string) (string, bool) {
	switch col {
	case ColOrigin:
		return v.Origin, true
	case ColDest:
		return v.Dest, true
	case ColWeatherCategory:
		return v.WeatherCategory, true
	}
	return "", false
}
