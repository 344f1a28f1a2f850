package model

import (
	"errors"
	"fmt"
	"math"
)

// Hours is the fixed horizon of every computation: one calendar day.
const Hours = 24

// ErrSeriesLength is returned when an hourly series does not hold exactly Hours values.
var ErrSeriesLength = errors.New("series must contain exactly 24 values")

// Series is an hour-indexed sequence (index 0..23). The unit depends on use:
// Wh for energy, €/kWh for prices.
type Series []float64

// ValidateSeries checks the length invariant. Engines assume it holds.
func ValidateSeries(name string, s Series) error {
	if len(s) != Hours {
		return fmt.Errorf("%s: %w (got %d)", name, ErrSeriesLength, len(s))
	}
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s[%d]: value must be finite", name, i)
		}
	}
	return nil
}

// Max returns the largest value, or 0 for an empty series.
func (s Series) Max() float64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0]
	for _, v := range s[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Sum returns the sum of all values.
func (s Series) Sum() float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

// Rounded returns a copy with every value rounded to places decimals.
func (s Series) Rounded(places int) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = Round(v, places)
	}
	return out
}

// Constant builds a Hours-long series holding v.
func Constant(v float64) Series {
	s := make(Series, Hours)
	for i := range s {
		s[i] = v
	}
	return s
}
