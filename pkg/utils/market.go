package utils

import (
	"math"
	"time"
)

// HourRange is one active trading window, [Start, End) in UTC hours. A range
// whose Start exceeds its End wraps past midnight.
type HourRange struct {
	Start int `json:"start" mapstructure:"start"`
	End   int `json:"end" mapstructure:"end"`
}

// Contains reports whether the given hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	if r.Start <= r.End {
		return hour >= r.Start && hour < r.End
	}
	// Wraps past midnight, e.g. 22-2 covers 22,23,0,1.
	return hour >= r.Start || hour < r.End
}

// WithinActiveHours reports whether t falls inside any configured range.
// An empty range list means trading is always active.
func WithinActiveHours(t time.Time, ranges []HourRange) bool {
	if len(ranges) == 0 {
		return true
	}
	hour := t.UTC().Hour()
	for _, r := range ranges {
		if r.Contains(hour) {
			return true
		}
	}
	return false
}

// Clamp restricts a value to the given range.
func Clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}

// Stdev returns the population standard deviation of the values.
func Stdev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}
