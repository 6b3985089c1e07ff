package utils

import (
	"math"
	"testing"
	"time"
)

func TestHourRangeContains(t *testing.T) {
	tests := []struct {
		name string
		r    HourRange
		hour int
		want bool
	}{
		{"inside plain range", HourRange{Start: 9, End: 17}, 12, true},
		{"start inclusive", HourRange{Start: 9, End: 17}, 9, true},
		{"end exclusive", HourRange{Start: 9, End: 17}, 17, false},
		{"before range", HourRange{Start: 9, End: 17}, 8, false},
		{"wrap evening side", HourRange{Start: 22, End: 2}, 23, true},
		{"wrap morning side", HourRange{Start: 22, End: 2}, 1, true},
		{"wrap midnight", HourRange{Start: 22, End: 2}, 0, true},
		{"wrap outside", HourRange{Start: 22, End: 2}, 12, false},
		{"wrap end exclusive", HourRange{Start: 22, End: 2}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.hour); got != tt.want {
				t.Errorf("Contains(%d) = %v, want %v", tt.hour, got, tt.want)
			}
		})
	}
}

func TestWithinActiveHours(t *testing.T) {
	ranges := []HourRange{{Start: 9, End: 24}, {Start: 0, End: 2}}

	at := func(hour int) time.Time {
		return time.Date(2026, 1, 2, hour, 30, 0, 0, time.UTC)
	}

	if !WithinActiveHours(at(12), ranges) {
		t.Error("12:30 should be active")
	}
	if !WithinActiveHours(at(23), ranges) {
		t.Error("23:30 should be active")
	}
	if !WithinActiveHours(at(1), ranges) {
		t.Error("01:30 should be active")
	}
	if WithinActiveHours(at(5), ranges) {
		t.Error("05:30 should be inactive")
	}

	// No configured ranges means always active.
	if !WithinActiveHours(at(5), nil) {
		t.Error("empty ranges should always be active")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5,0,10) = %v", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp(-1,0,10) = %v", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("Clamp(11,0,10) = %v", got)
	}
}

func TestStdev(t *testing.T) {
	if got := Stdev(nil); got != 0 {
		t.Errorf("Stdev(nil) = %v", got)
	}
	if got := Stdev([]float64{5, 5, 5}); got != 0 {
		t.Errorf("Stdev(constant) = %v", got)
	}
	// Population stdev of {35, 65} repeated is 15.
	got := Stdev([]float64{35, 65, 35, 65})
	if math.Abs(got-15) > 1e-9 {
		t.Errorf("Stdev = %v, want 15", got)
	}
}
