package util

import (
	"math"
	"testing"
)

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		tick     float64
		expected float64
	}{
		{
			name:     "basic rounding down",
			x:        1.2345,
			tick:     0.01,
			expected: 1.23,
		},
		{
			name:     "tie rounds away from zero",
			x:        1.235,
			tick:     0.01,
			expected: 1.24,
		},
		{
			name:     "negative tie rounds away from zero",
			x:        -1.235,
			tick:     0.01,
			expected: -1.24,
		},
		{
			name:     "negative basic rounding",
			x:        -1.2345,
			tick:     0.01,
			expected: -1.23,
		},
		{
			name:     "larger tick size",
			x:        1.27,
			tick:     0.05,
			expected: 1.25,
		},
		{
			name:     "exact multiple",
			x:        1.25,
			tick:     0.05,
			expected: 1.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundToTick(tt.x, tt.tick)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("RoundToTick(%v, %v) = %v, expected %v", tt.x, tt.tick, result, tt.expected)
			}
		})
	}
}

func TestRoundToTick_NonPositiveTick(t *testing.T) {
	if got := RoundToTick(1.2345, 0); got != 1.2345 {
		t.Errorf("RoundToTick with zero tick = %v, want input unchanged", got)
	}
	if got := RoundToTick(1.2345, -0.01); got != 1.2345 {
		t.Errorf("RoundToTick with negative tick = %v, want input unchanged", got)
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatDollars(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		tick     float64
		decimals int
		want     string
	}{
		{"strike one decimal", 450, 0.1, 1, "$450.0"},
		{"last price cents", 2.346, 0.01, 2, "$2.35"},
		{"thousands", 5123.5, 0.5, 1, "$5,123.5"},
		{"negative", -1.5, 0.01, 2, "-$1.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDollars(tt.x, tt.tick, tt.decimals); got != tt.want {
				t.Errorf("FormatDollars(%v) = %q, want %q", tt.x, got, tt.want)
			}
		})
	}
}
