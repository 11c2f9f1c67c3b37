package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDriverEarnings_DefaultSplit tests the standard fare split
func TestDriverEarnings_DefaultSplit(t *testing.T) {
	calc := NewCalculator(DefaultDriverShareRate)

	tests := []struct {
		name     string
		fare     float64
		expected float64
	}{
		{name: "Typical fare", fare: 12.50, expected: 10.00},
		{name: "Whole number fare", fare: 20.00, expected: 16.00},
		{name: "Fare needing rounding", fare: 9.99, expected: 7.99},
		{name: "Zero fare", fare: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calc.DriverEarnings(tt.fare))
		})
	}
}

// TestDriverEarnings_RoundsToCents tests that earnings never carry sub-cent precision
func TestDriverEarnings_RoundsToCents(t *testing.T) {
	calc := NewCalculator(DefaultDriverShareRate)

	earnings := calc.DriverEarnings(10.01) // 8.008 before rounding
	assert.Equal(t, 8.01, earnings)
}

// TestPlatformCommission_ComplementsEarnings tests the split sums to the fare
func TestPlatformCommission_ComplementsEarnings(t *testing.T) {
	calc := NewCalculator(DefaultDriverShareRate)

	fare := 12.50
	assert.InDelta(t, fare, calc.DriverEarnings(fare)+calc.PlatformCommission(fare), 0.001)
}

// TestNewCalculator_RejectsInvalidRate tests fallback to the default rate
func TestNewCalculator_RejectsInvalidRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{name: "Zero rate", rate: 0},
		{name: "Negative rate", rate: -0.5},
		{name: "Rate above one", rate: 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator(tt.rate)
			assert.Equal(t, 10.00, calc.DriverEarnings(12.50))
		})
	}
}
