package pricing

import "math"

// DefaultDriverShareRate is the driver's cut of the fare. The remainder is
// the platform commission; settlement of either side is external.
const DefaultDriverShareRate = 0.80

// Calculator computes the fare split applied at ride completion
type Calculator struct {
	driverShareRate float64
}

// NewCalculator creates a calculator with the given driver share rate.
// A zero or negative rate falls back to the default.
func NewCalculator(driverShareRate float64) *Calculator {
	if driverShareRate <= 0 || driverShareRate > 1 {
		driverShareRate = DefaultDriverShareRate
	}
	return &Calculator{driverShareRate: driverShareRate}
}

// DriverEarnings returns the driver's share of a fare, rounded to cents.
// The rider-visible fare is never adjusted.
func (c *Calculator) DriverEarnings(fare float64) float64 {
	return math.Round(fare*c.driverShareRate*100) / 100
}

// PlatformCommission returns the portion of the fare kept by the platform
func (c *Calculator) PlatformCommission(fare float64) float64 {
	return math.Round((fare-c.DriverEarnings(fare))*100) / 100
}
