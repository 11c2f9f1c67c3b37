package monitoring

import (
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// App wraps the New Relic application. All methods are safe no-ops when
// monitoring is disabled or unconfigured.
type App struct {
	*newrelic.Application
	enabled bool
}

// New creates a New Relic application
func New(cfg Config) (*App, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return &App{nil, false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &App{app, true}, nil
}

// Disabled returns a no-op monitoring app. Used in tests.
func Disabled() *App {
	return &App{nil, false}
}

// IsEnabled returns whether New Relic is enabled
func (a *App) IsEnabled() bool {
	return a != nil && a.enabled
}

// Shutdown gracefully shuts down the New Relic application
func (a *App) Shutdown(timeout time.Duration) {
	if !a.IsEnabled() {
		return
	}
	a.Application.Shutdown(timeout)
}

func (a *App) recordEvent(eventType string, params map[string]interface{}) {
	if !a.IsEnabled() {
		return
	}
	a.Application.RecordCustomEvent(eventType, params)
}

func (a *App) recordMetric(name string, value float64) {
	if !a.IsEnabled() {
		return
	}
	a.Application.RecordCustomMetric(name, value)
}

// Dispatch-domain helpers

// RecordRideRequested records a ride request and its candidate pool size
func (a *App) RecordRideRequested(eligibleDrivers int) {
	a.recordEvent("RideRequested", map[string]interface{}{
		"eligible_drivers": eligibleDrivers,
		"timestamp":        time.Now().Unix(),
	})
}

// RecordRideAccepted records a won acceptance race
func (a *App) RecordRideAccepted(rideID string) {
	a.recordEvent("RideAccepted", map[string]interface{}{
		"ride_id": rideID,
	})
}

// RecordAcceptConflict records a lost acceptance race
func (a *App) RecordAcceptConflict(rideID string) {
	a.recordMetric("custom/dispatch/accept_conflicts", 1)
	a.recordEvent("AcceptConflict", map[string]interface{}{
		"ride_id": rideID,
	})
}

// RecordRideCompleted records a completed ride and its fare split
func (a *App) RecordRideCompleted(rideID string, fare, driverEarnings float64) {
	a.recordEvent("RideCompleted", map[string]interface{}{
		"ride_id":         rideID,
		"fare":            fare,
		"driver_earnings": driverEarnings,
	})
}

// RecordMatchingLatency records driver search latency
func (a *App) RecordMatchingLatency(latency time.Duration) {
	a.recordMetric("custom/dispatch/matching_latency_ms", float64(latency.Milliseconds()))
}

// RecordConnections records the realtime bus connection count
func (a *App) RecordConnections(count int) {
	a.recordMetric("custom/realtime/active_connections", float64(count))
}
