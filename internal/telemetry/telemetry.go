// Package telemetry holds per-shipment environment readings shown next to
// flat-map markers. Samples are display-only and never feed the projection
// or curve pipeline.
package telemetry

import (
	"time"
)

// Health summarizes a sample.
type Health string

const (
	HealthUnknown  Health = ""
	HealthGood     Health = "good"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
)

// Physical limits applied by Clamp.
const (
	MinTemperatureC = -60.0
	MaxTemperatureC = 85.0
)

// Sample is one environment reading for a tracked shipment.
type Sample struct {
	Temperature    float64   `json:"temperature"`     // °C
	Humidity       float64   `json:"humidity"`        // %RH
	BatteryLevel   float64   `json:"battery_level"`   // %
	SignalStrength float64   `json:"signal_strength"` // %
	Health         Health    `json:"health"`
	LastUpdate     time.Time `json:"last_update"`
}

// Clamp limits every numeric field to its meaningful range. NaN readings
// become the lower bound.
func (s Sample) Clamp() Sample {
	s.Temperature = clamp(s.Temperature, MinTemperatureC, MaxTemperatureC)
	s.Humidity = clamp(s.Humidity, 0, 100)
	s.BatteryLevel = clamp(s.BatteryLevel, 0, 100)
	s.SignalStrength = clamp(s.SignalStrength, 0, 100)
	return s
}

// Normalize clamps the sample and derives Health when the source left it
// unset.
func (s Sample) Normalize() Sample {
	s = s.Clamp()
	if s.Health == HealthUnknown {
		s.Health = DeriveHealth(s)
	}
	return s
}

// Stale reports whether the sample is older than maxAge at now.
func (s Sample) Stale(now time.Time, maxAge time.Duration) bool {
	return s.LastUpdate.IsZero() || now.Sub(s.LastUpdate) > maxAge
}

// DeriveHealth grades a clamped sample.
func DeriveHealth(s Sample) Health {
	switch {
	case s.BatteryLevel < 10, s.SignalStrength < 10, s.Temperature > 45, s.Temperature < -25:
		return HealthCritical
	case s.BatteryLevel < 25, s.SignalStrength < 30, s.Humidity > 85, s.Temperature > 35, s.Temperature < -10:
		return HealthWarning
	default:
		return HealthGood
	}
}

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
