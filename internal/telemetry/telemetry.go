// Package telemetry defines the messages the relay publishes over MQTT.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// Sample is one BME280 reading. Pressure is in bar.
type Sample struct {
	Temperature *float64 `json:"temperature_c,omitempty"`
	Humidity    *float64 `json:"humidity_pct,omitempty"`
	Pressure    *float64 `json:"pressure_bar,omitempty"`
}

// Telemetry is the newest log record of a station.
type Telemetry struct {
	StationID  string    `json:"station_id"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
	Interior   Sample    `json:"interior"`
	Exterior   *Sample   `json:"exterior,omitempty"`
	AnalogTemp *float64  `json:"analog_temp_c,omitempty"`
	Sequence   int       `json:"sequence"`
}

// StationHealth is published retained so late subscribers see when the
// station last logged.
type StationHealth struct {
	StationID string    `json:"station_id"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
}

func TelemetryTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/telemetry", stationID)
}

func HealthTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/health", stationID)
}

// FromRecord converts a log record. NaN values are omitted.
func FromRecord(stationID string, rec sensorlog.Record) Telemetry {
	t := Telemetry{
		StationID:  stationID,
		Timestamp:  rec.Time,
		Kind:       rec.Kind.String(),
		Interior:   sample(rec.Interior),
		AnalogTemp: optional(rec.AnalogTemp),
	}
	if rec.HasExterior() {
		ext := sample(rec.Exterior)
		t.Exterior = &ext
	}
	return t
}

func sample(r sensorlog.Reading) Sample {
	return Sample{
		Temperature: optional(r.Temperature),
		Humidity:    optional(r.Humidity),
		Pressure:    optional(r.Pressure),
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Validate rejects messages a subscriber could not use.
func (t Telemetry) Validate() error {
	if t.StationID == "" {
		return errors.New("station_id is required")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if err := t.Interior.validate(); err != nil {
		return fmt.Errorf("interior: %w", err)
	}
	if t.Exterior != nil {
		if err := t.Exterior.validate(); err != nil {
			return fmt.Errorf("exterior: %w", err)
		}
	}
	if t.Interior.Temperature == nil && t.Interior.Humidity == nil && t.Interior.Pressure == nil {
		return errors.New("at least one interior reading is required")
	}
	return nil
}

func (s Sample) validate() error {
	if s.Humidity != nil && (*s.Humidity < 0 || *s.Humidity > 100) {
		return fmt.Errorf("humidity_pct out of range: %f (must be 0-100)", *s.Humidity)
	}
	if s.Pressure != nil && *s.Pressure <= 0 {
		return fmt.Errorf("pressure_bar must be positive: %f", *s.Pressure)
	}
	return nil
}
