package telemetry

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

func ptr(v float64) *float64 { return &v }

func TestFromRecord(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	nan := math.NaN()

	legacy := FromRecord("home", sensorlog.Record{
		Time:       ts,
		Kind:       sensorlog.KindLegacy,
		Interior:   sensorlog.Reading{Temperature: 21, Humidity: 50, Pressure: 1.01},
		Exterior:   sensorlog.Reading{Temperature: nan, Humidity: nan, Pressure: nan},
		AnalogTemp: 19.5,
	})
	if legacy.Exterior != nil {
		t.Errorf("legacy Exterior = %+v, want nil", legacy.Exterior)
	}
	if legacy.Kind != "legacy" || legacy.StationID != "home" || !legacy.Timestamp.Equal(ts) {
		t.Errorf("legacy = %+v", legacy)
	}
	data, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "exterior") {
		t.Errorf("legacy JSON %s contains exterior", data)
	}

	dual := FromRecord("home", sensorlog.Record{
		Time:     ts,
		Kind:     sensorlog.KindDualSensor,
		Interior: sensorlog.Reading{Temperature: 21, Humidity: 50, Pressure: 1.01},
		Exterior: sensorlog.Reading{Temperature: 4, Humidity: 90, Pressure: 1.02},
	})
	if dual.Exterior == nil || *dual.Exterior.Temperature != 4 {
		t.Errorf("dual Exterior = %+v, want temperature 4", dual.Exterior)
	}
}

func TestValidate(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	valid := Telemetry{StationID: "home", Timestamp: ts, Interior: Sample{Temperature: ptr(20)}}

	tests := []struct {
		name    string
		mutate  func(*Telemetry)
		wantErr string
	}{
		{name: "valid", mutate: func(*Telemetry) {}},
		{name: "missing station", mutate: func(t *Telemetry) { t.StationID = "" }, wantErr: "station_id"},
		{name: "missing timestamp", mutate: func(t *Telemetry) { t.Timestamp = time.Time{} }, wantErr: "timestamp"},
		{name: "humidity range", mutate: func(t *Telemetry) { t.Interior.Humidity = ptr(120) }, wantErr: "humidity_pct"},
		{name: "exterior pressure", mutate: func(t *Telemetry) { t.Exterior = &Sample{Pressure: ptr(0)} }, wantErr: "exterior"},
		{name: "no readings", mutate: func(t *Telemetry) { t.Interior = Sample{} }, wantErr: "at least one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTopics(t *testing.T) {
	if got := TelemetryTopic("home"); got != "stations/home/telemetry" {
		t.Errorf("TelemetryTopic = %q", got)
	}
	if got := HealthTopic("home"); got != "stations/home/health" {
		t.Errorf("HealthTopic = %q", got)
	}
}
