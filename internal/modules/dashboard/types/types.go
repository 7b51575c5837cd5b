package types

import (
	"math"
	"time"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// Values is one BME280 sample. Missing values are encoded as null.
type Values struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
}

type Reading struct {
	Time       time.Time `json:"time"`
	Kind       string    `json:"kind"`
	Interior   Values    `json:"interior"`
	Exterior   Values    `json:"exterior"`
	AnalogTemp *float64  `json:"analog_temp"`
}

// Readings is the body of GET /api/readings.
type Readings struct {
	RangeDays int       `json:"range_days"`
	Stride    int       `json:"stride"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Items     []Reading `json:"items"`
}

func FromRecord(r sensorlog.Record) Reading {
	return Reading{
		Time:       r.Time,
		Kind:       r.Kind.String(),
		Interior:   fromSensor(r.Interior),
		Exterior:   fromSensor(r.Exterior),
		AnalogTemp: nullable(r.AnalogTemp),
	}
}

func fromSensor(s sensorlog.Reading) Values {
	return Values{
		Temperature: nullable(s.Temperature),
		Humidity:    nullable(s.Humidity),
		Pressure:    nullable(s.Pressure),
	}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
