// Package sensorlog reads the tab-separated, append-only log written by the
// sensor daemon. Lines are scanned from the end of the file towards its start
// so that queries for recent data stop as soon as they cross their lower bound.
package sensorlog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the ctime(3) timestamp that starts every log line.
// The day of month may be space padded or zero filled.
const TimeLayout = "Mon Jan _2 15:04:05 2006"

// ErrMalformedLine is returned for lines whose timestamp or interior
// readings cannot be parsed.
var ErrMalformedLine = errors.New("malformed log line")

// Kind tells which sensor layout produced a record.
type Kind int

const (
	// KindLegacy records only carry the interior BME280 and the analog sensor.
	KindLegacy Kind = iota
	// KindDualSensor records also carry an exterior BME280.
	KindDualSensor
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindDualSensor:
		return "dual-sensor"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field positions within a log line. Index 5 is reserved and ignored.
const (
	fieldTime = iota
	fieldIntTemp
	fieldIntHumidity
	fieldIntPressure
	fieldAnalogTemp
	fieldReserved
	fieldExtTemp
	fieldExtHumidity
	fieldExtPressure

	legacyFields = fieldAnalogTemp + 1
	dualFields   = fieldExtPressure + 1
)

// Reading is one BME280 sample. Pressure is in bar, humidity in percent.
type Reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
}

// NaNReading is the exterior reading of legacy records.
func NaNReading() Reading {
	nan := math.NaN()
	return Reading{Temperature: nan, Humidity: nan, Pressure: nan}
}

// Record is a parsed log line.
type Record struct {
	Time       time.Time
	Kind       Kind
	Interior   Reading
	AnalogTemp float64
	// Exterior holds NaN values unless Kind is KindDualSensor.
	Exterior Reading
}

// HasExterior reports whether the record carries exterior readings.
func (r Record) HasExterior() bool {
	return r.Kind == KindDualSensor
}

// ParseTime parses the leading timestamp of a log line.
func ParseTime(line string, loc *time.Location) (time.Time, error) {
	ts, _, _ := strings.Cut(line, "\t")
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(ts), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformedLine, ts, err)
	}
	return t, nil
}

// ParseRecord parses a full log line. Interior readings are mandatory.
// Exterior readings are optional: a short line or unparsable exterior
// fields produce a legacy record.
func ParseRecord(line string, loc *time.Location) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < legacyFields {
		return Record{}, fmt.Errorf("%w: want at least %d fields, got %d", ErrMalformedLine, legacyFields, len(fields))
	}

	t, err := ParseTime(fields[fieldTime], loc)
	if err != nil {
		return Record{}, err
	}

	interior, err := parseReading(fields[fieldIntTemp], fields[fieldIntHumidity], fields[fieldIntPressure])
	if err != nil {
		return Record{}, fmt.Errorf("%w: interior: %v", ErrMalformedLine, err)
	}
	analog, err := parseFloat(fields[fieldAnalogTemp])
	if err != nil {
		return Record{}, fmt.Errorf("%w: analog temperature: %v", ErrMalformedLine, err)
	}

	rec := Record{
		Time:       t,
		Kind:       KindLegacy,
		Interior:   interior,
		AnalogTemp: analog,
		Exterior:   NaNReading(),
	}
	if len(fields) >= dualFields {
		exterior, err := parseReading(fields[fieldExtTemp], fields[fieldExtHumidity], fields[fieldExtPressure])
		if err == nil {
			rec.Kind = KindDualSensor
			rec.Exterior = exterior
		}
	}
	return rec, nil
}

func parseReading(temp, humidity, pressure string) (Reading, error) {
	var r Reading
	var err error
	if r.Temperature, err = parseFloat(temp); err != nil {
		return Reading{}, err
	}
	if r.Humidity, err = parseFloat(humidity); err != nil {
		return Reading{}, err
	}
	if r.Pressure, err = parseFloat(pressure); err != nil {
		return Reading{}, err
	}
	return r, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
