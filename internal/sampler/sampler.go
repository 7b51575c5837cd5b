// Package sampler averages sensor readings over a fixed period and appends
// one line per period to the sensor log.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/coder/quartz"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// ErrNoSamples is returned when every interior read in a period failed.
var ErrNoSamples = errors.New("no interior samples")

// Environmental is a BME280 style sensor.
type Environmental interface {
	Sense() (sensorlog.Reading, error)
}

// Thermometer is the analog temperature probe.
type Thermometer interface {
	Temperature() (float64, error)
}

// Sink receives one averaged record per period.
type Sink interface {
	Append(rec sensorlog.Record) error
}

type Options struct {
	Period  time.Duration
	Samples int
}

// Sampler reads its sensors Samples times per Period. Exterior and Analog
// may be nil.
type Sampler struct {
	Interior Environmental
	Exterior Environmental
	Analog   Thermometer

	opts   Options
	clock  quartz.Clock
	logger *slog.Logger
}

func New(opts Options, interior, exterior Environmental, analog Thermometer, clock quartz.Clock, logger *slog.Logger) *Sampler {
	if opts.Period <= 0 {
		opts.Period = time.Minute
	}
	if opts.Samples <= 0 {
		opts.Samples = 60
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		Interior: interior,
		Exterior: exterior,
		Analog:   analog,
		opts:     opts,
		clock:    clock,
		logger:   logger,
	}
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

type readingMean struct {
	temperature, humidity, pressure mean
}

func (m *readingMean) add(r sensorlog.Reading) {
	m.temperature.add(r.Temperature)
	m.humidity.add(r.Humidity)
	m.pressure.add(r.Pressure)
}

func (m readingMean) value() sensorlog.Reading {
	return sensorlog.Reading{
		Temperature: m.temperature.value(),
		Humidity:    m.humidity.value(),
		Pressure:    m.pressure.value(),
	}
}

// Sample reads every sensor once per Period/Samples and returns the mean,
// stamped with the time the period ended. Failed reads are logged and left
// out of the mean.
func (s *Sampler) Sample(ctx context.Context) (sensorlog.Record, error) {
	wait := s.opts.Period / time.Duration(s.opts.Samples)

	var interior, exterior readingMean
	var analog mean
	var failures int
	for range s.opts.Samples {
		if r, err := s.Interior.Sense(); err != nil {
			failures++
			s.logger.Debug("interior read failed", "error", err)
		} else {
			interior.add(r)
		}
		if s.Exterior != nil {
			if r, err := s.Exterior.Sense(); err != nil {
				failures++
				s.logger.Debug("exterior read failed", "error", err)
			} else {
				exterior.add(r)
			}
		}
		if s.Analog != nil {
			if v, err := s.Analog.Temperature(); err != nil {
				failures++
				s.logger.Debug("analog read failed", "error", err)
			} else {
				analog.add(v)
			}
		}

		timer := s.clock.NewTimer(wait, "sampler", "wait")
		select {
		case <-ctx.Done():
			timer.Stop()
			return sensorlog.Record{}, ctx.Err()
		case <-timer.C:
		}
	}
	if failures > 0 {
		s.logger.Warn("sensor reads failed", "failures", failures, "samples", s.opts.Samples)
	}
	if interior.temperature.n == 0 {
		return sensorlog.Record{}, ErrNoSamples
	}

	rec := sensorlog.Record{
		Time:       s.clock.Now(),
		Kind:       sensorlog.KindLegacy,
		Interior:   interior.value(),
		AnalogTemp: analog.value(),
		Exterior:   sensorlog.NaNReading(),
	}
	if s.Exterior != nil && exterior.temperature.n > 0 {
		rec.Kind = sensorlog.KindDualSensor
		rec.Exterior = exterior.value()
	}
	return rec, nil
}

// Run samples and appends records until ctx is canceled. A period without
// interior samples is skipped; a sink failure ends the loop.
func (s *Sampler) Run(ctx context.Context, sink Sink) error {
	s.logger.Info("sampler started", "period", s.opts.Period, "samples", s.opts.Samples,
		"exterior", s.Exterior != nil, "analog", s.Analog != nil)
	for {
		rec, err := s.Sample(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrNoSamples):
			s.logger.Error("period skipped", "error", err)
			continue
		case err != nil:
			return err
		}
		if err := sink.Append(rec); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
		s.logger.Debug("record appended", "time", rec.Time, "kind", rec.Kind,
			"temperature", rec.Interior.Temperature)
	}
}
