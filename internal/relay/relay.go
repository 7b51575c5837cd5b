// Package relay republishes the newest sensor log record over MQTT.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
	"github.com/gafc98/temperature-logger/internal/telemetry"
)

const (
	DefaultInterval   = time.Minute
	DefaultStaleAfter = 15 * time.Minute
)

type Source interface {
	Latest(ctx context.Context) (sensorlog.Record, bool, error)
}

type Publisher interface {
	PublishTelemetry(t telemetry.Telemetry) error
	PublishStationHealth(h telemetry.StationHealth) error
}

type Options struct {
	StationID string
	Interval  time.Duration
	// StaleAfter marks the station unhealthy when the newest record is older.
	StaleAfter time.Duration
}

type Relay struct {
	opts   Options
	source Source
	pub    Publisher
	clock  quartz.Clock
	logger *slog.Logger

	last time.Time
	seq  int
}

func New(opts Options, source Source, pub Publisher, clock quartz.Clock, logger *slog.Logger) *Relay {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{opts: opts, source: source, pub: pub, clock: clock, logger: logger}
}

// Tick publishes the newest record if it was not published before, then the
// station health. An empty log publishes nothing.
func (r *Relay) Tick(ctx context.Context) error {
	rec, ok, err := r.source.Latest(ctx)
	if err != nil {
		return fmt.Errorf("read latest record: %w", err)
	}
	if !ok {
		r.logger.Debug("relay: log is empty")
		return nil
	}

	if rec.Time.After(r.last) {
		t := telemetry.FromRecord(r.opts.StationID, rec)
		t.Sequence = r.seq + 1
		if err := r.pub.PublishTelemetry(t); err != nil {
			return err
		}
		r.seq++
		r.last = rec.Time
	}

	age := r.clock.Now().Sub(rec.Time)
	return r.pub.PublishStationHealth(telemetry.StationHealth{
		StationID: r.opts.StationID,
		LastSeen:  rec.Time,
		Healthy:   age <= r.opts.StaleAfter,
	})
}

// Run ticks immediately and then every interval until ctx is canceled.
// Tick failures are logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("relay started", "station_id", r.opts.StationID, "interval", r.opts.Interval)
	r.tick(ctx)

	ticker := r.clock.NewTicker(r.opts.Interval, "relay", "tick")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped", "published", r.seq)
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if err := r.Tick(ctx); err != nil {
		r.logger.Warn("relay tick failed", "error", err)
	}
}
