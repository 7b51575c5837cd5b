package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/mqtt"
	"github.com/gafc98/temperature-logger/internal/relay"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// RunRelay publishes the newest log record every cfg.RelayInterval until ctx
// is canceled.
func RunRelay(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing relay",
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"station_id", cfg.StationID,
		"interval", cfg.RelayInterval,
	)

	client := mqtt.NewClient(cfg, slog.Default())
	defer client.Disconnect()

	// Short initial timeout so a missing broker does not block startup; paho
	// keeps reconnecting in the background.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err := client.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing, publishes retry on each tick)", "error", err)
	}

	r := relay.New(relay.Options{
		StationID: cfg.StationID,
		Interval:  cfg.RelayInterval,
	}, sensorlog.NewScanner(cfg.LogFile, time.Local), client, nil, slog.Default())
	return r.Run(ctx)
}
