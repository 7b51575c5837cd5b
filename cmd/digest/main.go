// Command digest emails the weekly weather report to the subscribers.
//
// Usage:
//
//	digest [now]
//
// With "now" a simulated digest is sent to RECEIVER_EMAIL before the
// weekly schedule starts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gafc98/temperature-logger/internal/app"
	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/logging"
)

var version = "dev"
var appName = "weather-digest"

func main() {
	sendNow := false
	switch args := os.Args[1:]; {
	case len(args) == 0:
	case len(args) == 1 && args[0] == "now":
		sendNow = true
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [now]\n", os.Args[0])
		os.Exit(2)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"send_now", sendNow,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunDigest(ctx, cfg, sendNow); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
