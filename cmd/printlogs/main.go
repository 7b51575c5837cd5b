// Command printlogs prints every sensor log line newer than a timestamp,
// newest first.
//
// Usage:
//
//	printlogs "Mon Jan 01 00:00:00 2024"
package main

import (
	"bufio"
	"context"
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
var appName = "printlogs"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s \"<timestamp>\"\n", os.Args[0])
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

	// stdout carries the log lines
	slog.SetDefault(logging.NewWithWriter(os.Stderr, cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	n, err := app.PrintLogs(ctx, cfg, os.Args[1], out)
	if flushErr := out.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		slog.Error("print logs failed", "err", err)
		os.Exit(1)
	}
	slog.Debug("printed log lines", "count", n, "file", cfg.LogFile)
}
