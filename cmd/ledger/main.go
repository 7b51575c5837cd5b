// Command ledger manages the digest dispatch database.
//
// Usage:
//
//	ledger migrate      apply pending schema migrations
//	ledger list [n]     print the newest n dispatches (default 20)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gafc98/temperature-logger/internal/app"
	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/logging"
)

var version = "dev"
var appName = "ledger"

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <command>\n  migrate   apply pending schema migrations\n  list [n]  print the newest n dispatches\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
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
	slog.SetDefault(logging.NewWithWriter(os.Stderr, cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "migrate":
		n, err := app.MigrateLedger(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d migrations applied\n", n)
	case "list":
		limit := 20
		if len(os.Args) > 2 {
			limit, err = strconv.Atoi(os.Args[2])
			if err != nil || limit <= 0 {
				usage()
			}
		}
		if err := app.ListDispatches(ctx, cfg, limit, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "list: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}
