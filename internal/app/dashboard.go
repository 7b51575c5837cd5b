package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/httpapi"
	"github.com/gafc98/temperature-logger/internal/modules/dashboard"
	dashboardcontroller "github.com/gafc98/temperature-logger/internal/modules/dashboard/controller"
	dashboardviews "github.com/gafc98/temperature-logger/internal/modules/dashboard/views"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// RunDashboard serves the dashboard until ctx is canceled.
func RunDashboard(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"logFile", cfg.LogFile,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
	)

	dbConn, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger(dbConn)

	if err := dashboardviews.LoadTemplates(); err != nil {
		return err
	}

	scanner := sensorlog.NewScanner(cfg.LogFile, time.Local)
	slog.Info("sensor log", "path", scanner.Path(), "location", scanner.Location().String())
	mux := httpapi.NewMux(dbConn, cfg.LogFile)
	dashboard.RegisterFeature(mux, scanner, dashboardcontroller.Options{UnsubscribeLink: cfg.UnsubscribeLink})
	dispatches.RegisterFeature(mux, dbConn)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
