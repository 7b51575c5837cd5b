package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/digest"
	"github.com/gafc98/temperature-logger/internal/mailer"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/repository"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
	"github.com/gafc98/temperature-logger/internal/subscribers"
)

// RunDigest sends the weekly digest on cfg.DigestSchedule until ctx is
// canceled. With sendNow a simulated digest goes to the receiver address
// first.
func RunDigest(ctx context.Context, cfg config.Config, sendNow bool) error {
	if err := cfg.ValidateDigest(); err != nil {
		return err
	}
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logFile", cfg.LogFile,
		"smtpHost", cfg.SMTPHost,
		"smtpPort", cfg.SMTPPort,
		"schedule", cfg.DigestSchedule,
		"sqlitePath", cfg.SQLitePath,
	)

	dbConn, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger(dbConn)

	logger := slog.Default()
	clock := quartz.NewReal()
	d := digest.New(
		digest.Options{
			SheetID:        cfg.SheetID,
			SenderEmail:    cfg.SenderEmail,
			ReceiverEmail:  cfg.ReceiverEmail,
			DashboardURL:   cfg.DashboardURL,
			UnsubscribeURL: cfg.FormLink,
		},
		subscribers.NewSheetClient(&http.Client{Timeout: 30 * time.Second}, cfg.SheetBaseURL, logger),
		sensorlog.NewScanner(cfg.LogFile, time.Local),
		mailer.New(mailer.Config{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SenderEmail,
			Password:   cfg.SenderPassword,
			RequireTLS: cfg.SMTPRequireTLS,
		}, logger),
		repository.NewRepository(dbConn),
		clock,
		logger,
	)

	if sendNow {
		if _, err := d.Send(ctx, clock.Now(), true); err != nil {
			return err
		}
	}

	scheduler, err := digest.NewScheduler(cfg.DigestSchedule, d, clock, time.Local, logger)
	if err != nil {
		return err
	}
	return scheduler.Run(ctx)
}
