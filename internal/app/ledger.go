package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/db"
	"github.com/gafc98/temperature-logger/internal/migrate"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/repository"
)

// openLedger opens the database and applies pending migrations.
func openLedger(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dbConn, err := db.Open(cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	n, err := migrate.Run(ctx, dbConn, slog.Default())
	if err != nil {
		_ = db.Close(dbConn)
		return nil, err
	}
	slog.Info("database ready", "path", cfg.SQLitePath, "migrations_applied", n)
	return dbConn, nil
}

func closeLedger(dbConn *sql.DB) {
	if err := db.Close(dbConn); err != nil {
		slog.Error("db close", "error", err)
	}
}

// MigrateLedger applies pending migrations and returns how many ran.
func MigrateLedger(ctx context.Context, cfg config.Config) (int, error) {
	dbConn, err := db.Open(cfg, slog.Default())
	if err != nil {
		return 0, err
	}
	defer closeLedger(dbConn)
	return migrate.Run(ctx, dbConn, slog.Default())
}

// ListDispatches writes the newest limit ledger entries to w as a table.
func ListDispatches(ctx context.Context, cfg config.Config, limit int, w io.Writer) error {
	dbConn, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger(dbConn)

	items, err := repository.NewRepository(dbConn).ListDispatches(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SENT AT\tWEEK\tRECIPIENTS\tSIMULATED\tID")
	for _, d := range items {
		fmt.Fprintf(tw, "%s\t%d-W%02d\t%d\t%t\t%s\n",
			d.SentAt.Local().Format(time.DateTime), d.ISOYear, d.ISOWeek, d.Recipients, d.Simulated, d.ID)
	}
	return tw.Flush()
}
