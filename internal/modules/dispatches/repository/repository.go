package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/gafc98/temperature-logger/internal/modules/dispatches/types"
)

//go:embed sql/insert-dispatch.sql
var insertDispatchSQL string

//go:embed sql/list-dispatches.sql
var listDispatchesSQL string

//go:embed sql/get-week-dispatches.sql
var getWeekDispatchesSQL string

type DispatchRepository interface {
	InsertDispatch(ctx context.Context, d types.Dispatch) error
	ListDispatches(ctx context.Context, limit int) ([]types.Dispatch, error)
	GetWeekDispatches(ctx context.Context, isoYear, isoWeek int) ([]types.Dispatch, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) DispatchRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertDispatch(ctx context.Context, d types.Dispatch) error {
	sentAt := d.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertDispatchSQL,
		d.ID,
		d.ISOYear,
		d.ISOWeek,
		formatTime(d.WindowFrom),
		formatTime(d.WindowTo),
		d.Recipients,
		d.Simulated,
		formatTime(sentAt),
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

func (r *repositoryImpl) ListDispatches(ctx context.Context, limit int) ([]types.Dispatch, error) {
	rows, err := r.db.QueryContext(ctx, listDispatchesSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close dispatches rows", "error", err)
		}
	}()
	return scanDispatches(rows)
}

func (r *repositoryImpl) GetWeekDispatches(ctx context.Context, isoYear, isoWeek int) ([]types.Dispatch, error) {
	rows, err := r.db.QueryContext(ctx, getWeekDispatchesSQL, isoYear, isoWeek)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close week dispatches rows", "error", err)
		}
	}()
	return scanDispatches(rows)
}

func scanDispatches(rows *sql.Rows) ([]types.Dispatch, error) {
	out := []types.Dispatch{}
	for rows.Next() {
		var (
			d                types.Dispatch
			from, to, sentAt string
		)
		if err := rows.Scan(&d.ID, &d.ISOYear, &d.ISOWeek, &from, &to, &d.Recipients, &d.Simulated, &sentAt); err != nil {
			return nil, err
		}
		var err error
		if d.WindowFrom, err = parseTime(from); err != nil {
			return nil, err
		}
		if d.WindowTo, err = parseTime(to); err != nil {
			return nil, err
		}
		if d.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
