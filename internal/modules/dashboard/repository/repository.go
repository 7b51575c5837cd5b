package repository

import (
	"context"
	"time"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

type ReadingRepository interface {
	GetReadings(ctx context.Context, from, to time.Time, stride int) ([]sensorlog.Record, error)
	GetLatestReading(ctx context.Context) (sensorlog.Record, bool, error)
	Location() *time.Location
}

type repositoryImpl struct {
	scanner *sensorlog.Scanner
}

// NewRepository serves readings straight from the sensor log. Every call
// opens the file read-only and scans it backwards.
func NewRepository(scanner *sensorlog.Scanner) ReadingRepository {
	return &repositoryImpl{scanner: scanner}
}

// GetReadings returns the records in [from, to), oldest first, keeping every
// stride-th line counted from the end of the log.
func (r *repositoryImpl) GetReadings(ctx context.Context, from, to time.Time, stride int) ([]sensorlog.Record, error) {
	return r.scanner.Records(ctx, from, to, sensorlog.ScanOptions{Stride: stride})
}

func (r *repositoryImpl) GetLatestReading(ctx context.Context) (sensorlog.Record, bool, error) {
	return r.scanner.Latest(ctx)
}

func (r *repositoryImpl) Location() *time.Location {
	return r.scanner.Location()
}
