package app

import (
	"context"
	"log/slog"

	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/sampler"
)

// RunSensorLogger samples the I2C sensors and appends one averaged line to
// cfg.LogFile per cfg.SamplePeriod until ctx is canceled.
func RunSensorLogger(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing sensor logger",
		"log_file", cfg.LogFile,
		"i2c_bus", cfg.I2CBus,
		"interior_addr", cfg.BME280InteriorAddr,
		"exterior_addr", cfg.BME280ExteriorAddr,
		"ads1115_addr", cfg.ADS1115Addr,
	)

	devices, err := sampler.OpenDevices(sampler.BusOptions{
		Bus:          cfg.I2CBus,
		InteriorAddr: cfg.BME280InteriorAddr,
		ExteriorAddr: cfg.BME280ExteriorAddr,
		ADS1115Addr:  cfg.ADS1115Addr,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := devices.Close(); err != nil {
			slog.Error("close devices failed", "error", err)
		}
	}()

	logFile, err := sampler.OpenLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	s := sampler.New(sampler.Options{
		Period:  cfg.SamplePeriod,
		Samples: cfg.SamplesPerPeriod,
	}, devices.Interior, devices.Exterior, devices.Analog, nil, slog.Default())
	return s.Run(ctx, logFile)
}
