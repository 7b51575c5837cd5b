package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gafc98/temperature-logger/internal/config"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// PrintLogs writes every log line newer than the ctime timestamp ref to w,
// newest first, and returns the number of lines written.
func PrintLogs(ctx context.Context, cfg config.Config, ref string, w io.Writer) (int, error) {
	t, err := time.ParseInLocation(sensorlog.TimeLayout, strings.TrimSpace(ref), time.Local)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q (expected %q): %w", ref, sensorlog.TimeLayout, err)
	}
	return sensorlog.NewScanner(cfg.LogFile, time.Local).Since(ctx, t, w)
}
