package sampler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// FormatRecord renders rec as a log line without the trailing newline.
// Legacy records have five fields; dual-sensor records add the empty
// reserved field and the exterior reading.
func FormatRecord(rec sensorlog.Record) string {
	fields := []string{
		rec.Time.Format(sensorlog.TimeLayout),
		formatFloat(rec.Interior.Temperature),
		formatFloat(rec.Interior.Humidity),
		formatFloat(rec.Interior.Pressure),
		formatFloat(rec.AnalogTemp),
	}
	if rec.HasExterior() {
		fields = append(fields, "",
			formatFloat(rec.Exterior.Temperature),
			formatFloat(rec.Exterior.Humidity),
			formatFloat(rec.Exterior.Pressure),
		)
	}
	return strings.Join(fields, "\t")
}

// NaN is written as "NaN", which strconv.ParseFloat reads back.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// LogFile appends records to the sensor log. Each line is written with a
// single write call so concurrent readers never see a partial line.
type LogFile struct {
	mu   sync.Mutex
	file *os.File
}

func OpenLogFile(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &LogFile{file: f}, nil
}

func (l *LogFile) Append(rec sensorlog.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.file.WriteString(FormatRecord(rec) + "\n")
	return err
}

func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
