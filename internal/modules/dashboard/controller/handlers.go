package controller

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/gafc98/temperature-logger/internal/chart"
	"github.com/gafc98/temperature-logger/internal/modules/dashboard/types"
	"github.com/gafc98/temperature-logger/internal/modules/dashboard/views"
	"github.com/gafc98/temperature-logger/internal/report"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
	"github.com/gafc98/temperature-logger/internal/utils"
)

const (
	chartWidth         = 10 * vg.Inch
	chartHeight        = 4 * vg.Inch
	climateChartHeight = 7 * vg.Inch
)

var chartTitles = map[string]string{
	"climate":     "Temperature and Humidity",
	"temperature": "Temperature",
	"humidity":    "Relative Humidity",
	"pressure":    "Atmospheric Pressure",
	"analog":      "Old Analog Temperature Sensor (deprecated)",
}

// readings scans the window of rng. A log file that does not exist yet reads
// as empty.
func (c *dashboardControllerImpl) readings(ctx context.Context, rng dashRange) ([]sensorlog.Record, time.Time, time.Time, error) {
	from, to := rng.window(c.now())
	recs, err := c.repository.GetReadings(ctx, from, to, rng.Stride())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, from, to, nil
	}
	return recs, from, to, err
}

func (c *dashboardControllerImpl) latest(ctx context.Context) (*views.LatestData, error) {
	rec, ok, err := c.repository.GetLatestReading(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil || !ok {
		return nil, err
	}
	return latestView(rec), nil
}

func latestView(rec sensorlog.Record) *views.LatestData {
	row := func(name string, r sensorlog.Reading) views.SensorRow {
		return views.SensorRow{
			Sensor:      name,
			Temperature: report.FormatValue(r.Temperature, 2),
			Humidity:    report.FormatValue(r.Humidity, 1),
			Pressure:    report.FormatValue(r.Pressure, 3),
		}
	}
	data := &views.LatestData{
		Time:   rec.Time.Format(sensorlog.TimeLayout),
		Kind:   rec.Kind.String(),
		Rows:   []views.SensorRow{row("Interior", rec.Interior)},
		Analog: report.FormatValue(rec.AnalogTemp, 2),
	}
	if rec.HasExterior() {
		data.Rows = append(data.Rows, row("Exterior", rec.Exterior))
	}
	return data
}

func (c *dashboardControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("range")
	rng, ok := resolveRange(key)
	if !ok {
		slog.Warn("dashboard: invalid range", "range", key)
	}

	latest, err := c.latest(r.Context())
	if err != nil {
		slog.Error("dashboard: get latest reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read sensor log")
		return
	}

	data := views.DashboardData{
		MaxDays:         rangeDays[len(rangeDays)-1],
		RangeIndex:      rng.Index,
		UnsubscribeLink: c.unsubscribeLink,
		Latest:          latest,
	}
	for i, days := range rangeDays {
		opt := dashRange{Index: i, Days: days}
		data.Ranges = append(data.Ranges, views.RangeOption{Index: i, Label: opt.Label(), Selected: i == rng.Index})
	}
	for _, name := range chart.Names {
		data.Charts = append(data.Charts, views.ChartView{
			Name:  name,
			Title: chartTitles[name],
			URL:   "/charts/" + name + ".svg?range=" + strconv.Itoa(rng.Index),
		})
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, &data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *dashboardControllerImpl) handleLatestPartial(w http.ResponseWriter, r *http.Request) {
	latest, err := c.latest(r.Context())
	if err != nil {
		slog.Error("latest partial: get latest reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read sensor log")
		return
	}
	var buf bytes.Buffer
	if err := views.RenderLatestPartial(&buf, latest); err != nil {
		slog.Error("latest partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *dashboardControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok || !slices.Contains(chart.Names, name) {
		utils.WriteError(w, http.StatusNotFound, "unknown chart")
		return
	}
	rng, ok := resolveRange(r.URL.Query().Get("range"))
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "invalid 'range' (expected 0-9)")
		return
	}

	recs, _, _, err := c.readings(r.Context(), rng)
	if err != nil {
		slog.Error("chart: scan failed", "chart", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read sensor log")
		return
	}
	p, err := chart.Dashboard(name, recs, rng.Ticks(), c.repository.Location())
	if err != nil {
		slog.Error("chart: build failed", "chart", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build chart")
		return
	}

	height := chartHeight
	if name == "climate" {
		height = climateChartHeight
	}
	var buf bytes.Buffer
	if err := chart.WriteSVG(&buf, p, chartWidth, height); err != nil {
		slog.Error("chart: render failed", "chart", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	utils.WriteBody(w, http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (c *dashboardControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	rng, ok := resolveRange(r.URL.Query().Get("range"))
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "invalid 'range' (expected 0-9)")
		return
	}

	recs, from, to, err := c.readings(r.Context(), rng)
	if err != nil {
		slog.Error("readings: scan failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read sensor log")
		return
	}

	items := make([]types.Reading, 0, len(recs))
	for _, rec := range recs {
		items = append(items, types.FromRecord(rec))
	}
	utils.WriteJSON(w, http.StatusOK, types.Readings{
		RangeDays: rng.Days,
		Stride:    rng.Stride(),
		From:      from,
		To:        to,
		Items:     items,
	})
}
