// Package chart draws the weather figures: a PNG grid for the weekly digest
// and single SVG charts for the dashboard.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// ErrUnknownChart is returned for chart names the dashboard does not serve.
var ErrUnknownChart = errors.New("unknown chart")

// Tick formats for the time axis.
const (
	HourTicks    = "15:04"
	DayHourTicks = "02/01 15:04"
)

// Metric selects one value of a record.
type Metric int

const (
	Temperature Metric = iota
	Humidity
	Pressure
	Analog
)

type metricInfo struct {
	title string
	unit  string
}

var metrics = map[Metric]metricInfo{
	Temperature: {title: "Temperature", unit: "T [°C]"},
	Humidity:    {title: "Relative Humidity", unit: "H [%]"},
	Pressure:    {title: "Atmospheric Pressure", unit: "P [bar]"},
	Analog:      {title: "Old Analog Temperature Sensor (deprecated)", unit: "T [°C]"},
}

func (m Metric) String() string {
	if info, ok := metrics[m]; ok {
		return info.title
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

func interior(m Metric, r sensorlog.Record) float64 {
	switch m {
	case Temperature:
		return r.Interior.Temperature
	case Humidity:
		return r.Interior.Humidity
	case Pressure:
		return r.Interior.Pressure
	case Analog:
		return r.AnalogTemp
	}
	return math.NaN()
}

func exterior(m Metric, r sensorlog.Record) float64 {
	switch m {
	case Temperature:
		return r.Exterior.Temperature
	case Humidity:
		return r.Exterior.Humidity
	case Pressure:
		return r.Exterior.Pressure
	}
	return math.NaN()
}

// points collects (unix seconds, value) pairs, dropping NaN values.
func points(recs []sensorlog.Record, value func(sensorlog.Record) float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(recs))
	for _, r := range recs {
		v := value(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(r.Time.Unix()), Y: v})
	}
	return xys
}

func timeTicks(format string, loc *time.Location) plot.TimeTicks {
	if loc == nil {
		loc = time.Local
	}
	return plot.TimeTicks{
		Format: format,
		Time: func(t float64) time.Time {
			return time.Unix(int64(t), 0).In(loc)
		},
	}
}

// series builds the time plot of one metric with an interior and, when any
// record carries it, an exterior line.
func series(m Metric, recs []sensorlog.Record, xlabel, ticks string, loc *time.Location) (*plot.Plot, error) {
	info, ok := metrics[m]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownChart, m)
	}

	p := plot.New()
	p.Title.Text = info.title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = info.unit
	p.X.Tick.Marker = timeTicks(ticks, loc)
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	lines := []struct {
		name  string
		value func(sensorlog.Record) float64
	}{
		{"Interior", func(r sensorlog.Record) float64 { return interior(m, r) }},
		{"Exterior", func(r sensorlog.Record) float64 { return exterior(m, r) }},
	}
	for i, l := range lines {
		xys := points(recs, l.value)
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s %s line: %w", info.title, l.name, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	return p, nil
}

// climate scatters interior temperature against humidity. Points shade from
// cold to warm colors as they get more recent.
func climate(recs []sensorlog.Record) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Temperature and Humidity"
	p.X.Label.Text = "Temperature [°C]"
	p.Y.Label.Text = "Humidity [%]"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, 0, len(recs))
	for _, r := range recs {
		if math.IsNaN(r.Interior.Temperature) || math.IsNaN(r.Interior.Humidity) {
			continue
		}
		xys = append(xys, plotter.XY{X: r.Interior.Temperature, Y: r.Interior.Humidity})
	}
	if len(xys) == 0 {
		return p, nil
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("climate scatter: %w", err)
	}
	n := len(xys)
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  gradient(float64(i) / float64(max(n-1, 1))),
			Radius: vg.Points(2),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(sc)
	return p, nil
}

// gradient maps f in [0, 1] from blue to red.
func gradient(f float64) color.Color {
	f = math.Max(0, math.Min(1, f))
	return color.RGBA{R: uint8(255 * f), G: 64, B: uint8(255 * (1 - f)), A: 204}
}

// Names lists the dashboard charts in page order.
var Names = []string{"climate", "temperature", "humidity", "pressure", "analog"}

// Dashboard builds the named dashboard chart over recs.
func Dashboard(name string, recs []sensorlog.Record, ticks string, loc *time.Location) (*plot.Plot, error) {
	switch name {
	case "climate":
		return climate(recs)
	case "temperature":
		return series(Temperature, recs, "Time", ticks, loc)
	case "humidity":
		return series(Humidity, recs, "Time", ticks, loc)
	case "pressure":
		return series(Pressure, recs, "Time", ticks, loc)
	case "analog":
		return series(Analog, recs, "Time", ticks, loc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// WriteSVG renders p as an SVG document of the given size.
func WriteSVG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return fmt.Errorf("svg canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}
