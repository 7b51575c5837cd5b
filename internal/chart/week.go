package chart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gafc98/temperature-logger/internal/report"
)

// Size of one tile of the weekly grid.
const (
	tileWidth  = 5 * vg.Inch
	tileHeight = 3 * vg.Inch
)

var weekMetrics = []Metric{Temperature, Humidity, Pressure}

// WeekGrid draws one row per day of w and one column per metric, interior
// and exterior side by side, and writes the figure to out as PNG.
func WeekGrid(out io.Writer, w *report.Week) error {
	if len(w.Days) == 0 {
		return errors.New("week has no days")
	}

	rows, cols := len(w.Days), len(weekMetrics)
	plots := make([][]*plot.Plot, rows)
	for i, day := range w.Days {
		plots[i] = make([]*plot.Plot, cols)
		for j, m := range weekMetrics {
			p, err := series(m, day.Records, day.Label(), HourTicks, day.Start.Location())
			if err != nil {
				return err
			}
			// pin the axis to the whole day so empty hours stay visible
			p.X.Min = float64(day.Start.Unix())
			p.X.Max = float64(day.End.Add(-time.Second).Unix())
			plots[i][j] = p
		}
	}

	titleHeight := vg.Inch / 2
	img := vgimg.New(vg.Length(cols)*tileWidth, vg.Length(rows)*tileHeight+titleHeight)
	dc := draw.New(img)

	year, week := w.ISOWeek()
	title := fmt.Sprintf("Weather report of week %02d of %d", week, year)
	sty := plot.New().Title.TextStyle
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y}, title)

	body := dc
	body.Max.Y -= titleHeight
	tiles := draw.Tiles{
		Rows:   rows,
		Cols:   cols,
		PadX:   vg.Millimeter * 4,
		PadY:   vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, body)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(out); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
