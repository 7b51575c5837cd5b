package report

import (
	"math"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// Mean returns the arithmetic mean of xs, or NaN when xs is empty.
// A NaN element makes the result NaN.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Averages are the per-field means of one day.
type Averages struct {
	Interior sensorlog.Reading
	Exterior sensorlog.Reading
}

// Averages computes the daily means. Legacy records contribute NaN exterior
// values, so any legacy record in the day turns the exterior means into NaN.
func (d Day) Averages() Averages {
	n := len(d.Records)
	cols := make([][]float64, 6)
	for i := range cols {
		cols[i] = make([]float64, 0, n)
	}
	for _, r := range d.Records {
		cols[0] = append(cols[0], r.Interior.Temperature)
		cols[1] = append(cols[1], r.Interior.Humidity)
		cols[2] = append(cols[2], r.Interior.Pressure)
		cols[3] = append(cols[3], r.Exterior.Temperature)
		cols[4] = append(cols[4], r.Exterior.Humidity)
		cols[5] = append(cols[5], r.Exterior.Pressure)
	}
	return Averages{
		Interior: sensorlog.Reading{Temperature: Mean(cols[0]), Humidity: Mean(cols[1]), Pressure: Mean(cols[2])},
		Exterior: sensorlog.Reading{Temperature: Mean(cols[3]), Humidity: Mean(cols[4]), Pressure: Mean(cols[5])},
	}
}
