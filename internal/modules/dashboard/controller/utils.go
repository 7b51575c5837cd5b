package controller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gafc98/temperature-logger/internal/chart"
)

const defaultRangeIndex = 0

// rangeDays maps a range selector index to the number of days shown.
var rangeDays = []int{1, 2, 3, 4, 5, 6, 7, 14, 28, 56}

type dashRange struct {
	Index int
	Days  int
}

// Stride keeps one line in Days, so longer ranges read a similar number of
// points as a single day.
func (r dashRange) Stride() int { return r.Days }

func (r dashRange) Ticks() string {
	if r.Index > 1 {
		return chart.DayHourTicks
	}
	return chart.HourTicks
}

func (r dashRange) Label() string { return fmt.Sprintf("%d days", r.Days) }

// window returns [now - Days, now).
func (r dashRange) window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -r.Days), now
}

// resolveRange parses the range query value. An empty key selects the
// default range; an invalid one returns the default and false.
func resolveRange(key string) (dashRange, bool) {
	def := dashRange{Index: defaultRangeIndex, Days: rangeDays[defaultRangeIndex]}
	if key == "" {
		return def, true
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(rangeDays) {
		return def, false
	}
	return dashRange{Index: i, Days: rangeDays[i]}, true
}
