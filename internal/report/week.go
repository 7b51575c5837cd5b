// Package report groups a week of log records into calendar days and turns
// the daily averages into the digest email.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// DaysPerWeek is the number of day buckets in a digest.
const DaysPerWeek = 7

// DayLayout formats the row labels of the digest table.
const DayLayout = "Mon, 02-01-2006"

// Source is the part of the log scanner a report needs.
type Source interface {
	Records(ctx context.Context, from, to time.Time, opts sensorlog.ScanOptions) ([]sensorlog.Record, error)
}

// Day holds the records of one calendar day, [Start, End).
type Day struct {
	Start   time.Time
	End     time.Time
	Records []sensorlog.Record
}

// Label returns the day formatted for the digest table.
func (d Day) Label() string {
	return d.Start.Format(DayLayout)
}

// Week is the seven days before a reference midnight.
type Week struct {
	Days []Day
}

// Start returns the midnight the first day begins at.
func (w *Week) Start() time.Time {
	if len(w.Days) == 0 {
		return time.Time{}
	}
	return w.Days[0].Start
}

// End returns the exclusive end of the last day.
func (w *Week) End() time.Time {
	if len(w.Days) == 0 {
		return time.Time{}
	}
	return w.Days[len(w.Days)-1].End
}

// ISOWeek returns the ISO year and week number of the first day.
func (w *Week) ISOWeek() (year, week int) {
	return w.Start().ISOWeek()
}

// Label is the short human form of the week, for example "week 01 of 2024".
func (w *Week) Label() string {
	year, week := w.ISOWeek()
	return fmt.Sprintf("week %02d of %d", week, year)
}

// Subject is the digest email subject line.
func (w *Week) Subject() string {
	year, week := w.ISOWeek()
	return fmt.Sprintf("Eindhoven Weather Report - Week %02d of %d", week, year)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BuildWeek scans the seven calendar days before ref's midnight, one bounded
// scan per day. Days without data keep an empty record list.
func BuildWeek(ctx context.Context, src Source, ref time.Time) (*Week, error) {
	end := Midnight(ref)
	week := &Week{Days: make([]Day, 0, DaysPerWeek)}
	for i := range DaysPerWeek {
		start := end.AddDate(0, 0, i-DaysPerWeek)
		next := end.AddDate(0, 0, i-DaysPerWeek+1)
		recs, err := src.Records(ctx, start, next, sensorlog.ScanOptions{})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", start.Format(time.DateOnly), err)
		}
		week.Days = append(week.Days, Day{Start: start, End: next, Records: recs})
	}
	return week, nil
}
