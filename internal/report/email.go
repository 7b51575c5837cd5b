package report

import (
	"embed"
	"html/template"
	"io"
	"math"
	"strconv"
)

//go:embed templates/email.html
var templatesFS embed.FS

var emailTmpl = template.Must(template.ParseFS(templatesFS, "templates/email.html"))

// Decimal places used in the digest table.
const (
	temperaturePrecision = 2
	humidityPrecision    = 1
	pressurePrecision    = 3
)

// Row is one line of the averages table, already formatted.
type Row struct {
	Day            string
	IntTemperature string
	IntHumidity    string
	IntPressure    string
	ExtTemperature string
	ExtHumidity    string
	ExtPressure    string
}

// EmailData is the view model of the digest email body.
type EmailData struct {
	WeekNumber     int
	Year           int
	Label          string
	DashboardURL   string
	UnsubscribeURL string
	ImageCID       string
	Rows           []Row
}

// NewEmailData computes the table of w. imageCID is the Content-ID of the
// inline chart, without angle brackets.
func NewEmailData(w *Week, dashboardURL, unsubscribeURL, imageCID string) EmailData {
	year, week := w.ISOWeek()
	data := EmailData{
		WeekNumber:     week,
		Year:           year,
		Label:          w.Label(),
		DashboardURL:   dashboardURL,
		UnsubscribeURL: unsubscribeURL,
		ImageCID:       imageCID,
		Rows:           make([]Row, 0, len(w.Days)),
	}
	for _, d := range w.Days {
		avg := d.Averages()
		data.Rows = append(data.Rows, Row{
			Day:            d.Label(),
			IntTemperature: FormatValue(avg.Interior.Temperature, temperaturePrecision),
			IntHumidity:    FormatValue(avg.Interior.Humidity, humidityPrecision),
			IntPressure:    FormatValue(avg.Interior.Pressure, pressurePrecision),
			ExtTemperature: FormatValue(avg.Exterior.Temperature, temperaturePrecision),
			ExtHumidity:    FormatValue(avg.Exterior.Humidity, humidityPrecision),
			ExtPressure:    FormatValue(avg.Exterior.Pressure, pressurePrecision),
		})
	}
	return data
}

// FormatValue rounds v to prec decimals. NaN is written as "nan".
func FormatValue(v float64, prec int) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// RenderEmail writes the HTML body of the digest.
func RenderEmail(w io.Writer, data EmailData) error {
	return emailTmpl.ExecuteTemplate(w, "email.html", data)
}
