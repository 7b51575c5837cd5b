package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates
var viewsFS embed.FS

var dashboardTmpl *template.Template

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	dashboardTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// RangeOption is one entry of the range selector.
type RangeOption struct {
	Index    int
	Label    string
	Selected bool
}

type ChartView struct {
	Name  string
	Title string
	URL   string
}

// SensorRow is one sensor line of the latest reading card, already formatted.
type SensorRow struct {
	Sensor      string
	Temperature string
	Humidity    string
	Pressure    string
}

// LatestData is the view model of the latest reading partial. A nil Rows
// slice renders the empty state.
type LatestData struct {
	Time   string
	Kind   string
	Rows   []SensorRow
	Analog string
}

type DashboardData struct {
	MaxDays         int
	RangeIndex      int
	Ranges          []RangeOption
	Charts          []ChartView
	UnsubscribeLink string
	Latest          *LatestData
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderLatestPartial executes only the latest reading partial into w.
// Use for HTMX fragment refresh.
func RenderLatestPartial(w io.Writer, data *LatestData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/latest.html", data)
}
