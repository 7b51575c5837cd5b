package views

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadTemplates_success(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates() = %v; want nil", err)
	}
	if dashboardTmpl == nil {
		t.Fatal("LoadTemplates() left dashboardTmpl nil")
	}
}

func TestLoadTemplates_failure_sub(t *testing.T) {
	// Empty FS has no "templates" directory; ParseFS matches nothing.
	if err := loadTemplatesFromFS(fstest.MapFS{}, "templates"); err == nil {
		t.Fatal("loadTemplatesFromFS(emptyFS) = nil; want error")
	}
}

func TestLoadTemplates_failure_parse(t *testing.T) {
	badFS := fstest.MapFS{
		"templates/base.html": {Data: []byte("{{ .")},
	}
	if err := loadTemplatesFromFS(badFS, "templates"); err == nil {
		t.Fatal("loadTemplatesFromFS(badFS) = nil; want error")
	}
}

func TestRenderDashboard_notLoaded(t *testing.T) {
	prev := dashboardTmpl
	dashboardTmpl = nil
	t.Cleanup(func() { dashboardTmpl = prev })

	var buf bytes.Buffer
	err := RenderDashboard(&buf, &DashboardData{})
	if err == nil || !strings.Contains(err.Error(), "not loaded") {
		t.Fatalf("RenderDashboard() = %v; want not loaded error", err)
	}
	if err := RenderLatestPartial(&buf, nil); err == nil {
		t.Fatal("RenderLatestPartial() = nil; want error when templates not loaded")
	}
}

func TestRenderDashboard(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	data := &DashboardData{
		MaxDays:    56,
		RangeIndex: 1,
		Ranges: []RangeOption{
			{Index: 0, Label: "1 days"},
			{Index: 1, Label: "2 days", Selected: true},
		},
		Charts: []ChartView{
			{Name: "temperature", Title: "Temperature", URL: "/charts/temperature.svg?range=1"},
		},
		UnsubscribeLink: "https://forms.example/newsletter",
		Latest: &LatestData{
			Time: "Mon Jan 01 12:00:00 2024",
			Kind: "dual-sensor",
			Rows: []SensorRow{{Sensor: "Interior", Temperature: "21.00", Humidity: "50.0", Pressure: "1.010"}},
		},
	}
	var buf bytes.Buffer
	if err := RenderDashboard(&buf, data); err != nil {
		t.Fatalf("RenderDashboard() = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Weather Dashboard",
		"up to the past 56 days",
		`<a href="/?range=1" class="selected">2 days</a>`,
		`src="/charts/temperature.svg?range=1"`,
		"https://forms.example/newsletter",
		"<td>21.00</td>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderDashboard_noLinkNoReading(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	var buf bytes.Buffer
	if err := RenderDashboard(&buf, &DashboardData{MaxDays: 56}); err != nil {
		t.Fatalf("RenderDashboard(empty data) = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "weekly newsletter") {
		t.Error("newsletter sentence rendered without a link")
	}
	if !strings.Contains(out, "No readings logged yet.") {
		t.Error("empty state missing")
	}
}

func TestRenderLatestPartial(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	var buf bytes.Buffer
	err := RenderLatestPartial(&buf, &LatestData{
		Time:   "Mon Jan 01 12:00:00 2024",
		Kind:   "legacy",
		Rows:   []SensorRow{{Sensor: "Interior", Temperature: "21.00", Humidity: "50.0", Pressure: "1.010"}},
		Analog: "19.50",
	})
	if err != nil {
		t.Fatalf("RenderLatestPartial() = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<html") {
		t.Error("partial rendered the full layout")
	}
	if !strings.Contains(out, "Analog sensor: 19.50") {
		t.Errorf("output missing analog value; got %q", out)
	}
}
