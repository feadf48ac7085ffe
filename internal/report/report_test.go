package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkmtelecom/outagemon/internal/event"
)

func reportEvents() []event.Outage {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	return []event.Outage{
		event.NewOutage("gw", base, base.Add(12500*time.Millisecond)),
		event.NewOutage("dns", base.Add(30*time.Minute), base.Add(30*time.Minute+90*time.Second)),
		event.NewOutage("gw", base.Add(2*time.Hour), base.Add(2*time.Hour+5*time.Minute)),
	}
}

func TestGenerateWritesReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downtime_report.html")
	g := New(path)

	if err := g.Generate(reportEvents()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)
	for _, want := range []string{"<!DOCTYPE html>", "gw", "dns", "countChart", "durationChart", "timelineChart"} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "report.html"))
	events := reportEvents()

	first, err := g.Render(events)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := g.Render(events)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("render produced different bytes on run %d", i)
		}
	}
}

func TestRenderEmptyEvents(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "report.html"))

	html, err := g.Render(nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(string(html), "[]") {
		t.Errorf("expected empty chart arrays in report")
	}
}

func TestBuildReportDataOrdering(t *testing.T) {
	data, err := buildReportData(reportEvents())
	if err != nil {
		t.Fatalf("buildReportData failed: %v", err)
	}

	if data.Total != 3 {
		t.Fatalf("total = %d, want 3", data.Total)
	}
	if len(data.Cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(data.Cards))
	}
	// Cards newest first.
	if data.Cards[0].Target != "gw" || data.Cards[0].DownAt != "14:00:00" {
		t.Errorf("unexpected first card: %+v", data.Cards[0])
	}
	if data.Cards[2].DownAt != "12:00:00" {
		t.Errorf("unexpected last card: %+v", data.Cards[2])
	}
	// Aggregates in first-seen order.
	if string(data.ChartLabels) != `["gw","dns"]` {
		t.Errorf("unexpected chart labels: %s", data.ChartLabels)
	}
	if string(data.ChartCounts) != `[2,1]` {
		t.Errorf("unexpected chart counts: %s", data.ChartCounts)
	}
	// Timeline hours oldest first.
	if !strings.HasPrefix(string(data.TimelineLabels), `["01/03 12:00"`) {
		t.Errorf("unexpected timeline labels: %s", data.TimelineLabels)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		durationS float64
		class     string
		label     string
	}{
		{5, "severity-low", "Short"},
		{29.9, "severity-low", "Short"},
		{30, "severity-medium", "Medium"},
		{119, "severity-medium", "Medium"},
		{120, "severity-high", "Long"},
		{3600, "severity-high", "Long"},
	}
	for _, tc := range tests {
		class, label := severity(tc.durationS)
		if class != tc.class || label != tc.label {
			t.Errorf("severity(%v) = (%q, %q), want (%q, %q)", tc.durationS, class, label, tc.class, tc.label)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		durationS float64
		expected  string
	}{
		{12.5, "12.5s"},
		{59.9, "59.9s"},
		{60, "1m 0s"},
		{200, "3m 20s"},
		{3605, "60m 5s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.durationS); got != tc.expected {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.durationS, got, tc.expected)
		}
	}
}
