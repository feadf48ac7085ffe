package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"github.com/mkmtelecom/outagemon/internal/event"
)

// Generator renders the static HTML outage report.
type Generator struct {
	path string
	tmpl *template.Template
}

// New returns a generator writing to path.
func New(path string) *Generator {
	return &Generator{
		path: path,
		tmpl: template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// Path returns the output file path.
func (g *Generator) Path() string {
	return g.path
}

// Generate writes the report for the given events. The output depends only on
// the event list, so regenerating without new events is a no-op byte-wise.
func (g *Generator) Generate(events []event.Outage) error {
	html, err := g.Render(events)
	if err != nil {
		return err
	}
	if err := os.WriteFile(g.path, html, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Render produces the report HTML without touching the filesystem.
func (g *Generator) Render(events []event.Outage) ([]byte, error) {
	data, err := buildReportData(events)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

type reportData struct {
	Total          int
	Cards          []card
	ChartLabels    template.JS
	ChartCounts    template.JS
	ChartDurations template.JS
	TimelineLabels template.JS
	TimelineCounts template.JS
	TimelineHosts  template.JS
}

type card struct {
	Target        string
	Date          string
	DownAt        string
	UpAt          string
	Duration      string
	SeverityClass string
	SeverityLabel string
}

func buildReportData(events []event.Outage) (reportData, error) {
	sorted := make([]event.Outage, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Time().After(sorted[j].Start.Time())
	})

	cards := make([]card, 0, len(sorted))
	for _, ev := range sorted {
		start := ev.Start.Time()
		end := ev.End.Time()
		severityClass, severityLabel := severity(ev.DurationS)
		cards = append(cards, card{
			Target:        ev.Target,
			Date:          start.Format("02/01/2006"),
			DownAt:        start.Format("15:04:05"),
			UpAt:          end.Format("15:04:05"),
			Duration:      FormatDuration(ev.DurationS),
			SeverityClass: severityClass,
			SeverityLabel: severityLabel,
		})
	}

	// Per-target aggregates keyed in first-seen order.
	type targetStats struct {
		count    int
		duration float64
	}
	var labels []string
	stats := make(map[string]*targetStats)
	for _, ev := range events {
		st, ok := stats[ev.Target]
		if !ok {
			st = &targetStats{}
			stats[ev.Target] = st
			labels = append(labels, ev.Target)
		}
		st.count++
		st.duration += ev.DurationS
	}
	counts := make([]int, len(labels))
	durations := make([]float64, len(labels))
	for i, label := range labels {
		counts[i] = stats[label].count
		durations[i] = roundTenth(stats[label].duration)
	}

	// Hourly timeline buckets.
	buckets := make(map[time.Time]map[string]struct{})
	bucketCounts := make(map[time.Time]int)
	for _, ev := range events {
		hour := ev.Start.Time().Truncate(time.Hour)
		if buckets[hour] == nil {
			buckets[hour] = make(map[string]struct{})
		}
		buckets[hour][ev.Target] = struct{}{}
		bucketCounts[hour]++
	}
	hours := make([]time.Time, 0, len(buckets))
	for hour := range buckets {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	timelineLabels := make([]string, len(hours))
	timelineCounts := make([]int, len(hours))
	timelineHosts := make([][]string, len(hours))
	for i, hour := range hours {
		timelineLabels[i] = fmt.Sprintf("%s:00", hour.Format("02/01 15"))
		timelineCounts[i] = bucketCounts[hour]
		hosts := make([]string, 0, len(buckets[hour]))
		for host := range buckets[hour] {
			hosts = append(hosts, host)
		}
		sort.Strings(hosts)
		timelineHosts[i] = hosts
	}

	data := reportData{Total: len(events), Cards: cards}
	for _, bind := range []struct {
		dst *template.JS
		src interface{}
	}{
		{&data.ChartLabels, labels},
		{&data.ChartCounts, counts},
		{&data.ChartDurations, durations},
		{&data.TimelineLabels, timelineLabels},
		{&data.TimelineCounts, timelineCounts},
		{&data.TimelineHosts, timelineHosts},
	} {
		encoded, err := jsArray(bind.src)
		if err != nil {
			return reportData{}, err
		}
		*bind.dst = encoded
	}
	return data, nil
}

func jsArray(v interface{}) (template.JS, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode chart data: %w", err)
	}
	if string(encoded) == "null" {
		encoded = []byte("[]")
	}
	return template.JS(encoded), nil
}

func severity(durationS float64) (class, label string) {
	switch {
	case durationS < 30:
		return "severity-low", "Short"
	case durationS < 120:
		return "severity-medium", "Medium"
	default:
		return "severity-high", "Long"
	}
}

// FormatDuration renders seconds as "3m 20s" or "12.5s".
func FormatDuration(durationS float64) string {
	if durationS >= 60 {
		mins := int(durationS) / 60
		secs := int(durationS) % 60
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%.1fs", durationS)
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Connection Outage Report</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    * { box-sizing: border-box; }
    body {
      font-family: "Segoe UI", Tahoma, Geneva, Verdana, sans-serif;
      margin: 0;
      padding: 20px;
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      min-height: 100vh;
    }
    .container { max-width: 1200px; margin: 0 auto; }
    h1, h2 { color: white; text-shadow: 1px 1px 2px rgba(0,0,0,0.3); }
    h1 { text-align: center; }
    .summary { text-align: center; color: rgba(255,255,255,0.9); margin-bottom: 30px; }
    .charts-container {
      display: grid;
      grid-template-columns: repeat(auto-fit, minmax(400px, 1fr));
      gap: 20px;
      margin-bottom: 40px;
    }
    .chart-box, .chart-box-full {
      background: white;
      border-radius: 12px;
      padding: 20px;
      box-shadow: 0 4px 15px rgba(0,0,0,0.2);
    }
    .chart-box-full { margin-bottom: 30px; }
    .chart-title { text-align: center; font-weight: 600; color: #333; margin-bottom: 15px; }
    .cards-grid {
      display: grid;
      grid-template-columns: repeat(auto-fill, minmax(300px, 1fr));
      gap: 20px;
    }
    .card {
      background: white;
      border-radius: 12px;
      box-shadow: 0 4px 15px rgba(0,0,0,0.2);
      overflow: hidden;
    }
    .card-header {
      padding: 15px 20px;
      display: flex;
      justify-content: space-between;
      align-items: center;
    }
    .severity-low .card-header { background: linear-gradient(90deg, #28a745, #5cb85c); }
    .severity-medium .card-header { background: linear-gradient(90deg, #ffc107, #ffca2c); }
    .severity-high .card-header { background: linear-gradient(90deg, #dc3545, #e4606d); }
    .target { font-weight: bold; color: white; font-size: 1.1em; }
    .severity-badge {
      background: rgba(255,255,255,0.3);
      color: white;
      padding: 4px 10px;
      border-radius: 20px;
      font-size: 0.8em;
      font-weight: bold;
    }
    .card-body { padding: 20px; }
    .info-row {
      display: flex;
      justify-content: space-between;
      padding: 8px 0;
      border-bottom: 1px solid #eee;
    }
    .info-row:last-of-type { border-bottom: none; }
    .label { color: #666; }
    .value { color: #333; font-weight: 600; }
    .duration-display {
      margin-top: 15px;
      padding: 15px;
      background: #f8f9fa;
      border-radius: 8px;
      text-align: center;
    }
    .duration-value { font-size: 1.8em; font-weight: bold; color: #dc3545; }
    .no-events { text-align: center; color: white; padding: 50px; font-size: 1.2em; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Connection Outage Report</h1>
    <p class="summary">Recorded outages: <strong>{{.Total}}</strong></p>

    <div class="charts-container">
      <div class="chart-box">
        <div class="chart-title">Outages per target</div>
        <canvas id="countChart"></canvas>
      </div>
      <div class="chart-box">
        <div class="chart-title">Total offline seconds per target</div>
        <canvas id="durationChart"></canvas>
      </div>
    </div>

    <div class="chart-box-full">
      <div class="chart-title">Outages per hour</div>
      <canvas id="timelineChart" height="100"></canvas>
    </div>

    <h2>History</h2>
    <div class="cards-grid">
      {{- if .Cards}}
      {{- range .Cards}}
      <div class="card {{.SeverityClass}}">
        <div class="card-header">
          <span class="target">{{.Target}}</span>
          <span class="severity-badge">{{.SeverityLabel}}</span>
        </div>
        <div class="card-body">
          <div class="info-row"><span class="label">Date</span><span class="value">{{.Date}}</span></div>
          <div class="info-row"><span class="label">Down at</span><span class="value">{{.DownAt}}</span></div>
          <div class="info-row"><span class="label">Back at</span><span class="value">{{.UpAt}}</span></div>
          <div class="duration-display">
            <span class="label">Time offline</span><br>
            <span class="duration-value">{{.Duration}}</span>
          </div>
        </div>
      </div>
      {{- end}}
      {{- else}}
      <div class="no-events">No outages recorded yet.</div>
      {{- end}}
    </div>
  </div>

  <script>
    const labels = {{.ChartLabels}};
    const countData = {{.ChartCounts}};
    const durationData = {{.ChartDurations}};

    new Chart(document.getElementById('countChart'), {
      type: 'bar',
      data: {
        labels: labels,
        datasets: [{
          label: 'Outages',
          data: countData,
          backgroundColor: 'rgba(220, 53, 69, 0.7)',
          borderColor: 'rgba(220, 53, 69, 1)',
          borderWidth: 2
        }]
      },
      options: {
        responsive: true,
        plugins: { legend: { display: false } },
        scales: { y: { beginAtZero: true, ticks: { stepSize: 1 } } }
      }
    });

    new Chart(document.getElementById('durationChart'), {
      type: 'bar',
      data: {
        labels: labels,
        datasets: [{
          label: 'Seconds offline',
          data: durationData,
          backgroundColor: 'rgba(102, 126, 234, 0.7)',
          borderColor: 'rgba(102, 126, 234, 1)',
          borderWidth: 2
        }]
      },
      options: {
        responsive: true,
        plugins: { legend: { display: false } },
        scales: { y: { beginAtZero: true } }
      }
    });

    const timelineLabels = {{.TimelineLabels}};
    const timelineCounts = {{.TimelineCounts}};
    const timelineHosts = {{.TimelineHosts}};

    const pointRadii = timelineCounts.map(c => c >= 3 ? 15 : (c >= 2 ? 10 : 6));
    const pointColors = timelineCounts.map(c =>
      c >= 3 ? 'rgba(220, 53, 69, 1)' : (c >= 2 ? 'rgba(255, 193, 7, 1)' : 'rgba(102, 126, 234, 1)')
    );

    new Chart(document.getElementById('timelineChart'), {
      type: 'line',
      data: {
        labels: timelineLabels,
        datasets: [{
          label: 'Outages per hour',
          data: timelineCounts,
          borderColor: 'rgba(102, 126, 234, 0.5)',
          backgroundColor: 'rgba(102, 126, 234, 0.1)',
          borderWidth: 2,
          fill: true,
          tension: 0.3,
          pointRadius: pointRadii,
          pointBackgroundColor: pointColors
        }]
      },
      options: {
        responsive: true,
        plugins: {
          legend: { display: false },
          tooltip: {
            callbacks: {
              label: function(context) {
                const idx = context.dataIndex;
                return ['Outages: ' + timelineCounts[idx], 'Targets: ' + timelineHosts[idx].join(', ')];
              }
            }
          }
        },
        scales: {
          y: { beginAtZero: true, ticks: { stepSize: 1 } }
        }
      }
    });
  </script>
</body>
</html>
`
