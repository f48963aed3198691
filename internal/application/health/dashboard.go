package health

import (
	"bytes"
	"html/template"
	"sort"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Car Import API · Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    body { font-family: system-ui, sans-serif; background: #f8f9fa; color: #1f2937; margin: 0; padding: 2rem; }
    .card { background: #fff; border-radius: 12px; padding: 1.25rem 1.5rem; margin-bottom: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
    h1 { font-size: 1.4rem; margin: 0 0 .25rem; }
    .ok { color: #047857; } .issue { color: #b45309; }
    table { border-collapse: collapse; width: 100%; }
    td { padding: .35rem 0; border-bottom: 1px solid #eef0f2; }
    td:last-child { text-align: right; font-variant-numeric: tabular-nums; }
    a { color: #2563eb; }
  </style>
</head>
<body>
  <div class="card">
    <h1>Car Import API</h1>
    {{if eq .Status "ok"}}<strong class="ok">All Systems Operational</strong>{{else}}<strong class="issue">Degraded: check dependencies</strong>{{end}}
  </div>
  <div class="card">
    <h2>Traffic</h2>
    <table>
      <tr><td>Total requests</td><td>{{.Traffic.TotalRequests}}</td></tr>
      <tr><td>Failed</td><td>{{.Traffic.FailedCount}}</td></tr>
      <tr><td>Success rate</td><td>{{.Traffic.SuccessRate}}%</td></tr>
      <tr><td>Avg response</td><td>{{.Traffic.AvgResponseTime}} ms</td></tr>
    </table>
  </div>
  <div class="card">
    <h2>Dependencies</h2>
    <table>
      {{range .Deps}}<tr><td>{{.Name}}</td><td class="{{if or (eq .Status "connected") (eq .Status "reachable")}}ok{{else}}issue{{end}}">{{.Status}}{{if .PingMs}} ({{.PingMs}} ms){{end}}</td></tr>
      {{end}}
    </table>
  </div>
  <div class="card">
    <h2>Runtime</h2>
    <table>
      <tr><td>Uptime</td><td>{{.Runtime.UptimeSeconds}} s</td></tr>
      <tr><td>Memory</td><td>{{.Runtime.Memory.AllocMB}} MB</td></tr>
      <tr><td>Goroutines</td><td>{{.Runtime.Goroutines}}</td></tr>
      <tr><td>Platform</td><td>{{.Runtime.Platform}} · {{.Runtime.GoVersion}}</td></tr>
    </table>
  </div>
  <p><a href="/health/json">/health/json</a> · <a href="/health/errors">/health/errors</a></p>
</body>
</html>
`))

type depRow struct {
	Name   string
	Status string
	PingMs *int64
}

// RenderDashboard returns the HTML status page for GET /.
func RenderDashboard(r Result) (string, error) {
	deps := make([]depRow, 0, len(r.Dependencies))
	for name, d := range r.Dependencies {
		deps = append(deps, depRow{Name: name, Status: d.Status, PingMs: d.PingMs})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	var buf bytes.Buffer
	err := dashboardTmpl.Execute(&buf, struct {
		Result
		Deps []depRow
	}{r, deps})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
