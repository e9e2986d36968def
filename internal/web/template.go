package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/proximity-switch/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateText": func(ready, on bool) string {
		if !ready {
			return "UNKNOWN"
		}
		return status.OnOff(on)
	},
	"stateClass": func(ready, on bool) string {
		switch {
		case !ready:
			return "unknown"
		case on:
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Proximity Switch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Proximity Switch</h1>

<h2>State</h2>
<table>
<tr><th>Light</th><td id="light-state" class="{{stateClass .Ready .Light}}">{{stateText .Ready .Light}}</td></tr>
<tr><th>Fan</th><td id="fan-state" class="{{stateClass .Ready .Fan}}">{{stateText .Ready .Fan}}</td></tr>
<tr><th>Last average</th><td>{{if .HasAvg}}{{.LastAvgMM}}mm{{else}}n/a{{end}}</td></tr>
<tr><th>Window</th><td>{{.WindowLen}}/{{.Config.ReadCount}}</td></tr>
<tr><th>Cooldown</th><td>{{.Cooldown}}</td></tr>
<tr><th>Last outcome</th><td>{{if .Outcome}}{{.Outcome}}{{else}}n/a{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Light ON</th><td>{{.Counts.LightOn}}</td></tr>
<tr><th>Light OFF</th><td>{{.Counts.LightOff}}</td></tr>
<tr><th>Fan ON</th><td>{{.Counts.FanOn}}</td></tr>
<tr><th>Fan OFF</th><td>{{.Counts.FanOff}}</td></tr>
<tr><th>Automatic</th><td>{{.Counts.Auto}}</td></tr>
<tr><th>Manual</th><td>{{.Counts.Manual}}</td></tr>
<tr><th>Rejected samples</th><td>{{.Counts.Rejected}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopMs}}ms</td></tr>
<tr><th>Settle</th><td>{{.Config.SettleMs}}ms</td></tr>
<tr><th>Thresholds</th><td>high {{.Config.HighTriggerMM}}mm, low {{.Config.LowTriggerMM}}mm, reject &ge;{{.Config.RejectAboveMM}}mm</td></tr>
<tr><th>Cooldown cycles</th><td>{{.Config.CooldownCycles}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
