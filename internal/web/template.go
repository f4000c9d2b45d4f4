package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/ev-dashboard/internal/logic"
	"github.com/sweeney/ev-dashboard/internal/status"
)

// pageData is what the index template sees. Snapshot methods are copied into
// fields so the template can use them directly.
type pageData struct {
	status.Snapshot
	Uptime   time.Duration
	InState  time.Duration
	Ready    bool
	Active   []string
	Events   []status.EventJSON
	StateTag string
}

func newPageData(snap status.Snapshot) pageData {
	tag := string(snap.State)
	if tag == "" {
		tag = "UNKNOWN"
	}
	return pageData{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		InState:  snap.InState(),
		Ready:    snap.Ready(),
		Active:   status.ActiveWarnings(snap.Warnings),
		Events:   status.RecentJSON(snap.Recent),
		StateTag: tag,
	}
}

// duration renders d as "3d 4h", "4h 5m", "5m 6s" or "6s".
func duration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d / (24 * time.Hour))
	h := int(d/time.Hour) % 24
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// lamp is the CSS class of an indicator.
func lamp(on bool) string {
	if on {
		return "lamp lit"
	}
	return "lamp"
}

// chargeClass colours the charge bar like the panel's battery gauge.
func chargeClass(snap status.Snapshot) string {
	switch {
	case snap.State == logic.StateCharging:
		return "bar charging"
	case snap.Readings.Percent <= snap.Config.Thresholds.LowBatteryPercent:
		return "bar low"
	}
	return "bar"
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration":    duration,
	"lamp":        lamp,
	"chargeClass": chargeClass,
	"title":       func(s string) string { return strings.ReplaceAll(strings.ToLower(s), "_", " ") },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>EV Dashboard</title>
<style>
body { font-family: sans-serif; background: #111; color: #eee; max-width: 720px; margin: 1.5em auto; padding: 0 1em; }
header { display: flex; justify-content: space-between; align-items: baseline; }
.state { font-size: 1.2em; letter-spacing: 0.05em; }
.speed { font-size: 4em; font-weight: bold; text-align: center; margin: 0.2em 0; }
.speed small { font-size: 0.3em; color: #aaa; }
.gauge { background: #333; height: 18px; border-radius: 3px; overflow: hidden; }
.bar { background: #2a2; height: 100%; }
.bar.low { background: #c22; }
.bar.charging { background: #2a2; background-image: repeating-linear-gradient(45deg, transparent, transparent 6px, rgba(255,255,255,.2) 6px, rgba(255,255,255,.2) 12px); }
dl { display: grid; grid-template-columns: 10em 1fr; gap: 4px 12px; }
dt { color: #aaa; }
.lamps span { margin-right: 1em; }
.lamp { color: #444; }
.lamp.lit { color: #3c3; font-weight: bold; }
.badge { display: inline-block; background: #c22; color: #fff; border-radius: 3px; padding: 1px 6px; margin: 2px; }
.up { color: #3c3; } .down { color: #c22; }
table { width: 100%; border-collapse: collapse; font-size: 0.9em; }
td { padding: 3px 6px; border-bottom: 1px solid #333; }
a { color: #8cf; }
#live { font-size: 0.8em; color: #888; }
</style>
</head>
<body>
<header>
<span class="state" id="state">{{.StateTag}}</span>
<span id="live">{{if .Ready}}{{.Cycles}} cycles{{else}}starting{{end}}</span>
</header>

<div class="speed"><span id="speed">{{.Readings.SpeedMPH}}</span> <small>mph</small></div>

<div class="gauge"><div id="charge" class="{{chargeClass .Snapshot}}" style="width: {{.Readings.Percent}}%"></div></div>

<dl>
<dt>Charge</dt><dd id="percent">{{.Readings.Percent}}%</dd>
<dt>Voltage</dt><dd id="voltage">{{.Readings.VoltageMV}} mV</dd>
<dt>Current</dt><dd id="current">{{.Readings.CurrentA}} A</dd>
<dt>Temperature</dt><dd id="temperature">{{.Readings.TemperatureC}} C</dd>
<dt>In state</dt><dd>{{duration .InState}}</dd>
<dt>Warnings</dt><dd id="warnings">{{range .Active}}<span class="badge">{{title .}}</span>{{else}}none{{end}}</dd>
</dl>

<p class="lamps">
<span id="left" class="{{lamp .Lights.Left}}">&#9664; left</span>
<span id="low_beam" class="{{lamp .Lights.LowBeam}}">low beam</span>
<span id="high_beam" class="{{lamp .Lights.HighBeam}}">high beam</span>
<span id="right" class="{{lamp .Lights.Right}}">right &#9654;</span>
</p>

<h3>Recent events</h3>
<table>
{{range .Events}}<tr><td>{{.Timestamp}}</td><td>{{.Event}}</td><td>{{if .Warning}}{{title .Warning}}{{else}}{{.State}}{{end}}</td></tr>
{{else}}<tr><td>no events yet</td></tr>{{end}}
</table>

<h3>Daemon</h3>
<dl>
<dt>MQTT</dt><dd class="{{if .MQTTConnected}}up{{else}}down{{end}}">{{.Config.Broker}}</dd>
{{if .Config.Redis}}<dt>Redis</dt><dd class="{{if .RedisConnected}}up{{else}}down{{end}}">{{.Config.Redis}}</dd>{{end}}
{{with .Network}}<dt>Network</dt><dd>{{.Status}} {{.Type}}{{if .SSID}} {{.SSID}}{{end}} {{.IP}}</dd>{{end}}
<dt>Uptime</dt><dd>{{duration .Uptime}}</dd>
<dt>Started</dt><dd>{{.StartTime.UTC.Format "2006-01-02 15:04:05Z"}}</dd>
<dt>Poll</dt><dd>{{.Config.PollMs}} ms</dd>
<dt>Heartbeat</dt><dd>{{if .Config.HeartbeatMs}}{{.Config.HeartbeatMs}} ms{{else}}off{{end}}</dd>
<dt>Wheel</dt><dd>{{.Config.WheelDiameterIn}} in</dd>
<dt>Display</dt><dd>{{.Config.Display}}</dd>
<dt>Counts</dt><dd>{{.Counts.WarningsOn}} warnings, {{.Counts.Charging}} charges, {{.Counts.ViewChanges}} view changes</dd>
</dl>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">metrics</a></p>
<script>
(function() {
  function text(id, v) { document.getElementById(id).textContent = v; }
  function lamp(id, on) { document.getElementById(id).className = on ? "lamp lit" : "lamp"; }
  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onclose = function() { text("live", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(ev) {
      var s;
      try { s = JSON.parse(ev.data).status; } catch (e) { return; }
      var r = s.readings;
      text("state", s.state);
      text("live", s.cycles + " cycles");
      text("speed", r.speed_mph);
      text("percent", r.percent + "%");
      text("voltage", r.voltage_mv + " mV");
      text("current", r.current_a + " A");
      text("temperature", r.temperature_c + " C");
      text("warnings", s.warnings.length ? s.warnings.join(", ") : "none");
      document.getElementById("charge").style.width = r.percent + "%";
      lamp("left", s.lights.left);
      lamp("right", s.lights.right);
      lamp("low_beam", s.lights.low_beam);
      lamp("high_beam", s.lights.high_beam);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return indexTmpl.Execute(w, newPageData(snap))
}
