package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/intercom/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Intercom</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>{{.Device.Name}} {{.Device.Version}}{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Door</h2>
<table>
<tr><th>State</th><td id="state">{{.Device.StateLabel}}</td></tr>
<tr><th>Ready</th><td>{{if .Device.Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Door</th><td id="door" class="{{onOff .Device.DoorOpen}}">{{if .Device.DoorOpen}}open{{else}}closed{{end}}</td></tr>
<tr><th>Ringing</th><td class="{{onOff .Device.Ringing}}">{{if .Device.Ringing}}yes ({{ms .Device.RingDuration}}ms){{else}}no{{end}}</td></tr>
<tr><th>Rings detected</th><td id="ring-count">{{.Device.RingCount}}</td></tr>
<tr><th>Auto open</th><td class="{{onOff .Device.AutoOpen}}">{{onOff .Device.AutoOpen}}</td></tr>
<tr><th>Always open</th><td class="{{onOff .Device.AlwaysOpen}}">{{onOff .Device.AlwaysOpen}}</td></tr>
<tr><th>Indicator</th><td class="{{onOff .Device.Indicator}}">{{onOff .Device.Indicator}}</td></tr>
<tr><th>Handset</th><td>{{if .Device.Handset}}picked up{{else}}on hook{{end}}</td></tr>
<tr><th>Last ring</th><td id="last-ring">{{when .Device.LastRing}}</td></tr>
<tr><th>Last open</th><td id="last-open">{{when .Device.LastOpen}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Ring</th><td>{{.Device.Counts.Ring}}</td></tr>
<tr><th>Open</th><td>{{.Device.Counts.Open}}</td></tr>
<tr><th>Close</th><td>{{.Device.Counts.Close}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Open time</th><td>{{ms .Device.OpenTime}}ms</td></tr>
<tr><th>Open delay</th><td>{{ms .Device.OpenDelay}}ms</td></tr>
<tr><th>Doorbell</th><td>{{.Config.DoorbellSource}}</td></tr>
<tr><th>Indicator</th><td>{{.Config.IndicatorBackend}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Config.TopicPrefix}}/events";
  var dot = document.getElementById("live-dot");
  var labels = {IDLE: "Waiting", RINGING: "Ringing", OPENING: "Opening", OPEN: "Open", READY: "Ready"};

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });
  client.on("connect", function() { setDot("ok", "live"); client.subscribe(topic); });
  client.on("reconnect", function() { setDot("pending", "reconnecting"); });
  client.on("offline", function() { setDot("err", "offline"); });
  client.on("error", function() { setDot("err", "error"); });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString()).intercom;
      if (!msg) return;
      document.getElementById("state").textContent = labels[msg.state] || msg.state;
      document.getElementById("ring-count").textContent = msg.ring_count;
      if (msg.event === "RING") document.getElementById("last-ring").textContent = msg.timestamp;
      if (msg.event === "OPEN") {
        document.getElementById("last-open").textContent = msg.timestamp;
        document.getElementById("door").textContent = "open";
      }
      if (msg.event === "CLOSE") document.getElementById("door").textContent = "closed";
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render: %v", err)
	}
}
