package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/intercom/internal/intercom"
	"github.com/sweeney/intercom/internal/status"
)

func newTestServer(t *testing.T, cfg status.Config) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, cfg, func() time.Time { return start.Add(90 * time.Minute) })
	ts := httptest.NewServer(New(":0", tr).Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func defaultConfig() status.Config {
	return status.Config{
		PollMs:           100,
		HeartbeatMs:      900000,
		Broker:           "tcp://192.168.1.200:1883",
		TopicPrefix:      "smartintercom",
		HTTPAddr:         ":80",
		DoorbellSource:   "gpio",
		IndicatorBackend: "mem",
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.Update(intercom.Status{
		Name:      intercom.Name,
		State:     intercom.StateIdle,
		Ready:     true,
		RingCount: 5,
		AutoOpen:  true,
		Counts:    intercom.EventCounts{Ring: 5, Open: 2, Close: 2},
	})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.State != "IDLE" || sj.Status.StateLabel != "Waiting" {
		t.Errorf("state: got %q/%q", sj.Status.State, sj.Status.StateLabel)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("mqtt: got %+v", sj.Status.MQTT)
	}
	if sj.Status.Device.RingCount != 5 || !sj.Status.Device.AutoOpen {
		t.Errorf("device: got %+v", sj.Status.Device)
	}
	if sj.Status.Counts.Open != 2 {
		t.Errorf("Counts.Open: got %d, want 2", sj.Status.Counts.Open)
	}
	if sj.Status.UptimeSeconds != 5400 {
		t.Errorf("uptime: got %d, want 5400", sj.Status.UptimeSeconds)
	}
}

func TestJSONUnknownStateBeforeStart(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())
	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.State != "UNKNOWN" {
		t.Errorf("state before first update: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil || sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("network: got %+v", sj.Status.Network)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.Update(intercom.Status{
		Name:       intercom.Name,
		Version:    intercom.Version,
		State:      intercom.StateOpen,
		StateLabel: intercom.StateOpen.Label(),
		DoorOpen:   true,
		Counts:     intercom.EventCounts{Ring: 7},
	})

	for _, path := range []string{"/", "/index.html"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != 200 {
				t.Errorf("status: got %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type: got %q, want text/html", ct)
			}
			b, _ := io.ReadAll(resp.Body)
			body := string(b)
			for _, want := range []string{"intercom 2.0.0", "<td id=\"state\">Open</td>", "1h 30m 0s", "<td>7</td>", "never"} {
				if !strings.Contains(body, want) {
					t.Errorf("page missing %q", want)
				}
			}
			if strings.Contains(body, "mqtt.min.js") {
				t.Error("live script should be absent without a websocket broker")
			}
		})
	}
}

func TestHTMLLiveScript(t *testing.T) {
	cfg := defaultConfig()
	cfg.WSBroker = "ws://192.168.1.200:9001"
	ts, _ := newTestServer(t, cfg)

	_, body := getBody(t, ts.URL+"/")
	if !strings.Contains(body, "mqtt.min.js") {
		t.Error("expected live script when websocket broker is set")
	}
	if !strings.Contains(body, "smartintercom/events") {
		t.Error("live script should subscribe to the events topic")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())
	if code, _ := getBody(t, ts.URL+"/nonexistent"); code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())
	for _, path := range []string{"/", "/index.json"} {
		resp, err := http.Post(ts.URL+path, "text/plain", strings.NewReader("open"))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, resp.StatusCode)
		}
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())

	if getJSON(t, ts.URL+"/index.json").Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(intercom.Status{State: intercom.StateRinging, Ringing: true})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "RINGING" || !sj.Status.Device.Ringing {
		t.Errorf("expected ringing after update, got %+v", sj.Status)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
