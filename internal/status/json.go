package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the envelope shared by the web endpoint and the MQTT status
// events.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner is the body of a status document. Event and Reason are set
// only for MQTT system events.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Name          string       `json:"name"`
	Version       string       `json:"version"`
	State         string       `json:"state"`
	StateLabel    string       `json:"state_label"`
	Ready         bool         `json:"ready"`
	Device        DeviceJSON   `json:"device"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          BrokerJSON   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkInfo `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// DeviceJSON carries the live door, doorbell and output state.
type DeviceJSON struct {
	RingCount      uint32 `json:"ring_count"`
	Ringing        bool   `json:"ringing"`
	RingDurationMs int64  `json:"ring_duration_ms"`
	DoorOpen       bool   `json:"door_open"`
	OpenTimeMs     int64  `json:"open_time_ms"`
	OpenDelayMs    int64  `json:"open_delay_ms"`
	AutoOpen       bool   `json:"auto_open"`
	AlwaysOpen     bool   `json:"always_open"`
	Indicator      bool   `json:"indicator"`
	Handset        bool   `json:"handset"`
	LastRing       string `json:"last_ring,omitempty"`
	LastOpen       string `json:"last_open,omitempty"`
}

// BrokerJSON is the broker link as seen by the daemon.
type BrokerJSON struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON holds event totals since startup.
type CountsJSON struct {
	Ring  int `json:"ring"`
	Open  int `json:"open"`
	Close int `json:"close"`
}

// ConfigJSON echoes the settings the daemon is running with.
type ConfigJSON struct {
	PollMs           int64  `json:"poll_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	TopicPrefix      string `json:"topic_prefix"`
	HTTPAddr         string `json:"http_addr"`
	DoorbellSource   string `json:"doorbell_source"`
	IndicatorBackend string `json:"indicator_backend"`
	WSBroker         string `json:"ws_broker,omitempty"`
}

func timeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	dev := snap.Device
	state := string(dev.State)
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		Name:       dev.Name,
		Version:    dev.Version,
		State:      state,
		StateLabel: dev.State.Label(),
		Ready:      dev.Ready,
		Device: DeviceJSON{
			RingCount:      dev.RingCount,
			Ringing:        dev.Ringing,
			RingDurationMs: dev.RingDuration.Milliseconds(),
			DoorOpen:       dev.DoorOpen,
			OpenTimeMs:     dev.OpenTime.Milliseconds(),
			OpenDelayMs:    dev.OpenDelay.Milliseconds(),
			AutoOpen:       dev.AutoOpen,
			AlwaysOpen:     dev.AlwaysOpen,
			Indicator:      dev.Indicator,
			Handset:        dev.Handset,
			LastRing:       timeOrEmpty(dev.LastRing),
			LastOpen:       timeOrEmpty(dev.LastOpen),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          BrokerJSON{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Network:       snap.Network,
		Counts: CountsJSON{
			Ring:  dev.Counts.Ring,
			Open:  dev.Counts.Open,
			Close: dev.Counts.Close,
		},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			TopicPrefix:      snap.Config.TopicPrefix,
			HTTPAddr:         snap.Config.HTTPAddr,
			DoorbellSource:   snap.Config.DoorbellSource,
			IndicatorBackend: snap.Config.IndicatorBackend,
			WSBroker:         snap.Config.WSBroker,
		},
	}
}

// FormatJSON returns the indented status document served at /index.json.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact status document published on the
// status topic for event (STARTUP, HEARTBEAT, SHUTDOWN, STATUS).
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event, inner.Reason = event, reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
