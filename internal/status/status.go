// Package status provides a thread-safe status tracker for the intercom
// daemon. It is read by the HTTP handlers and the MQTT status publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/intercom/internal/intercom"
)

// NetworkInfo is the host's network state as reported by pi-helper. It is
// serialized as-is into the status JSON.
type NetworkInfo struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs           int64
	HeartbeatMs      int64
	Broker           string
	TopicPrefix      string
	HTTPAddr         string
	DoorbellSource   string
	IndicatorBackend string
	WSBroker         string // browser MQTT endpoint, empty when disabled
}

// Snapshot is a point-in-time view of daemon state.
type Snapshot struct {
	Device        intercom.Status
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker. now may be nil to use the wall clock.
func NewTracker(startTime time.Time, cfg Config, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		snap: Snapshot{StartTime: startTime, Config: cfg},
		now:  now,
	}
}

// Update stores the latest controller status. Called from the run loop
// after every controller update.
func (t *Tracker) Update(dev intercom.Status) {
	t.mu.Lock()
	t.snap.Device = dev
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy of the daemon state with Now set to the
// current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
