// Package mqtt bridges the intercom to an MQTT broker: it publishes device
// events and status snapshots and receives text commands.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/intercom/internal/intercom"
)

// Topic suffixes under the configured prefix.
const (
	SuffixEvents   = "events"
	SuffixStatus   = "status"
	SuffixCommands = "commands"
)

// Topics holds the full topic names for one device.
type Topics struct {
	Events   string
	Status   string
	Commands string
}

// NewTopics builds the topic set for prefix, e.g. "smartintercom".
func NewTopics(prefix string) Topics {
	return Topics{
		Events:   prefix + "/" + SuffixEvents,
		Status:   prefix + "/" + SuffixStatus,
		Commands: prefix + "/" + SuffixCommands,
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a device event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event intercom.Event) error

	// PublishSystem sends a daemon lifecycle event to the status topic.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED", "STATUS"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the MQTT message payload for device events.
type Payload struct {
	Intercom EventPayload `json:"intercom"`
}

// EventPayload contains the device event details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	RingCount uint32 `json:"ring_count"`
	Auto      bool   `json:"auto,omitempty"`
}

// FormatPayload creates the JSON payload for a device event.
func FormatPayload(event intercom.Event) ([]byte, error) {
	payload := Payload{
		Intercom: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
			RingCount: event.RingCount,
			Auto:      event.Auto,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the payload for system events that don't carry a full
// status snapshot (last will, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
