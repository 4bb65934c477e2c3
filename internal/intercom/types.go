// Package intercom contains the door-intercom state machine. It owns the
// doorbell, door relay, handset and indicator lines and is driven by calling
// Update from a single polling loop.
//
// Nothing in this package is safe for concurrent use. Several operations
// block for relay pulses and indicator blinks; the caller's loop is
// suspended while they run.
package intercom

import (
	"errors"
	"time"

	"github.com/sweeney/intercom/internal/door"
	"github.com/sweeney/intercom/internal/line"
	"github.com/sweeney/intercom/internal/ring"
)

const (
	Name    = "intercom"
	Version = "2.0.0"
)

// ErrAlreadyStarted is returned by Begin when called twice without Reset.
var ErrAlreadyStarted = errors.New("intercom: already started")

// State is the device state.
type State string

const (
	StateInit    State = "INIT"
	StateReady   State = "READY"
	StateIdle    State = "IDLE"
	StateRinging State = "RINGING"
	StateOpening State = "OPENING"
	StateOpen    State = "OPEN"
	StateClosing State = "CLOSING" // reserved, never entered
	StateError   State = "ERROR"   // reserved, never entered
)

// Label returns a human-readable name for the state.
func (s State) Label() string {
	switch s {
	case StateInit:
		return "Initializing"
	case StateReady:
		return "Ready"
	case StateIdle:
		return "Waiting"
	case StateRinging:
		return "Ringing"
	case StateOpening:
		return "Opening"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// EventType identifies a notification.
type EventType string

const (
	EventRing          EventType = "RING"
	EventOpen          EventType = "OPEN"
	EventClose         EventType = "CLOSE"
	EventError         EventType = "ERROR" // reserved, never emitted
	EventConfigChanged EventType = "CONFIG_CHANGED"
)

// Event is delivered to the EventHandler.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
	RingCount uint32
	// Auto is set on OPEN events triggered by the auto/always-open policy.
	Auto bool
}

// EventHandler receives events synchronously. It must return quickly: it
// runs on the polling loop.
type EventHandler func(Event)

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Ring  int
	Open  int
	Close int
}

// Config is the device configuration. A pin below zero is not wired.
type Config struct {
	DoorbellPin int
	DoorPin     int
	HandsetPin  int
	LEDPin      int

	DoorInverted    bool
	HandsetInverted bool
	LEDInverted     bool

	PulseDuration time.Duration
	Debounce      time.Duration
	RingTimeout   time.Duration
	RingThreshold int
	OpenDelay     time.Duration

	AutoOpen   bool
	AlwaysOpen bool

	StartupBlinks int
	RingBlinks    int
	BlinkOn       time.Duration
	BlinkOff      time.Duration
}

// DefaultConfig returns the stock configuration with the given doorbell and
// door pins. Handset and indicator are not wired.
func DefaultConfig(doorbellPin, doorPin int) Config {
	return Config{
		DoorbellPin:   doorbellPin,
		DoorPin:       doorPin,
		HandsetPin:    -1,
		LEDPin:        -1,
		PulseDuration: door.DefaultOpenTime,
		Debounce:      line.DefaultDebounce,
		RingTimeout:   30 * time.Second,
		RingThreshold: ring.DefaultThreshold,
		StartupBlinks: 3,
		RingBlinks:    2,
		BlinkOn:       200 * time.Millisecond,
		BlinkOff:      200 * time.Millisecond,
	}
}

// Status is a point-in-time snapshot for presentation layers.
type Status struct {
	Name         string
	Version      string
	State        State
	StateLabel   string
	Ready        bool
	RingCount    uint32
	Ringing      bool
	RingDuration time.Duration
	DoorOpen     bool
	OpenTime     time.Duration
	OpenDelay    time.Duration
	AutoOpen     bool
	AlwaysOpen   bool
	Indicator    bool
	Handset      bool
	Counts       EventCounts
	LastRing     time.Time
	LastOpen     time.Time
}
