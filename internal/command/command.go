// Package command parses line-oriented control commands and applies them to
// the intercom. Commands arrive from MQTT, the local control pipe and the
// open button; all of them are applied on the polling loop.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Op identifies a command.
type Op string

const (
	OpOpen          Op = "open"
	OpOpenDelayed   Op = "open_delayed"
	OpClose         Op = "close"
	OpAutoOn        Op = "auto_on"
	OpAutoOff       Op = "auto_off"
	OpAutoToggle    Op = "auto_toggle"
	OpAlwaysOn      Op = "always_on"
	OpAlwaysOff     Op = "always_off"
	OpLEDOn         Op = "led_on"
	OpLEDOff        Op = "led_off"
	OpLEDBlink      Op = "led_blink"
	OpLEDBrightness Op = "led_brightness"
	OpPickup        Op = "handset_pickup"
	OpHangup        Op = "handset_hangup"
	OpHandsetToggle Op = "handset_toggle"
	OpSetDelay      Op = "set_delay"
	OpSetPulse      Op = "set_pulse"
	OpSetThreshold  Op = "set_threshold"
	OpReset         Op = "reset"
	OpStatus        Op = "status"
)

// Command is a parsed command. Value and Delay are set only for ops that
// take an argument.
type Command struct {
	Op     Op
	Value  int
	Delay  time.Duration
	Source string // "mqtt", "pipe", "button"
}

// Target is the subset of the controller commands act on.
type Target interface {
	OpenDoor()
	OpenDoorDelayed(d time.Duration)
	CloseDoor()
	EnableAutoOpen()
	DisableAutoOpen()
	ToggleAutoOpen()
	EnableAlwaysOpen()
	DisableAlwaysOpen()
	IndicatorOn()
	IndicatorOff()
	BlinkIndicator(n int)
	SetIndicatorBrightness(v int)
	PickupHandset()
	HangupHandset()
	ToggleHandset()
	SetOpenDelay(d time.Duration)
	SetOpenTime(d time.Duration)
	SetRingThreshold(v int)
	Reset()
}

// Parse parses a single command line.
//
// Command format:
//
//	open                            - open the door now
//	open <ms>                       - open the door after a delay
//	close                           - mark the door closed
//	auto on|off|toggle              - single-shot auto-open on next ring
//	always on|off                   - open on every ring
//	led on|off                      - indicator on/off
//	led blink <n>                   - blink the indicator n times
//	led brightness <0-255>          - indicator duty cycle
//	handset pickup|hangup|toggle    - handset line
//	set delay|pulse <ms>            - auto-open delay, relay pulse length
//	set threshold <0-1023>          - ring threshold
//	reset                           - back to INIT, policy cleared
//	status                          - publish a status snapshot
func Parse(line string) (Command, error) {
	parts := strings.Fields(strings.ToLower(line))
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	arg := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	switch parts[0] {
	case "open":
		if len(parts) == 1 {
			return Command{Op: OpOpen}, nil
		}
		ms, err := parseRange(parts[1], 0, 60000)
		if err != nil {
			return Command{}, fmt.Errorf("open: invalid delay: %w", err)
		}
		return Command{Op: OpOpenDelayed, Delay: time.Duration(ms) * time.Millisecond}, nil

	case "close":
		return Command{Op: OpClose}, nil

	case "auto":
		switch arg(1) {
		case "on":
			return Command{Op: OpAutoOn}, nil
		case "off":
			return Command{Op: OpAutoOff}, nil
		case "toggle":
			return Command{Op: OpAutoToggle}, nil
		}
		return Command{}, fmt.Errorf("auto requires on|off|toggle")

	case "always":
		switch arg(1) {
		case "on":
			return Command{Op: OpAlwaysOn}, nil
		case "off":
			return Command{Op: OpAlwaysOff}, nil
		}
		return Command{}, fmt.Errorf("always requires on|off")

	case "led":
		switch arg(1) {
		case "on":
			return Command{Op: OpLEDOn}, nil
		case "off":
			return Command{Op: OpLEDOff}, nil
		case "blink":
			n, err := parseRange(arg(2), 1, 20)
			if err != nil {
				return Command{}, fmt.Errorf("led blink: %w", err)
			}
			return Command{Op: OpLEDBlink, Value: n}, nil
		case "brightness":
			v, err := parseRange(arg(2), 0, 255)
			if err != nil {
				return Command{}, fmt.Errorf("led brightness: %w", err)
			}
			return Command{Op: OpLEDBrightness, Value: v}, nil
		}
		return Command{}, fmt.Errorf("led requires on|off|blink <n>|brightness <v>")

	case "handset":
		switch arg(1) {
		case "pickup":
			return Command{Op: OpPickup}, nil
		case "hangup":
			return Command{Op: OpHangup}, nil
		case "toggle":
			return Command{Op: OpHandsetToggle}, nil
		}
		return Command{}, fmt.Errorf("handset requires pickup|hangup|toggle")

	case "set":
		switch arg(1) {
		case "delay":
			ms, err := parseRange(arg(2), 0, 60000)
			if err != nil {
				return Command{}, fmt.Errorf("set delay: %w", err)
			}
			return Command{Op: OpSetDelay, Delay: time.Duration(ms) * time.Millisecond}, nil
		case "pulse":
			ms, err := parseRange(arg(2), 100, 30000)
			if err != nil {
				return Command{}, fmt.Errorf("set pulse: %w", err)
			}
			return Command{Op: OpSetPulse, Delay: time.Duration(ms) * time.Millisecond}, nil
		case "threshold":
			v, err := parseRange(arg(2), 0, 1023)
			if err != nil {
				return Command{}, fmt.Errorf("set threshold: %w", err)
			}
			return Command{Op: OpSetThreshold, Value: v}, nil
		}
		return Command{}, fmt.Errorf("set requires delay|pulse|threshold <n>")

	case "reset":
		return Command{Op: OpReset}, nil

	case "status":
		return Command{Op: OpStatus}, nil

	default:
		return Command{}, fmt.Errorf("unknown command: %s", parts[0])
	}
}

// Apply runs the command against t. OpStatus does nothing here; the caller
// publishes the snapshot.
func (c Command) Apply(t Target) {
	switch c.Op {
	case OpOpen:
		t.OpenDoor()
	case OpOpenDelayed:
		t.OpenDoorDelayed(c.Delay)
	case OpClose:
		t.CloseDoor()
	case OpAutoOn:
		t.EnableAutoOpen()
	case OpAutoOff:
		t.DisableAutoOpen()
	case OpAutoToggle:
		t.ToggleAutoOpen()
	case OpAlwaysOn:
		t.EnableAlwaysOpen()
	case OpAlwaysOff:
		t.DisableAlwaysOpen()
	case OpLEDOn:
		t.IndicatorOn()
	case OpLEDOff:
		t.IndicatorOff()
	case OpLEDBlink:
		t.BlinkIndicator(c.Value)
	case OpLEDBrightness:
		t.SetIndicatorBrightness(c.Value)
	case OpPickup:
		t.PickupHandset()
	case OpHangup:
		t.HangupHandset()
	case OpHandsetToggle:
		t.ToggleHandset()
	case OpSetDelay:
		t.SetOpenDelay(c.Delay)
	case OpSetPulse:
		t.SetOpenTime(c.Delay)
	case OpSetThreshold:
		t.SetRingThreshold(c.Value)
	case OpReset:
		t.Reset()
	}
}

func (c Command) String() string {
	switch c.Op {
	case OpOpenDelayed, OpSetDelay, OpSetPulse:
		return fmt.Sprintf("%s %v", c.Op, c.Delay)
	case OpLEDBlink, OpLEDBrightness, OpSetThreshold:
		return fmt.Sprintf("%s %d", c.Op, c.Value)
	default:
		return string(c.Op)
	}
}

func parseRange(s string, lo, hi int) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%d out of range %d-%d", v, lo, hi)
	}
	return v, nil
}
