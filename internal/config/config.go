// Package config loads the intercom daemon's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sweeney/intercom/internal/gpio"
	"github.com/sweeney/intercom/internal/intercom"
)

// Default values for unset fields.
const (
	DefaultPoll          = 100 * time.Millisecond
	DefaultPulseMs       = 3000
	DefaultDebounceMs    = 50
	DefaultRingTimeoutMs = 30000
	DefaultThreshold     = 512
	DefaultStartBlinks   = 3
	DefaultRingBlinks    = 2
	DefaultBlinkMs       = 200
	DefaultBrightness    = gpio.DimmerMax
	DefaultBaud          = 115200
	DefaultTopicPrefix   = "smartintercom"
	DefaultClientID      = "intercom"
	DefaultHeartbeat     = 15 * time.Minute
	DefaultBufferSize    = 100
	DefaultHTTPAddr      = ":80"
)

// Backend names.
const (
	BackendChip   = "chip"
	BackendMem    = "mem"
	SourceGPIO    = "gpio"
	SourceSerial  = "serial"
	SourceNone    = "none"
	BackendNone   = "none"
	defaultSource = SourceGPIO
)

// Config is the top-level configuration file.
type Config struct {
	Pins      PinsConfig      `yaml:"pins"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Doorbell  DoorbellConfig  `yaml:"doorbell"`
	Timing    TimingConfig    `yaml:"timing"`
	Policy    PolicyConfig    `yaml:"policy"`
	Indicator IndicatorConfig `yaml:"indicator"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Button    ButtonConfig    `yaml:"button"`

	// CommandPipe is the path of a named pipe accepting text commands
	// (empty disables).
	CommandPipe string `yaml:"command_pipe"`
}

// PinsConfig holds BCM pin numbers. A missing pin is not wired.
type PinsConfig struct {
	Doorbell  *int `yaml:"doorbell"`
	Door      *int `yaml:"door"`
	Handset   *int `yaml:"handset"`
	Indicator *int `yaml:"indicator"`
}

// GPIOConfig selects the output backends and line polarity.
type GPIOConfig struct {
	Chip              string `yaml:"chip"`      // gpiochip name for the chip backend
	Outputs           string `yaml:"outputs"`   // "chip" or "mem"
	IndicatorBackend  string `yaml:"indicator"` // "chip", "mem" (PWM on pin 18) or "none"
	DoorInverted      bool   `yaml:"door_inverted"`
	HandsetInverted   bool   `yaml:"handset_inverted"`
	IndicatorInverted bool   `yaml:"indicator_inverted"`
}

// DoorbellConfig selects where the ring level is read from.
type DoorbellConfig struct {
	Source    string `yaml:"source"` // "gpio", "serial" or "none"
	Device    string `yaml:"device"` // serial device, e.g. /dev/ttyUSB0
	Baud      int    `yaml:"baud"`
	Threshold *int   `yaml:"threshold"`
}

// TimingConfig holds durations in milliseconds. Debounce and ring timeout
// accept an explicit 0; unset means the default.
type TimingConfig struct {
	PollMs        int  `yaml:"poll_ms"`
	PulseMs       int  `yaml:"pulse_ms"`
	DebounceMs    *int `yaml:"debounce_ms"`
	RingTimeoutMs *int `yaml:"ring_timeout_ms"`
	OpenDelayMs   int  `yaml:"open_delay_ms"`
}

// PolicyConfig holds the startup door policy.
type PolicyConfig struct {
	AutoOpen   bool `yaml:"auto_open"`
	AlwaysOpen bool `yaml:"always_open"`
}

// IndicatorConfig holds indicator blink and brightness settings.
type IndicatorConfig struct {
	StartupBlinks *int `yaml:"startup_blinks"`
	RingBlinks    *int `yaml:"ring_blinks"`
	BlinkOnMs     int  `yaml:"blink_on_ms"`
	BlinkOffMs    int  `yaml:"blink_off_ms"`
	Brightness    *int `yaml:"brightness"`
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // e.g. tcp://192.168.1.200:1883 (empty disables)
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	CACert      string `yaml:"ca_cert"`
	ClientCert  string `yaml:"client_cert"`
	ClientKey   string `yaml:"client_key"`
	HeartbeatS  int    `yaml:"heartbeat_secs"` // negative disables
	BufferSize  int    `yaml:"buffer_size"`
	WSBroker    string `yaml:"ws_broker"` // browser live view: URL, "=broker" to derive, empty disables
}

// HTTPConfig holds the status page settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// ButtonConfig holds the physical open button settings.
type ButtonConfig struct {
	Device  string `yaml:"device"` // evdev device, e.g. /dev/input/event0 (empty disables)
	KeyCode int    `yaml:"key_code"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML from data.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = gpio.DefaultChip
	}
	if c.GPIO.Outputs == "" {
		c.GPIO.Outputs = BackendChip
	}
	if c.GPIO.IndicatorBackend == "" {
		c.GPIO.IndicatorBackend = c.GPIO.Outputs
	}
	if c.Doorbell.Source == "" {
		c.Doorbell.Source = defaultSource
	}
	if c.Doorbell.Baud == 0 {
		c.Doorbell.Baud = DefaultBaud
	}
	if c.Doorbell.Threshold == nil {
		c.Doorbell.Threshold = intPtr(DefaultThreshold)
	}

	if c.Timing.PollMs == 0 {
		c.Timing.PollMs = int(DefaultPoll / time.Millisecond)
	}
	if c.Timing.PulseMs == 0 {
		c.Timing.PulseMs = DefaultPulseMs
	}
	if c.Timing.DebounceMs == nil {
		c.Timing.DebounceMs = intPtr(DefaultDebounceMs)
	}
	if c.Timing.RingTimeoutMs == nil {
		c.Timing.RingTimeoutMs = intPtr(DefaultRingTimeoutMs)
	}

	if c.Indicator.StartupBlinks == nil {
		c.Indicator.StartupBlinks = intPtr(DefaultStartBlinks)
	}
	if c.Indicator.RingBlinks == nil {
		c.Indicator.RingBlinks = intPtr(DefaultRingBlinks)
	}
	if c.Indicator.BlinkOnMs == 0 {
		c.Indicator.BlinkOnMs = DefaultBlinkMs
	}
	if c.Indicator.BlinkOffMs == 0 {
		c.Indicator.BlinkOffMs = DefaultBlinkMs
	}
	if c.Indicator.Brightness == nil {
		c.Indicator.Brightness = intPtr(DefaultBrightness)
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	c.MQTT.TopicPrefix = strings.TrimSuffix(c.MQTT.TopicPrefix, "/")
	if c.MQTT.HeartbeatS == 0 {
		c.MQTT.HeartbeatS = int(DefaultHeartbeat / time.Second)
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = DefaultBufferSize
	}
}

// Validate checks ranges, backend names and pin conflicts.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.Pins.Door == nil {
		add("pins.door is required")
	}
	if c.Pins.Doorbell == nil && c.Doorbell.Source != SourceNone {
		add("pins.doorbell is required unless doorbell.source is none")
	}

	seen := make(map[int]string)
	for _, p := range []struct {
		name string
		pin  *int
	}{
		{"doorbell", c.Pins.Doorbell},
		{"door", c.Pins.Door},
		{"handset", c.Pins.Handset},
		{"indicator", c.Pins.Indicator},
	} {
		if p.pin == nil {
			continue
		}
		if *p.pin < 0 || *p.pin > 53 {
			add("pins.%s: %d out of range 0-53", p.name, *p.pin)
			continue
		}
		// The serial ADC uses the doorbell pin as a channel number, not a GPIO.
		if p.name == "doorbell" && c.Doorbell.Source == SourceSerial {
			continue
		}
		if other, ok := seen[*p.pin]; ok {
			add("pins.%s: pin %d already used by %s", p.name, *p.pin, other)
			continue
		}
		seen[*p.pin] = p.name
	}

	switch c.GPIO.Outputs {
	case BackendChip, BackendMem:
	default:
		add("gpio.outputs: unknown backend %q", c.GPIO.Outputs)
	}
	switch c.GPIO.IndicatorBackend {
	case BackendChip, BackendNone:
	case BackendMem:
		if c.Pins.Indicator != nil && *c.Pins.Indicator != 18 {
			add("gpio.indicator: mem backend needs pins.indicator 18 (PWM0), got %d", *c.Pins.Indicator)
		}
	default:
		add("gpio.indicator: unknown backend %q", c.GPIO.IndicatorBackend)
	}

	switch c.Doorbell.Source {
	case SourceGPIO, SourceNone:
	case SourceSerial:
		if c.Doorbell.Device == "" {
			add("doorbell.device is required for serial source")
		}
	default:
		add("doorbell.source: unknown source %q", c.Doorbell.Source)
	}
	if t := c.Doorbell.Threshold; t != nil && (*t < 0 || *t > gpio.AnalogMax) {
		add("doorbell.threshold: %d out of range 0-%d", *t, gpio.AnalogMax)
	}

	for _, d := range []struct {
		name string
		ms   int
	}{
		{"poll_ms", c.Timing.PollMs},
		{"pulse_ms", c.Timing.PulseMs},
		{"debounce_ms", valueOr(c.Timing.DebounceMs, 0)},
		{"ring_timeout_ms", valueOr(c.Timing.RingTimeoutMs, 0)},
		{"open_delay_ms", c.Timing.OpenDelayMs},
	} {
		if d.ms < 0 {
			add("timing.%s: must not be negative", d.name)
		}
	}

	if b := c.Indicator.Brightness; b != nil && (*b < 0 || *b > gpio.DimmerMax) {
		add("indicator.brightness: %d out of range 0-%d", *b, gpio.DimmerMax)
	}
	for _, n := range []*int{c.Indicator.StartupBlinks, c.Indicator.RingBlinks} {
		if n != nil && *n < 0 {
			add("indicator: blink counts must not be negative")
			break
		}
	}

	if (c.MQTT.ClientCert == "") != (c.MQTT.ClientKey == "") {
		add("mqtt: client_cert and client_key must be set together")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Device converts the file configuration to the controller configuration.
func (c *Config) Device() intercom.Config {
	cfg := intercom.Config{
		DoorbellPin: pinOrUnwired(c.Pins.Doorbell),
		DoorPin:     pinOrUnwired(c.Pins.Door),
		HandsetPin:  pinOrUnwired(c.Pins.Handset),
		LEDPin:      pinOrUnwired(c.Pins.Indicator),

		DoorInverted:    c.GPIO.DoorInverted,
		HandsetInverted: c.GPIO.HandsetInverted,
		LEDInverted:     c.GPIO.IndicatorInverted,

		PulseDuration: ms(c.Timing.PulseMs),
		Debounce:      ms(valueOr(c.Timing.DebounceMs, DefaultDebounceMs)),
		RingTimeout:   ms(valueOr(c.Timing.RingTimeoutMs, DefaultRingTimeoutMs)),
		RingThreshold: *c.Doorbell.Threshold,
		OpenDelay:     ms(c.Timing.OpenDelayMs),

		AutoOpen:   c.Policy.AutoOpen,
		AlwaysOpen: c.Policy.AlwaysOpen,

		StartupBlinks: *c.Indicator.StartupBlinks,
		RingBlinks:    *c.Indicator.RingBlinks,
		BlinkOn:       ms(c.Indicator.BlinkOnMs),
		BlinkOff:      ms(c.Indicator.BlinkOffMs),
	}
	if c.Doorbell.Source == SourceNone {
		cfg.DoorbellPin = -1
	}
	if c.GPIO.IndicatorBackend == BackendNone {
		cfg.LEDPin = -1
	}
	return cfg
}

// Poll returns the polling interval.
func (c *Config) Poll() time.Duration {
	return ms(c.Timing.PollMs)
}

// Heartbeat returns the MQTT heartbeat interval. A negative heartbeat_secs
// disables heartbeats and yields 0.
func (c *Config) Heartbeat() time.Duration {
	if c.MQTT.HeartbeatS < 0 {
		return 0
	}
	return time.Duration(c.MQTT.HeartbeatS) * time.Second
}

func pinOrUnwired(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func intPtr(v int) *int {
	return &v
}

// valueOr returns *p, or def when p is unset.
func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
