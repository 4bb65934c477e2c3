package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "intercom.example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dev := cfg.Device()
	if dev.DoorbellPin != 4 || dev.DoorPin != 17 || dev.HandsetPin != 27 || dev.LEDPin != 18 {
		t.Errorf("unexpected pins: %+v", dev)
	}
	if dev.PulseDuration != 3*time.Second {
		t.Errorf("pulse: got %v, want 3s", dev.PulseDuration)
	}
	if cfg.GPIO.IndicatorBackend != BackendMem {
		t.Errorf("indicator backend: got %q", cfg.GPIO.IndicatorBackend)
	}
	if cfg.MQTT.TopicPrefix != "smartintercom" {
		t.Errorf("topic prefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.HTTP.Addr != ":80" {
		t.Errorf("http addr: got %q", cfg.HTTP.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pins: [1, 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("pins:\n  doorbell: 4\n  door: 17\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dev := cfg.Device()
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"handset pin", dev.HandsetPin, -1},
		{"indicator pin", dev.LEDPin, -1},
		{"pulse", dev.PulseDuration, 3000 * time.Millisecond},
		{"debounce", dev.Debounce, 50 * time.Millisecond},
		{"ring timeout", dev.RingTimeout, 30 * time.Second},
		{"threshold", dev.RingThreshold, 512},
		{"open delay", dev.OpenDelay, time.Duration(0)},
		{"startup blinks", dev.StartupBlinks, 3},
		{"ring blinks", dev.RingBlinks, 2},
		{"blink on", dev.BlinkOn, 200 * time.Millisecond},
		{"blink off", dev.BlinkOff, 200 * time.Millisecond},
		{"auto open", dev.AutoOpen, false},
		{"poll", cfg.Poll(), 100 * time.Millisecond},
		{"heartbeat", cfg.Heartbeat(), 15 * time.Minute},
		{"brightness", *cfg.Indicator.Brightness, 255},
		{"chip", cfg.GPIO.Chip, "gpiochip0"},
		{"outputs", cfg.GPIO.Outputs, BackendChip},
		{"source", cfg.Doorbell.Source, SourceGPIO},
		{"client id", cfg.MQTT.ClientID, "intercom"},
		{"buffer", cfg.MQTT.BufferSize, 100},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestZeroBlinksKept(t *testing.T) {
	cfg, err := Parse([]byte(`
pins: {doorbell: 4, door: 17}
indicator: {startup_blinks: 0, ring_blinks: 0}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dev := cfg.Device()
	if dev.StartupBlinks != 0 || dev.RingBlinks != 0 {
		t.Errorf("explicit zero blinks should be kept, got %d/%d", dev.StartupBlinks, dev.RingBlinks)
	}
}

func TestZeroTimingKept(t *testing.T) {
	cfg, err := Parse([]byte(`
pins: {doorbell: 4, door: 17}
timing: {debounce_ms: 0, ring_timeout_ms: 0}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dev := cfg.Device()
	if dev.Debounce != 0 || dev.RingTimeout != 0 {
		t.Errorf("explicit zero timing should be kept, got debounce=%v ring timeout=%v", dev.Debounce, dev.RingTimeout)
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	cfg, err := Parse([]byte("pins: {doorbell: 4, door: 17}\nmqtt: {heartbeat_secs: -1}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Heartbeat() != 0 {
		t.Errorf("negative heartbeat should disable, got %v", cfg.Heartbeat())
	}
}

func TestTopicPrefixTrailingSlash(t *testing.T) {
	cfg, err := Parse([]byte("pins: {doorbell: 4, door: 17}\nmqtt: {topic_prefix: home/door/}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MQTT.TopicPrefix != "home/door" {
		t.Errorf("got %q", cfg.MQTT.TopicPrefix)
	}
}

func TestUnwiredRoles(t *testing.T) {
	cfg, err := Parse([]byte(`
pins: {door: 17, indicator: 22}
doorbell: {source: none}
gpio: {indicator: none}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dev := cfg.Device()
	if dev.DoorbellPin != -1 {
		t.Errorf("doorbell source none should unwire the pin, got %d", dev.DoorbellPin)
	}
	if dev.LEDPin != -1 {
		t.Errorf("indicator backend none should unwire the pin, got %d", dev.LEDPin)
	}
}

func TestSerialDoorbellChannelMayShareGPIO(t *testing.T) {
	_, err := Parse([]byte(`
pins: {doorbell: 17, door: 17}
doorbell: {source: serial, device: /dev/ttyUSB0}
`))
	if err != nil {
		t.Errorf("serial channel number should not conflict with GPIO pins: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing door", "pins: {doorbell: 4}", "pins.door is required"},
		{"missing doorbell", "pins: {door: 17}", "pins.doorbell is required"},
		{"pin range", "pins: {doorbell: 4, door: 60}", "out of range 0-53"},
		{"pin conflict", "pins: {doorbell: 4, door: 4}", "already used by doorbell"},
		{"output backend", "pins: {doorbell: 4, door: 17}\ngpio: {outputs: sysfs}", "unknown backend"},
		{"indicator backend", "pins: {doorbell: 4, door: 17}\ngpio: {indicator: neopixel}", "unknown backend"},
		{"pwm pin", "pins: {doorbell: 4, door: 17, indicator: 22}\ngpio: {indicator: mem}", "needs pins.indicator 18"},
		{"source", "pins: {doorbell: 4, door: 17}\ndoorbell: {source: i2c}", "unknown source"},
		{"serial device", "pins: {doorbell: 4, door: 17}\ndoorbell: {source: serial}", "doorbell.device is required"},
		{"threshold", "pins: {doorbell: 4, door: 17}\ndoorbell: {threshold: 2000}", "doorbell.threshold"},
		{"negative timing", "pins: {doorbell: 4, door: 17}\ntiming: {open_delay_ms: -5}", "timing.open_delay_ms"},
		{"negative debounce", "pins: {doorbell: 4, door: 17}\ntiming: {debounce_ms: -1}", "timing.debounce_ms"},
		{"brightness", "pins: {doorbell: 4, door: 17}\nindicator: {brightness: 300}", "indicator.brightness"},
		{"blinks", "pins: {doorbell: 4, door: 17}\nindicator: {ring_blinks: -1}", "blink counts"},
		{"tls pair", "pins: {doorbell: 4, door: 17}\nmqtt: {client_cert: a.pem}", "client_cert and client_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}
