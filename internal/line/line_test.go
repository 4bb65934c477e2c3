package line

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/intercom/internal/clock"
	"github.com/sweeney/intercom/internal/gpio"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestLine(cfg Config) (*Line, *gpio.FakeOutput, *clock.Fake) {
	out := &gpio.FakeOutput{}
	clk := clock.NewFake(t0)
	return New(cfg, out, nil, clk), out, clk
}

func TestSetDebounce(t *testing.T) {
	l, out, clk := newTestLine(Config{Pin: 17, Debounce: 50 * time.Millisecond})

	l.Set(true)
	if !l.Get() {
		t.Fatal("first write should commit")
	}

	// Within the window: dropped.
	clk.Advance(20 * time.Millisecond)
	l.Set(false)
	if !l.Get() {
		t.Error("write inside debounce window should be ignored")
	}

	// Exactly at the window boundary: committed.
	clk.Advance(30 * time.Millisecond)
	l.Set(false)
	if l.Get() {
		t.Error("write at debounce boundary should commit")
	}

	want := []bool{true, false}
	if len(out.Writes) != len(want) {
		t.Fatalf("expected %d physical writes, got %v", len(want), out.Writes)
	}
	for i := range want {
		if out.Writes[i] != want[i] {
			t.Errorf("write %d: got %v, want %v", i, out.Writes[i], want[i])
		}
	}
}

func TestDroppedWriteDoesNotMoveWindow(t *testing.T) {
	l, _, clk := newTestLine(Config{Debounce: 50 * time.Millisecond})

	l.Set(true)
	clk.Advance(40 * time.Millisecond)
	l.Set(false) // dropped
	clk.Advance(10 * time.Millisecond)
	l.Set(false) // 50ms after the committed write
	if l.Get() {
		t.Error("window should be measured from the last committed write")
	}
}

func TestToggleAndHelpers(t *testing.T) {
	l, _, clk := newTestLine(Config{})

	l.SetHigh()
	if !l.Get() {
		t.Error("SetHigh should set level")
	}
	clk.Advance(time.Millisecond)
	l.Toggle()
	if l.Get() {
		t.Error("Toggle should invert level")
	}
	clk.Advance(time.Millisecond)
	l.SetLow()
	if l.Get() {
		t.Error("SetLow should clear level")
	}
}

func TestInverted(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"flag", Config{Inverted: true}},
		{"mode", Config{Mode: ModeInverted}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, out, _ := newTestLine(tt.cfg)
			l.Begin()
			l.Force(true)
			if !l.Get() {
				t.Error("logical level should be high")
			}
			if len(out.Writes) != 2 || out.Writes[0] != true || out.Writes[1] != false {
				t.Errorf("expected physical writes [true false], got %v", out.Writes)
			}
		})
	}
}

func TestForceBypassesDebounce(t *testing.T) {
	l, _, _ := newTestLine(Config{Debounce: time.Second})

	l.Set(true)
	l.Force(false)
	if l.Get() {
		t.Error("Force should commit inside the debounce window")
	}
	// Force counts as a committed change.
	l.Set(true)
	if l.Get() {
		t.Error("Set right after Force should still be debounced")
	}
}

func TestPulse(t *testing.T) {
	l, out, clk := newTestLine(Config{Debounce: time.Second})

	l.Pulse(3 * time.Second)

	if len(out.Writes) != 2 || !out.Writes[0] || out.Writes[1] {
		t.Errorf("expected [true false], got %v", out.Writes)
	}
	if clk.Slept() != 3*time.Second {
		t.Errorf("expected 3s sleep, got %v", clk.Slept())
	}
	if l.Get() {
		t.Error("line should end low")
	}
}

func TestPulsePattern(t *testing.T) {
	l, out, clk := newTestLine(Config{})

	l.PulsePattern([]time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 200 * time.Millisecond})

	want := []bool{true, false, true, false}
	if len(out.Writes) != len(want) {
		t.Fatalf("expected %v, got %v", want, out.Writes)
	}
	for i := range want {
		if out.Writes[i] != want[i] {
			t.Errorf("write %d: got %v, want %v", i, out.Writes[i], want[i])
		}
	}
	if clk.Slept() != 350*time.Millisecond {
		t.Errorf("expected 350ms total, got %v", clk.Slept())
	}
}

func TestBlink(t *testing.T) {
	tests := []struct {
		times     int
		wantHighs int
		wantSleep time.Duration
	}{
		{0, 0, 0},
		{1, 1, 100 * time.Millisecond},
		{3, 3, 3*100*time.Millisecond + 2*50*time.Millisecond},
	}
	for _, tt := range tests {
		l, out, clk := newTestLine(Config{Debounce: time.Second})
		l.Blink(tt.times, 100*time.Millisecond, 50*time.Millisecond)
		if out.Highs() != tt.wantHighs {
			t.Errorf("Blink(%d): expected %d highs, got %d", tt.times, tt.wantHighs, out.Highs())
		}
		if clk.Slept() != tt.wantSleep {
			t.Errorf("Blink(%d): expected %v asleep, got %v", tt.times, tt.wantSleep, clk.Slept())
		}
		if l.Get() {
			t.Errorf("Blink(%d): line should end low", tt.times)
		}
	}
}

func TestSetPWMRequiresMode(t *testing.T) {
	l, out, _ := newTestLine(Config{})
	l.SetPWM(100)
	if len(out.Duties) != 0 {
		t.Errorf("SetPWM outside PWM mode should be ignored, got %v", out.Duties)
	}

	l.SetMode(ModePWM)
	l.SetPWM(100)
	l.SetPWM(999)
	l.SetPWM(-5)
	want := []int{100, gpio.DimmerMax, 0}
	if len(out.Duties) != len(want) {
		t.Fatalf("expected %v, got %v", want, out.Duties)
	}
	for i := range want {
		if out.Duties[i] != want[i] {
			t.Errorf("duty %d: got %d, want %d", i, out.Duties[i], want[i])
		}
	}
}

func TestFade(t *testing.T) {
	l, out, clk := newTestLine(Config{Mode: ModePWM})

	l.Fade(0, 250, time.Second)

	if len(out.Duties) != fadeSteps+1 {
		t.Fatalf("expected %d duty writes, got %d", fadeSteps+1, len(out.Duties))
	}
	if out.Duties[0] != 5 {
		t.Errorf("first step: got %d, want 5", out.Duties[0])
	}
	if out.Duties[len(out.Duties)-1] != 250 {
		t.Errorf("fade should end at target, got %d", out.Duties[len(out.Duties)-1])
	}
	if clk.Slept() != time.Second {
		t.Errorf("expected 1s total, got %v", clk.Slept())
	}
}

func TestReadAnalog(t *testing.T) {
	in := gpio.NewFakeAnalog(100, 600)
	l := New(Config{}, nil, in, clock.NewFake(t0))

	if v := l.ReadAnalog(); v != 100 {
		t.Errorf("got %d, want 100", v)
	}
	if v := l.ReadAnalog(); v != 600 {
		t.Errorf("got %d, want 600", v)
	}

	in.ReadError = errors.New("adc gone")
	if v := l.ReadAnalog(); v != 600 {
		t.Errorf("read error should return last good value, got %d", v)
	}
}

func TestReadAnalogLogsOncePerOutage(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	in := gpio.NewFakeAnalog(300)
	l := New(Config{Pin: 4, Name: "doorbell"}, nil, in, clock.NewFake(t0))

	in.ReadError = errors.New("no reading yet")
	for i := 0; i < 600; i++ {
		l.ReadAnalog()
	}
	if n := strings.Count(buf.String(), "analog read failed"); n != 1 {
		t.Errorf("expected 1 failure line for 600 failed reads, got %d", n)
	}

	in.ReadError = nil
	if v := l.ReadAnalog(); v != 300 {
		t.Errorf("got %d, want 300", v)
	}
	l.ReadAnalog()
	if n := strings.Count(buf.String(), "recovered"); n != 1 {
		t.Errorf("expected 1 recovery line, got %d", n)
	}

	in.ReadError = errors.New("adc gone")
	l.ReadAnalog()
	l.ReadAnalog()
	if n := strings.Count(buf.String(), "analog read failed"); n != 2 {
		t.Errorf("a new outage should log again, got %d failure lines", n)
	}
}

func TestReadAnalogNoInput(t *testing.T) {
	l, _, _ := newTestLine(Config{})
	if v := l.ReadAnalog(); v != 0 {
		t.Errorf("output-only line should read 0, got %d", v)
	}
}

func TestWriteErrorKeepsLogicalLevel(t *testing.T) {
	l, out, _ := newTestLine(Config{})
	out.WriteError = errors.New("line busy")

	l.Set(true)
	if !l.Get() {
		t.Error("logical level should update even when the write fails")
	}
}

func TestClose(t *testing.T) {
	out := &gpio.FakeOutput{}
	in := gpio.NewFakeAnalog(0)
	l := New(Config{}, out, in, clock.NewFake(t0))

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !out.Closed || !in.Closed {
		t.Error("Close should close both pins")
	}
}

func TestCloseReturnsToLogicalLow(t *testing.T) {
	tests := []struct {
		name     string
		inverted bool
		want     bool
	}{
		{"normal", false, false},
		{"inverted", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, out, _ := newTestLine(Config{Pin: 17, Inverted: tt.inverted})
			l.Force(true)
			if err := l.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if out.Level() != tt.want {
				t.Errorf("physical level after Close: got %v, want %v", out.Level(), tt.want)
			}
			if l.Get() {
				t.Error("logical level should be low after Close")
			}
		})
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeNormal, "normal"},
		{ModeInverted, "inverted"},
		{ModePWM, "pwm"},
		{ModePulse, "pulse"},
		{Mode(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
