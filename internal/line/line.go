// Package line wraps a single pin with the intercom's level semantics:
// logical inversion, a debounce gate on level changes, timed pulse and blink
// sequences, and unfiltered analog reads.
//
// Timed sequences block the caller for their full duration. They must not be
// called from a path that has to stay responsive.
package line

import (
	"log"
	"time"

	"github.com/sweeney/intercom/internal/clock"
	"github.com/sweeney/intercom/internal/gpio"
)

// DefaultDebounce is the debounce window used when none is configured.
const DefaultDebounce = 50 * time.Millisecond

// fadeSteps is the number of duty-cycle steps in a fade.
const fadeSteps = 50

// Mode selects how a line is driven.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInverted
	ModePWM
	ModePulse
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInverted:
		return "inverted"
	case ModePWM:
		return "pwm"
	case ModePulse:
		return "pulse"
	default:
		return "unknown"
	}
}

// Config describes a line.
type Config struct {
	Pin      int
	Name     string // for log messages, e.g. "door"
	Mode     Mode
	Inverted bool
	Debounce time.Duration
}

// Line is one pin with debounced level commits.
type Line struct {
	pin      int
	name     string
	mode     Mode
	inverted bool
	debounce time.Duration

	level      bool
	lastToggle time.Time

	out   gpio.Output
	in    gpio.AnalogInput
	clock clock.Clock

	lastAnalog int
	readFailed bool
}

// New creates a Line. out or in may be nil for input-only or output-only
// lines. The physical pin is not written until Begin.
func New(cfg Config, out gpio.Output, in gpio.AnalogInput, clk clock.Clock) *Line {
	if cfg.Name == "" {
		cfg.Name = "gpio"
	}
	return &Line{
		pin:      cfg.Pin,
		name:     cfg.Name,
		mode:     cfg.Mode,
		inverted: cfg.Inverted || cfg.Mode == ModeInverted,
		debounce: cfg.Debounce,
		out:      out,
		in:       in,
		clock:    clk,
	}
}

// Begin drives the line to its logical low level without consulting the
// debounce gate. lastToggle is left untouched.
func (l *Line) Begin() {
	l.write(false)
}

// Set commits level if the debounce window has elapsed since the last
// committed change. Otherwise the call is silently dropped.
func (l *Line) Set(level bool) {
	now := l.clock.Now()
	if !l.lastToggle.IsZero() && now.Sub(l.lastToggle) < l.debounce {
		return
	}
	l.lastToggle = now
	l.write(level)
}

// SetHigh is Set(true).
func (l *Line) SetHigh() { l.Set(true) }

// SetLow is Set(false).
func (l *Line) SetLow() { l.Set(false) }

// Toggle sets the inverse of the committed level, subject to debounce.
func (l *Line) Toggle() { l.Set(!l.level) }

// Force commits level immediately, bypassing the debounce gate. It still
// counts as a committed change.
func (l *Line) Force(level bool) {
	l.lastToggle = l.clock.Now()
	l.write(level)
}

// Get returns the last committed logical level.
func (l *Line) Get() bool {
	return l.level
}

// ReadAnalog returns the raw sensor reading. No debounce or filtering is
// applied. On a read error the previous good reading is returned. Only the
// first failure of a run and the recovery are logged.
func (l *Line) ReadAnalog() int {
	if l.in == nil {
		return 0
	}
	v, err := l.in.ReadAnalog()
	if err != nil {
		if !l.readFailed {
			log.Printf("%s: pin %d analog read failed: %v", l.name, l.pin, err)
			l.readFailed = true
		}
		return l.lastAnalog
	}
	if l.readFailed {
		log.Printf("%s: pin %d analog read recovered", l.name, l.pin)
		l.readFailed = false
	}
	l.lastAnalog = v
	return v
}

// Pulse drives the line high, holds for d, then drives it low. Blocking.
func (l *Line) Pulse(d time.Duration) {
	l.Force(true)
	l.clock.Sleep(d)
	l.Force(false)
	log.Printf("%s: pin %d pulsed for %v", l.name, l.pin, d)
}

// PulsePattern alternates high and low, holding each level for the next
// duration in steps (even indices high), and finishes low. Blocking.
func (l *Line) PulsePattern(steps []time.Duration) {
	for i, d := range steps {
		l.Force(i%2 == 0)
		l.clock.Sleep(d)
	}
	l.Force(false)
}

// Blink flashes the line times times. There is no off wait after the last
// flash. Blocking.
func (l *Line) Blink(times int, on, off time.Duration) {
	for i := 0; i < times; i++ {
		l.Force(true)
		l.clock.Sleep(on)
		l.Force(false)
		if i < times-1 {
			l.clock.Sleep(off)
		}
	}
}

// BlinkPattern is PulsePattern for indicators.
func (l *Line) BlinkPattern(steps []time.Duration) {
	l.PulsePattern(steps)
}

// SetPWM sets a duty cycle in [0, gpio.DimmerMax]. Ignored unless the line
// is in PWM mode and the backend can dim.
func (l *Line) SetPWM(value int) {
	if l.mode != ModePWM {
		return
	}
	d, ok := l.out.(gpio.Dimmer)
	if !ok {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > gpio.DimmerMax {
		value = gpio.DimmerMax
	}
	if err := d.SetDuty(value); err != nil {
		log.Printf("%s: pin %d set duty %d failed: %v", l.name, l.pin, value, err)
	}
}

// Fade ramps the duty cycle from from to to over d in fixed steps, then
// sets to exactly. Blocking.
func (l *Line) Fade(from, to int, d time.Duration) {
	stepDelay := d / fadeSteps
	stepSize := (to - from) / fadeSteps
	current := from
	for i := 0; i < fadeSteps; i++ {
		current += stepSize
		l.SetPWM(current)
		l.clock.Sleep(stepDelay)
	}
	l.SetPWM(to)
}

// SetDebounce changes the debounce window.
func (l *Line) SetDebounce(d time.Duration) {
	l.debounce = d
}

// Debounce returns the debounce window.
func (l *Line) Debounce() time.Duration {
	return l.debounce
}

// SetMode changes the drive mode. ModeInverted also turns inversion on.
func (l *Line) SetMode(m Mode) {
	l.mode = m
	if m == ModeInverted {
		l.inverted = true
	}
}

// Mode returns the drive mode.
func (l *Line) Mode() Mode {
	return l.mode
}

// Pin returns the pin number.
func (l *Line) Pin() int {
	return l.pin
}

// Close drives the line to its logical low and releases the underlying pins.
func (l *Line) Close() error {
	var first error
	if l.out != nil {
		l.write(false)
		if err := l.out.Close(); err != nil {
			first = err
		}
	}
	if l.in != nil {
		if err := l.in.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// write drives the physical pin and records the logical level. Write
// failures are logged; the logical level still updates.
func (l *Line) write(level bool) {
	l.level = level
	if l.out == nil {
		return
	}
	physical := level
	if l.inverted {
		physical = !level
	}
	if err := l.out.Write(physical); err != nil {
		log.Printf("%s: pin %d write failed: %v", l.name, l.pin, err)
	}
}
