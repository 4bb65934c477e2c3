// Package gpio provides pin-level I/O with hardware abstraction.
// Real backends use the Linux GPIO character device, memory-mapped BCM
// registers, or an external ADC bridge on a serial port. The fake backend
// allows testing without hardware.
package gpio

import "errors"

// AnalogMax is the top of the analog range (10-bit ADC).
const AnalogMax = 1023

// DimmerMax is the top of the indicator brightness range.
const DimmerMax = 255

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"

// ErrNotSupported is returned by backends unavailable on this platform.
var ErrNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Output drives a single digital pin. Levels are physical: inversion is
// applied by the caller.
type Output interface {
	Write(high bool) error
	Close() error
}

// Dimmer is implemented by outputs that support a duty cycle.
// value is in [0, DimmerMax].
type Dimmer interface {
	SetDuty(value int) error
}

// AnalogInput samples a sensor pin. Readings are in [0, AnalogMax].
type AnalogInput interface {
	ReadAnalog() (int, error)
	Close() error
}

// OutputOpener opens output pins. rest is the physical level the pin idles
// at: the pin starts there and Close returns it there, so an active-low relay
// is never energized by opening or releasing it.
type OutputOpener interface {
	OpenOutput(pin int, rest bool) (Output, error)
}

// AnalogOpener opens analog input pins.
type AnalogOpener interface {
	OpenAnalog(pin int) (AnalogInput, error)
}

// Board is everything the intercom needs from the hardware: a doorbell
// sense input, plain outputs (relay, handset), and the indicator output.
type Board interface {
	OpenDoorbell(pin int) (AnalogInput, error)
	OpenOutput(pin int, rest bool) (Output, error)
	OpenIndicator(pin int, rest bool) (Output, error)
}

// Mux routes each pin role to its own backend. A nil backend or a negative
// pin yields a Noop.
type Mux struct {
	Doorbell  AnalogOpener
	Outputs   OutputOpener
	Indicator OutputOpener
}

// OpenDoorbell implements Board.
func (m *Mux) OpenDoorbell(pin int) (AnalogInput, error) {
	if pin < 0 || m.Doorbell == nil {
		return Noop{}, nil
	}
	return m.Doorbell.OpenAnalog(pin)
}

// OpenOutput implements Board.
func (m *Mux) OpenOutput(pin int, rest bool) (Output, error) {
	if pin < 0 || m.Outputs == nil {
		return Noop{}, nil
	}
	return m.Outputs.OpenOutput(pin, rest)
}

// OpenIndicator implements Board.
func (m *Mux) OpenIndicator(pin int, rest bool) (Output, error) {
	if pin < 0 || m.Indicator == nil {
		return Noop{}, nil
	}
	return m.Indicator.OpenOutput(pin, rest)
}

// Noop is an unwired pin. Writes are discarded and reads return 0.
type Noop struct{}

// Write implements Output.
func (Noop) Write(bool) error { return nil }

// ReadAnalog implements AnalogInput.
func (Noop) ReadAnalog() (int, error) { return 0, nil }

// Close implements Output and AnalogInput.
func (Noop) Close() error { return nil }

// clampAnalog limits v to [0, AnalogMax].
func clampAnalog(v int) int {
	if v < 0 {
		return 0
	}
	if v > AnalogMax {
		return AnalogMax
	}
	return v
}
