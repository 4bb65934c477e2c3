//go:build linux

package gpio

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// pwm0Pin is the BCM pin that carries PWM0 on ALT5.
const pwm0Pin = 18

// Mem drives BCM GPIO registers directly through /dev/gpiomem. It is the
// faster path for relay and indicator outputs and the only backend with a
// hardware PWM indicator.
type Mem struct {
	hw govattu.Vattu
}

// NewMem maps the GPIO registers.
func NewMem() (*Mem, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	return &Mem{hw: hw}, nil
}

// OpenOutput configures pin as a plain output, initially at rest. The level
// is latched before the pin is switched to output.
func (m *Mem) OpenOutput(pin int, rest bool) (Output, error) {
	if pin < 0 || pin > 53 {
		return nil, fmt.Errorf("pin %d out of BCM range", pin)
	}
	o := &memOutput{mem: m, pin: uint8(pin), rest: rest}
	o.Write(rest)
	m.hw.PinMode(o.pin, govattu.ALToutput)
	return o, nil
}

// PWM returns an opener for dimmable indicator outputs.
func (m *Mem) PWM() OutputOpener {
	return memPWM{mem: m}
}

// Close unmaps the registers. Outputs must not be used afterwards.
func (m *Mem) Close() error {
	return m.hw.Close()
}

type memOutput struct {
	mem  *Mem
	pin  uint8
	rest bool
}

func (o *memOutput) Write(high bool) error {
	if high {
		o.mem.hw.PinSet(o.pin)
	} else {
		o.mem.hw.PinClear(o.pin)
	}
	return nil
}

func (o *memOutput) Close() error {
	return o.Write(o.rest)
}

type memPWM struct {
	mem *Mem
}

// OpenOutput configures PWM0 on pin 18 with a range of DimmerMax.
func (p memPWM) OpenOutput(pin int, rest bool) (Output, error) {
	if pin != pwm0Pin {
		return nil, fmt.Errorf("pin %d has no hardware PWM (use %d)", pin, pwm0Pin)
	}
	m := p.mem
	m.hw.PinMode(uint8(pin), govattu.ALT5)
	m.hw.PwmSetMode(true, true, false, false)
	m.hw.PwmSetClock(19)
	m.hw.Pwm0SetRange(DimmerMax)
	d := &memDimmer{mem: m, rest: rest}
	d.Write(rest)
	return d, nil
}

type memDimmer struct {
	mem  *Mem
	rest bool
}

func (d *memDimmer) Write(high bool) error {
	if high {
		return d.SetDuty(DimmerMax)
	}
	return d.SetDuty(0)
}

func (d *memDimmer) SetDuty(value int) error {
	if value < 0 {
		value = 0
	}
	if value > DimmerMax {
		value = DimmerMax
	}
	d.mem.hw.Pwm0Set(uint32(value))
	return nil
}

func (d *memDimmer) Close() error {
	return d.Write(d.rest)
}
