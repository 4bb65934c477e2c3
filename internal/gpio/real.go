//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip opens pins on a Linux GPIO character device.
type Chip struct {
	chip *gpiocdev.Chip
	name string
}

// NewChip opens the named GPIO chip (e.g. "gpiochip0").
func NewChip(name string) (*Chip, error) {
	if name == "" {
		name = DefaultChip
	}
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip, name: name}, nil
}

// OpenOutput requests pin as an output, initially at rest.
func (c *Chip) OpenOutput(pin int, rest bool) (Output, error) {
	line, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(level(rest)))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &chipOutput{line: line, pin: pin, rest: rest}, nil
}

func level(high bool) int {
	if high {
		return 1
	}
	return 0
}

// OpenAnalog requests pin as a digital input. The chip has no ADC, so the
// reading is 0 when inactive and AnalogMax when active.
func (c *Chip) OpenAnalog(pin int) (AnalogInput, error) {
	// Pull-down matches Pi boot defaults and keeps an unwired line quiet.
	line, err := c.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", pin, err)
	}
	return &chipInput{line: line, pin: pin}, nil
}

// Close releases the chip. Lines are closed by their owners.
func (c *Chip) Close() error {
	if c.chip == nil {
		return nil
	}
	if err := c.chip.Close(); err != nil {
		return fmt.Errorf("close chip %s: %w", c.name, err)
	}
	return nil
}

type chipOutput struct {
	line *gpiocdev.Line
	pin  int
	rest bool
}

func (o *chipOutput) Write(high bool) error {
	if err := o.line.SetValue(level(high)); err != nil {
		return fmt.Errorf("write pin %d: %w", o.pin, err)
	}
	return nil
}

// Close drives the pin to its rest level and returns it to input with the
// matching bias, which keeps holding that level after release.
func (o *chipOutput) Close() error {
	var errs []error
	if err := o.line.SetValue(level(o.rest)); err != nil {
		errs = append(errs, fmt.Errorf("release pin %d: %w", o.pin, err))
	}
	bias := gpiocdev.WithPullDown
	if o.rest {
		bias = gpiocdev.WithPullUp
	}
	if err := o.line.Reconfigure(gpiocdev.AsInput, bias); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", o.pin, err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", o.pin, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type chipInput struct {
	line *gpiocdev.Line
	pin  int
}

func (i *chipInput) ReadAnalog() (int, error) {
	v, err := i.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read pin %d: %w", i.pin, err)
	}
	if v != 0 {
		return AnalogMax, nil
	}
	return 0, nil
}

func (i *chipInput) Close() error {
	if err := i.line.Close(); err != nil {
		return fmt.Errorf("close pin %d: %w", i.pin, err)
	}
	return nil
}
