//go:build !linux

package gpio

// Chip is not available on non-Linux platforms.
type Chip struct{}

// NewChip returns an error on non-Linux platforms.
func NewChip(name string) (*Chip, error) {
	return nil, ErrNotSupported
}

// OpenOutput is not implemented on non-Linux platforms.
func (c *Chip) OpenOutput(pin int, rest bool) (Output, error) {
	return nil, ErrNotSupported
}

// OpenAnalog is not implemented on non-Linux platforms.
func (c *Chip) OpenAnalog(pin int) (AnalogInput, error) {
	return nil, ErrNotSupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// Mem is not available on non-Linux platforms.
type Mem struct{}

// NewMem returns an error on non-Linux platforms.
func NewMem() (*Mem, error) {
	return nil, ErrNotSupported
}

// OpenOutput is not implemented on non-Linux platforms.
func (m *Mem) OpenOutput(pin int, rest bool) (Output, error) {
	return nil, ErrNotSupported
}

// PWM is not implemented on non-Linux platforms.
func (m *Mem) PWM() OutputOpener {
	return m
}

// Close is not implemented on non-Linux platforms.
func (m *Mem) Close() error {
	return nil
}
