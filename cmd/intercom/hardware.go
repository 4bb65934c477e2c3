package main

import (
	"fmt"
	"io"

	"github.com/sweeney/intercom/internal/config"
	"github.com/sweeney/intercom/internal/gpio"
)

// hardware is the set of opened GPIO backends behind the pin router.
type hardware struct {
	board   *gpio.Mux
	closers []io.Closer
}

// openHardware opens only the backends the configuration refers to and
// routes each pin role to one of them.
func openHardware(cfg *config.Config) (*hardware, error) {
	hw := &hardware{board: &gpio.Mux{}}

	var chip *gpio.Chip
	if usesChip(cfg) {
		c, err := gpio.NewChip(cfg.GPIO.Chip)
		if err != nil {
			return nil, fmt.Errorf("open gpio chip %s: %w", cfg.GPIO.Chip, err)
		}
		chip = c
		hw.closers = append(hw.closers, c)
	}

	var mem *gpio.Mem
	if usesMem(cfg) {
		m, err := gpio.NewMem()
		if err != nil {
			hw.Close()
			return nil, fmt.Errorf("open gpio memory: %w", err)
		}
		mem = m
		hw.closers = append(hw.closers, m)
	}

	switch cfg.Doorbell.Source {
	case config.SourceGPIO:
		hw.board.Doorbell = chip
	case config.SourceSerial:
		adc, err := gpio.NewSerialADC(cfg.Doorbell.Device, cfg.Doorbell.Baud)
		if err != nil {
			hw.Close()
			return nil, err
		}
		hw.board.Doorbell = adc
		hw.closers = append(hw.closers, adc)
	}

	switch cfg.GPIO.Outputs {
	case config.BackendChip:
		hw.board.Outputs = chip
	case config.BackendMem:
		hw.board.Outputs = mem
	}

	switch cfg.GPIO.IndicatorBackend {
	case config.BackendChip:
		hw.board.Indicator = chip
	case config.BackendMem:
		hw.board.Indicator = mem.PWM()
	}

	return hw, nil
}

func usesChip(cfg *config.Config) bool {
	return cfg.Doorbell.Source == config.SourceGPIO ||
		cfg.GPIO.Outputs == config.BackendChip ||
		cfg.GPIO.IndicatorBackend == config.BackendChip
}

func usesMem(cfg *config.Config) bool {
	return cfg.GPIO.Outputs == config.BackendMem ||
		cfg.GPIO.IndicatorBackend == config.BackendMem
}

// Close releases every backend, newest first, and returns the first error.
func (h *hardware) Close() error {
	var first error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	h.closers = nil
	return first
}
