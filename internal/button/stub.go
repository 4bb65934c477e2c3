//go:build !linux

package button

import (
	"context"
	"errors"
)

// Button is unavailable off Linux.
type Button struct{}

// Open always fails off Linux.
func Open(device string, keyCode uint16, handler Handler) (*Button, error) {
	return nil, errors.New("evdev input is only supported on linux")
}

// Run returns immediately.
func (b *Button) Run(ctx context.Context) error { return nil }

// Close is a no-op.
func (b *Button) Close() error { return nil }
