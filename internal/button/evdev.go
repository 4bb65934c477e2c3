//go:build linux

package button

import (
	"context"
	"fmt"
	"log"

	"github.com/kenshaw/evdev"
)

// Button reads key events from an input device.
type Button struct {
	dev     *evdev.Evdev
	keyCode uint16
	handler Handler
}

// Open opens the input device. keyCode selects the key that opens the
// door; 0 accepts any key.
func Open(device string, keyCode uint16, handler Handler) (*Button, error) {
	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}
	log.Printf("button: opened %s (%s), key %d", device, dev.Name(), keyCode)
	return &Button{dev: dev, keyCode: keyCode, handler: handler}, nil
}

// Run delivers a command for every matching press until ctx is cancelled
// or the device goes away.
func (b *Button) Run(ctx context.Context) error {
	ch := b.dev.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-ch:
			if event == nil {
				return fmt.Errorf("input device closed")
			}
			if _, ok := event.Type.(evdev.KeyType); !ok {
				continue
			}
			if !matches(b.keyCode, event.Code, event.Value) {
				continue
			}
			log.Printf("button: key %d pressed", event.Code)
			b.handler(pressCommand())
		}
	}
}

// Close releases the device.
func (b *Button) Close() error {
	if b.dev == nil {
		return nil
	}
	return b.dev.Close()
}
