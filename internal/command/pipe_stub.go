//go:build !linux

package command

import "errors"

// Handler receives parsed commands.
type Handler func(Command)

// Pipe is not available on non-Linux platforms.
type Pipe struct{}

// NewPipe returns nil when path is empty and an error otherwise.
func NewPipe(path string, handler Handler) (*Pipe, error) {
	if path == "" {
		return nil, nil
	}
	return nil, errors.New("command pipe: not supported on this platform (requires Linux)")
}

// Start is not implemented on non-Linux platforms.
func (p *Pipe) Start() {}

// Close is not implemented on non-Linux platforms.
func (p *Pipe) Close() error {
	return nil
}
