//go:build linux

package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"syscall"
)

// Handler receives parsed commands.
type Handler func(Command)

// Pipe listens for commands on a named pipe, one per line. Any local
// process can control the intercom with e.g. `echo open > /run/intercom.cmd`.
type Pipe struct {
	path    string
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPipe creates the named pipe at path. Returns nil if path is empty.
func NewPipe(path string, handler Handler) (*Pipe, error) {
	if path == "" {
		return nil, nil
	}

	os.Remove(path)
	if err := syscall.Mkfifo(path, 0660); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipe{path: path, handler: handler, ctx: ctx, cancel: cancel}, nil
}

// Start reads commands until Close. Run it in its own goroutine.
func (p *Pipe) Start() {
	log.Printf("command pipe: listening on %s", p.path)

	for {
		if p.ctx.Err() != nil {
			return
		}

		// Blocks until a writer connects.
		f, err := os.OpenFile(p.path, os.O_RDONLY, 0)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			log.Printf("command pipe: open error: %v", err)
			continue
		}
		p.serve(f)
		f.Close()
	}
}

func (p *Pipe) serve(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if p.ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := Parse(line)
		if err != nil {
			log.Printf("command pipe: %v", err)
			continue
		}
		cmd.Source = "pipe"
		if p.handler != nil {
			p.handler(cmd)
		}
	}
}

// Close stops the listener and removes the pipe.
func (p *Pipe) Close() error {
	p.cancel()
	// Unblock a Start waiting in open.
	if w, err := os.OpenFile(p.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		w.Close()
	}
	return os.Remove(p.path)
}
