// Package button turns presses on an evdev input device into door
// commands.
package button

import (
	"github.com/sweeney/intercom/internal/command"
)

// Key values reported by the input subsystem.
const (
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// Handler receives the command produced by a press.
type Handler func(command.Command)

// matches reports whether an input event is a fresh press of want. A
// zero want accepts any key. Auto-repeat is ignored.
func matches(want, code uint16, value int32) bool {
	if value != keyPress {
		return false
	}
	return want == 0 || code == want
}

func pressCommand() command.Command {
	return command.Command{Op: command.OpOpen, Source: "button"}
}
