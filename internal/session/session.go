// Package session talks to the terminal emulator that owns the host
// connection.
//
// This package is pure transport. It executes commands and captures what
// the emulator shows without interpreting it; field reconstruction and
// labeling happen in internal/screen.
package session

import (
	"context"
	"strings"

	"github.com/timvw/screen-patrol/internal/model"
)

// Session abstracts a connection to a fixed-grid terminal.
// Implementations exist for the s3270 scripting emulator and for replaying
// captured screens.
type Session interface {
	// Name returns the implementation name (e.g., "s3270", "replay").
	Name() string

	// Dimensions returns the screen size. It is fixed for the lifetime of a
	// session.
	Dimensions(ctx context.Context) (rows, cols int, err error)

	// Snapshot captures the rendered rows and the raw buffer of the current
	// screen.
	Snapshot(ctx context.Context) (*model.Snapshot, error)

	// Exec runs an emulator action such as "Enter", "PF(3)" or
	// `String("text")` and waits until the host is ready for input again.
	Exec(ctx context.Context, command string) error

	// Close releases the session.
	Close() error
}

// Emulator actions used by callers that drive a form.
const (
	CmdAscii      = "Ascii"
	CmdReadBuffer = "ReadBuffer(Ascii)"
	CmdEnter      = "Enter"
	CmdEraseEOF   = "EraseEOF"
	CmdWaitField  = "Wait(InputField)"
)

// IsAID reports whether command is an attention key: an action that sends
// the screen to the host and may bring up a new one. Cursor movement and
// typing only change the local buffer.
func IsAID(command string) bool {
	switch command {
	case CmdEnter, "Clear", "SysReq", "Attn":
		return true
	}
	return strings.HasPrefix(command, "PF(") || strings.HasPrefix(command, "PA(")
}
