package session

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/timvw/screen-patrol/internal/store"
)

// Options selects and configures a session implementation.
type Options struct {
	// Name is "s3270" or "replay".
	Name string
	// S3270Path is the emulator binary.
	S3270Path string
	// Host is the mainframe to connect to.
	Host string
	// ScreensFile backs the replay session.
	ScreensFile string
	// Screens restricts replay to the given screen names, in order.
	Screens []string
	Logger  *zap.Logger
}

// FromName creates a Session by name.
func FromName(ctx context.Context, opts Options) (Session, error) {
	switch opts.Name {
	case "s3270", "":
		path, err := exec.LookPath(opts.S3270Path)
		if err != nil {
			return nil, fmt.Errorf("s3270 emulator not found at %q: %w", opts.S3270Path, err)
		}
		return StartS3270(ctx, path, opts.Host, opts.Logger)
	case "replay":
		st, err := store.Load(opts.ScreensFile)
		if err != nil {
			return nil, err
		}
		return NewReplay(st, opts.Screens...)
	default:
		return nil, fmt.Errorf("unknown session: %q (supported: s3270, replay)", opts.Name)
	}
}
