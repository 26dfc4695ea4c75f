package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/timvw/screen-patrol/internal/model"
	"github.com/timvw/screen-patrol/internal/store"
)

// Replay serves captured screens from a store, one after another. Every
// attention key advances to the next screen; the last screen stays current.
type Replay struct {
	mu    sync.Mutex
	store *store.Store
	names []string
	pos   int
	sent  []string
}

// NewReplay replays the named screens in order, or every stored screen in
// sorted order when no names are given.
func NewReplay(st *store.Store, names ...string) (*Replay, error) {
	if len(names) == 0 {
		names = st.Names()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no screens stored in %s", st.Path())
	}
	for _, name := range names {
		if !st.Has(name) {
			return nil, fmt.Errorf("%w: %q", store.ErrNotFound, name)
		}
	}
	return &Replay{store: st, names: names}, nil
}

// Name returns "replay".
func (r *Replay) Name() string { return "replay" }

// Current returns the name of the screen being served.
func (r *Replay) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[r.pos]
}

// Dimensions returns the size of the current screen.
func (r *Replay) Dimensions(ctx context.Context) (int, int, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	return snap.Rows, snap.Cols, nil
}

// Snapshot returns the current screen.
func (r *Replay) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.store.Get(r.Current())
}

// Exec records command and, for attention keys, moves to the next screen.
func (r *Replay) Exec(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, command)
	if IsAID(command) && r.pos < len(r.names)-1 {
		r.pos++
	}
	return nil
}

// Sent returns the commands received so far.
func (r *Replay) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

// Close is a no-op.
func (r *Replay) Close() error { return nil }
