package navigator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/timvw/screen-patrol/internal/field"
	"github.com/timvw/screen-patrol/internal/logging"
	"github.com/timvw/screen-patrol/internal/model"
	"github.com/timvw/screen-patrol/internal/session"
)

var (
	// ErrNotEditable is returned when filling a protected field.
	ErrNotEditable = errors.New("field is not editable")
	// ErrTooLong is returned when a value does not fit its field.
	ErrTooLong = errors.New("value longer than field")
	// ErrNoScreen is returned when filling before the first refresh.
	ErrNoScreen = errors.New("no screen captured yet")
)

// Fill types values into the fields of the current screen, addressed by
// label. Every value is checked before anything is typed, so a bad label
// leaves the screen untouched. Fields are filled in screen order and the
// screen is refreshed afterwards; nothing is sent to the host.
func (n *Navigator) Fill(ctx context.Context, values map[string]string) (*model.ScreenMap, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil, ErrNoScreen
	}

	type entry struct {
		f     *field.Field
		value string
	}
	entries := make([]entry, 0, len(values))
	for label, value := range values {
		f, ok := n.current.Field(label)
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrNoSuchLabel, label)
		}
		if err := checkValue(f, value); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		entries = append(entries, entry{f, value})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].f, entries[j].f
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})

	for _, e := range entries {
		if err := n.typeInto(ctx, e.f, e.value); err != nil {
			return nil, err
		}
	}
	return n.refreshLocked(ctx)
}

// FillAt types value into the field starting at row, col of the current
// screen. It serves unlabeled fields.
func (n *Navigator) FillAt(ctx context.Context, row, col int, value string) (*model.ScreenMap, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil, ErrNoScreen
	}
	var target *field.Field
	for _, f := range n.current.Fields {
		if f.Row == row && f.Col == col {
			target = f
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("no field starts at (%d, %d)", row, col)
	}
	if err := checkValue(target, value); err != nil {
		return nil, fmt.Errorf("field (%d, %d): %w", row, col, err)
	}
	if err := n.typeInto(ctx, target, value); err != nil {
		return nil, err
	}
	return n.refreshLocked(ctx)
}

func checkValue(f *field.Field, value string) error {
	if !f.Editable {
		return ErrNotEditable
	}
	if l := utf8.RuneCountInString(value); l > f.Length {
		return fmt.Errorf("%w: %d > %d", ErrTooLong, l, f.Length)
	}
	return nil
}

// typeInto replaces the content of f: cursor to the first content cell,
// erase to the end of the field, then type value.
func (n *Navigator) typeInto(ctx context.Context, f *field.Field, value string) error {
	commands := []string{
		MoveCursor(f.Row, f.Col),
		session.CmdEraseEOF,
	}
	if value != "" {
		commands = append(commands, TypeString(value))
	}
	for _, cmd := range commands {
		err := n.session.Exec(ctx, cmd)
		logging.LogCommand(n.logger, n.session.Name(), redact(f, cmd), err)
		if err != nil {
			return fmt.Errorf("fill (%d, %d): %w", f.Row, f.Col, err)
		}
	}
	return nil
}

// MoveCursor returns the action that puts the cursor on row, col
// (zero-based).
func MoveCursor(row, col int) string {
	return fmt.Sprintf("MoveCursor(%d,%d)", row, col)
}

// TypeString returns the action that types s at the cursor.
func TypeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `String("` + r.Replace(s) + `")`
}

// redact hides what is typed into non-display fields from the logs.
func redact(f *field.Field, cmd string) string {
	if f.Visible || !strings.HasPrefix(cmd, "String(") {
		return cmd
	}
	return `String("***")`
}
