package navigator

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/timvw/screen-patrol/internal/model"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ibmuser", `String("ibmuser")`},
		{`say "hi"`, `String("say \"hi\"")`},
		{`C:\TEMP`, `String("C:\\TEMP")`},
		{"", `String("")`},
	}
	for _, tt := range tests {
		if got := TypeString(tt.in); got != tt.want {
			t.Errorf("TypeString(%q): got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMoveCursor(t *testing.T) {
	if got := MoveCursor(3, 17); got != "MoveCursor(3,17)" {
		t.Errorf("MoveCursor: got %q", got)
	}
}

func TestFill(t *testing.T) {
	nav, replay := newReplayNavigator(t, Options{})
	ctx := context.Background()
	if _, err := nav.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	m, err := nav.Fill(ctx, map[string]string{"user": "ibmuser"})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	want := []string{"MoveCursor(0,7)", "EraseEOF", `String("ibmuser")`}
	if got := replay.Sent(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands: got %q, want %q", got, want)
	}
	if replay.Current() != "login" {
		t.Errorf("typing must not leave the screen, now on %q", replay.Current())
	}
	if m == nil || nav.Current() != m {
		t.Error("Fill should refresh the current map")
	}
}

func TestFill_EmptyValueOnlyErases(t *testing.T) {
	nav, replay := newReplayNavigator(t, Options{})
	ctx := context.Background()
	if _, err := nav.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := nav.Fill(ctx, map[string]string{"User": ""}); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if got, want := replay.Sent(), []string{"MoveCursor(0,7)", "EraseEOF"}; !reflect.DeepEqual(got, want) {
		t.Errorf("commands: got %q, want %q", got, want)
	}
}

func TestFill_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   error
	}{
		{"unknown label", map[string]string{"Account": "1"}, model.ErrNoSuchLabel},
		{"too long", map[string]string{"User": "ibmuser12"}, ErrTooLong},
		{"one bad value stops all", map[string]string{"User": "ok", "Nope": "x"}, model.ErrNoSuchLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, replay := newReplayNavigator(t, Options{})
			ctx := context.Background()
			if _, err := nav.Refresh(ctx); err != nil {
				t.Fatalf("Refresh: %v", err)
			}
			if _, err := nav.Fill(ctx, tt.values); !errors.Is(err, tt.want) {
				t.Fatalf("Fill: got %v, want %v", err, tt.want)
			}
			if sent := replay.Sent(); len(sent) != 0 {
				t.Errorf("nothing should be typed on error, sent %q", sent)
			}
		})
	}
}

func TestFill_BeforeRefresh(t *testing.T) {
	nav, _ := newReplayNavigator(t, Options{})
	if _, err := nav.Fill(context.Background(), map[string]string{"User": "x"}); !errors.Is(err, ErrNoScreen) {
		t.Errorf("Fill: got %v, want ErrNoScreen", err)
	}
}

func TestFillAt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	nav, replay := newReplayNavigator(t, Options{Logger: zap.New(core)})
	ctx := context.Background()
	if _, err := nav.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, err := nav.FillAt(ctx, 1, 7, "s3cret"); err != nil {
		t.Fatalf("FillAt: %v", err)
	}
	if got := replay.Sent(); len(got) != 3 || got[2] != `String("s3cret")` {
		t.Errorf("commands: got %q", got)
	}
	for _, e := range logs.All() {
		if cmd, ok := e.ContextMap()["command"].(string); ok && cmd == `String("s3cret")` {
			t.Errorf("hidden field value logged: %v", e.ContextMap())
		}
	}

	if _, err := nav.FillAt(ctx, 0, 1, "x"); !errors.Is(err, ErrNotEditable) {
		t.Errorf("FillAt protected: got %v, want ErrNotEditable", err)
	}
	if _, err := nav.FillAt(ctx, 5, 5, "x"); err == nil {
		t.Error("FillAt with no field at the cell: expected error")
	}
}
