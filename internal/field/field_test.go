package field

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		want   []string
	}{
		{name: "single attribute", marker: "SF(c0=c1)", want: []string{"c0=c1"}},
		{name: "several attributes", marker: "SF(c0=c1,41=f4,42=f2)", want: []string{"c0=c1", "41=f4", "42=f2"}},
		{name: "empty payload", marker: "SF()", want: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAttributes(tt.marker)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAttributes(%q): got %q, want %q", tt.marker, got, tt.want)
			}
		})
	}
}

func TestParseAttributes_Malformed(t *testing.T) {
	for _, marker := range []string{"", "S", "SF", "SF("} {
		_, err := ParseAttributes(marker)
		var me *MarkerError
		if !errors.As(err, &me) {
			t.Errorf("ParseAttributes(%q): expected *MarkerError, got %v", marker, err)
		}
	}
}

func TestIsMarker(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"SF(c0=c1)", true},
		{"SF(c0=e0)", true},
		{"SA(41=f4)", false},
		{"48", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMarker(tt.token); got != tt.want {
			t.Errorf("IsMarker(%q): got %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestNew_Flags(t *testing.T) {
	tests := []struct {
		name         string
		marker       string
		wantEditable bool
		wantVisible  bool
	}{
		{name: "modifiable", marker: "SF(c0=c1)", wantEditable: true, wantVisible: true},
		{name: "modifiable hidden", marker: "SF(c0=cd)", wantEditable: true, wantVisible: false},
		{name: "modifiable with extra attributes", marker: "SF(c0=c1,41=f4)", wantEditable: true, wantVisible: true},
		{name: "protected", marker: "SF(c0=e0)", wantEditable: false, wantVisible: true},
		{name: "protected intensified", marker: "SF(c0=e8)", wantEditable: false, wantVisible: true},
		{name: "empty attribute list", marker: "SF()", wantEditable: false, wantVisible: true},
		{name: "value only as substring", marker: "SF(c0=c10)", wantEditable: false, wantVisible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.marker, 3, 4)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Editable != tt.wantEditable {
				t.Errorf("Editable: got %v, want %v", f.Editable, tt.wantEditable)
			}
			if f.Visible != tt.wantVisible {
				t.Errorf("Visible: got %v, want %v", f.Visible, tt.wantVisible)
			}
			if f.Row != 3 || f.Col != 4 {
				t.Errorf("position: got (%d,%d), want (3,4)", f.Row, f.Col)
			}
			if f.Text != "" || f.Data != "" || f.Length != 0 {
				t.Errorf("expected empty text on creation, got %v", f)
			}
			if f.Label != "" {
				t.Errorf("Label: got %q, want empty", f.Label)
			}
		})
	}
}

func TestSetText(t *testing.T) {
	tests := []struct {
		name       string
		filler     string
		text       string
		wantData   string
		wantLength int
	}{
		{name: "filler becomes spaces", filler: "_", text: "ABC___", wantData: "ABC", wantLength: 6},
		{name: "inner filler kept as space", filler: "_", text: "A_B__", wantData: "A B", wantLength: 5},
		{name: "trailing spaces trimmed", filler: "_", text: "HELLO     ", wantData: "HELLO", wantLength: 10},
		{name: "leading spaces kept", filler: "_", text: "  X  ", wantData: "  X", wantLength: 5},
		{name: "all filler", filler: "_", text: "_____", wantData: "", wantLength: 5},
		{name: "custom filler", filler: ".", text: "12..", wantData: "12", wantLength: 4},
		{name: "empty", filler: "_", text: "", wantData: "", wantLength: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewWithFiller("SF(c0=c1)", 0, 1, tt.filler)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := f.SetText(tt.text)
			if got != tt.wantData {
				t.Errorf("SetText(%q): got %q, want %q", tt.text, got, tt.wantData)
			}
			if f.Data != tt.wantData {
				t.Errorf("Data: got %q, want %q", f.Data, tt.wantData)
			}
			if f.Length != tt.wantLength {
				t.Errorf("Length: got %d, want %d", f.Length, tt.wantLength)
			}
			if f.Text != tt.text {
				t.Errorf("Text: got %q, want %q", f.Text, tt.text)
			}
			if again := f.SetText(tt.text); again != got {
				t.Errorf("second SetText: got %q, want %q", again, got)
			}
		})
	}
}

func TestSetText_LastCallWins(t *testing.T) {
	f, _ := New("SF(c0=c1)", 0, 0)
	f.SetText("FIRST")
	f.SetText("2ND__")
	if f.Data != "2ND" || f.Length != 5 {
		t.Errorf("got data=%q length=%d, want data=%q length=5", f.Data, f.Length, "2ND")
	}
}
