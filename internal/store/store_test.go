package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/timvw/screen-patrol/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Rows:   2,
		Cols:   4,
		Ascii:  []string{" AB ", "    "},
		Buffer: []string{"SF(c0=c1) 41 42 SF(c0=e0)", "40 40 40 40"},
		Status: "U F U C(host) I 2 2 4 0 1 0x0 -",
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"login", true},
		{"main_menu_2", true},
		{"", false},
		{"main menu", false},
		{"menu-1", false},
		{"../etc", false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateName(%q): got %v, want ok=%v", tt.name, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q): error %v does not wrap ErrInvalidName", tt.name, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Names()) != 0 {
		t.Errorf("Names: got %v, want empty", s.Names())
	}
}

func TestPutSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "screens.yaml")
	s := New(path)
	if err := s.Put("login", sampleSnapshot()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("menu", sampleSnapshot()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := loaded.Names(), []string{"login", "menu"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names: got %v, want %v", got, want)
	}
	got, err := loaded.Get("login")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, sampleSnapshot()) {
		t.Errorf("Get: got %+v, want %+v", got, sampleSnapshot())
	}
}

func TestPut_InvalidName(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "screens.yaml"))
	if err := s.Put("bad name", sampleSnapshot()); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Put: got %v, want ErrInvalidName", err)
	}
	if s.Has("bad name") {
		t.Error("invalid name was stored")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "screens.yaml"))
	_, err := s.Get("nowhere")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: got %v, want ErrNotFound", err)
	}
}

func TestPut_Overwrites(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "screens.yaml"))
	first := sampleSnapshot()
	second := sampleSnapshot()
	second.Status = "L F U N I 2 2 4 0 0 0x0 -"
	_ = s.Put("login", first)
	_ = s.Put("login", second)

	got, _ := s.Get("login")
	if got.Status != second.Status {
		t.Errorf("Status: got %q, want %q", got.Status, second.Status)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "screens: [oops"},
		{"bad screen name", "screens:\n  bad-name:\n    rows: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "screens.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
