package navigator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/timvw/screen-patrol/internal/store"
)

func TestScanner_Scan(t *testing.T) {
	st := testStore(t)
	bad := loginScreen()
	bad.Buffer = bad.Buffer[:1]
	_ = st.Put("broken", bad)

	s := NewScanner(st, 2, Options{})
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(res.Entries))
	}

	wantNames := []string{"broken", "login", "menu"}
	for i, e := range res.Entries {
		if e.Name != wantNames[i] {
			t.Errorf("entry %d: got %q, want %q", i, e.Name, wantNames[i])
		}
	}
	if res.Entries[0].Error == "" || res.Entries[0].Screen != nil {
		t.Errorf("broken entry: got %+v", res.Entries[0])
	}
	if res.Failed != 1 {
		t.Errorf("Failed: got %d, want 1", res.Failed)
	}
	if got := res.Entries[1].Screen.Labels(); len(got) != 1 || got["User"] != "" {
		t.Errorf("login labels: got %v", got)
	}
	if _, ok := res.Entries[2].Screen.Field("Option"); !ok {
		t.Error("menu: Option field not labeled")
	}
}

func TestScanner_Names(t *testing.T) {
	s := NewScanner(testStore(t), 4, Options{})
	s.Names = []string{"menu", "nowhere"}

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Entries) != 2 || res.Entries[0].Name != "menu" {
		t.Fatalf("entries: got %+v", res.Entries)
	}
	if res.Entries[1].Error == "" {
		t.Error("unknown screen should report an error")
	}
}

func TestScanner_CacheHits(t *testing.T) {
	s := NewScanner(testStore(t), 1, Options{Cache: NewLabelCache(time.Minute)})
	ctx := context.Background()

	if _, err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	res, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.CacheHits != 2 {
		t.Errorf("CacheHits: got %d, want 2", res.CacheHits)
	}
}

func TestScanner_EmptyStore(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "screens.yaml"))
	res, err := NewScanner(st, 4, Options{}).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("entries: got %d, want 0", len(res.Entries))
	}
}
