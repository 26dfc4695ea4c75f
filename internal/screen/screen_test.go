package screen

import (
	"testing"

	"github.com/timvw/screen-patrol/internal/field"
)

// blankBuffer returns a rows x cols buffer of ordinary character cells.
func blankBuffer(rows, cols int) [][]string {
	buf := make([][]string, rows)
	for r := range buf {
		buf[r] = make([]string, cols)
		for c := range buf[r] {
			buf[r][c] = "40"
		}
	}
	return buf
}

func mustNew(t *testing.T, rows, cols int, opts Options) *Reconstructor {
	t.Helper()
	r, err := New(rows, cols, opts)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", rows, cols, err)
	}
	return r
}

func TestRefresh_SingleClosedField(t *testing.T) {
	buf := blankBuffer(2, 10)
	buf[0][0] = "SF(c0=c1)"
	buf[1][0] = "SF(c0=e0)"
	rendered := []string{
		" HELLO    ",
		"WORLD     ",
	}

	r := mustNew(t, 2, 10, Options{})
	res, err := r.Refresh(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Markers != 2 {
		t.Errorf("Markers: got %d, want 2", res.Markers)
	}
	if len(res.Fields) != 1 {
		t.Fatalf("expected exactly 1 field, got %d", len(res.Fields))
	}
	f := res.Fields[0]
	if f.Row != 0 || f.Col != 1 {
		t.Errorf("start: got (%d,%d), want (0,1)", f.Row, f.Col)
	}
	if f.Text != "HELLO    " {
		t.Errorf("Text: got %q, want %q", f.Text, "HELLO    ")
	}
	if f.Data != "HELLO" {
		t.Errorf("Data: got %q, want %q", f.Data, "HELLO")
	}
	if f.Length != 9 {
		t.Errorf("Length: got %d, want 9", f.Length)
	}
	if !f.Editable || !f.Visible {
		t.Errorf("expected editable visible field, got %v", f)
	}
}

func TestScan_FieldCountIsMarkersMinusOne(t *testing.T) {
	tests := []struct {
		name    string
		markers [][2]int
	}{
		{name: "no markers", markers: nil},
		{name: "one marker", markers: [][2]int{{0, 3}}},
		{name: "two markers same row", markers: [][2]int{{0, 0}, {0, 5}}},
		{name: "markers on every row", markers: [][2]int{{0, 2}, {1, 4}, {2, 0}, {3, 7}}},
		{name: "adjacent markers", markers: [][2]int{{1, 1}, {1, 2}, {1, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := blankBuffer(4, 8)
			for _, m := range tt.markers {
				buf[m[0]][m[1]] = "SF(c0=e0)"
			}
			rendered := []string{"abcdefgh", "ijklmnop", "qrstuvwx", "yzABCDEF"}
			r := mustNew(t, 4, 8, Options{})
			res, err := r.Scan(buf, rendered)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := len(tt.markers) - 1
			if want < 0 {
				want = 0
			}
			if len(res.Fields) != want {
				t.Errorf("fields: got %d, want %d", len(res.Fields), want)
			}
			if res.Markers != len(tt.markers) {
				t.Errorf("Markers: got %d, want %d", res.Markers, len(tt.markers))
			}
		})
	}
}

func TestScan_RowMajorOrderAndWraparound(t *testing.T) {
	buf := blankBuffer(3, 6)
	buf[0][5] = "SF(c0=c1)" // last column: field starts at (1,0)
	buf[2][0] = "SF(c0=e0)" // first column: previous field ends at (1,5)
	buf[2][3] = "SF(c0=e0)"
	rendered := []string{
		"......",
		"ABCDEF",
		".xy.zz",
	}

	r := mustNew(t, 3, 6, Options{})
	res, err := r.Scan(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(res.Fields))
	}

	first := res.Fields[0]
	if first.Row != 1 || first.Col != 0 {
		t.Errorf("first start: got (%d,%d), want (1,0)", first.Row, first.Col)
	}
	if first.Text != "ABCDEF" {
		t.Errorf("first Text: got %q, want %q", first.Text, "ABCDEF")
	}

	second := res.Fields[1]
	if second.Row != 2 || second.Col != 1 {
		t.Errorf("second start: got (%d,%d), want (2,1)", second.Row, second.Col)
	}
	if second.Text != "xy" {
		t.Errorf("second Text: got %q, want %q", second.Text, "xy")
	}

	for i := 1; i < len(res.Fields); i++ {
		prev, cur := res.Fields[i-1], res.Fields[i]
		if cur.Row < prev.Row || (cur.Row == prev.Row && cur.Col < prev.Col) {
			t.Errorf("field %d at (%d,%d) discovered before field %d at (%d,%d)",
				i-1, prev.Row, prev.Col, i, cur.Row, cur.Col)
		}
	}
}

func TestScan_FieldSpanningRows(t *testing.T) {
	buf := blankBuffer(3, 5)
	buf[0][2] = "SF(c0=c1)"
	buf[2][1] = "SF(c0=e0)"
	rendered := []string{
		"...A_",
		"CDEFG",
		"H.___",
	}

	r := mustNew(t, 3, 5, Options{})
	res, err := r.Scan(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(res.Fields))
	}
	f := res.Fields[0]
	if f.Text != "A_CDEFGH" {
		t.Errorf("Text: got %q, want %q", f.Text, "A_CDEFGH")
	}
	if f.Data != "A CDEFGH" {
		t.Errorf("Data: got %q, want %q", f.Data, "A CDEFGH")
	}
}

func TestScan_AdjacentMarkersGiveEmptyField(t *testing.T) {
	buf := blankBuffer(1, 6)
	buf[0][1] = "SF(c0=e0)"
	buf[0][2] = "SF(c0=c1)"
	buf[0][5] = "SF(c0=e0)"
	rendered := []string{".. ab."}

	r := mustNew(t, 1, 6, Options{})
	res, err := r.Scan(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(res.Fields))
	}
	if res.Fields[0].Text != "" || res.Fields[0].Length != 0 {
		t.Errorf("expected empty first field, got %v", res.Fields[0])
	}
	if res.Fields[1].Text != "ab" {
		t.Errorf("second Text: got %q, want %q", res.Fields[1].Text, "ab")
	}
}

func TestScan_KeepTrailing(t *testing.T) {
	buf := blankBuffer(2, 4)
	buf[0][0] = "SF(c0=e0)"
	buf[1][0] = "SF(c0=c1)"
	rendered := []string{".ab.", ".cd_"}

	dropped, err := mustNew(t, 2, 4, Options{}).Scan(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dropped.Fields) != 1 {
		t.Fatalf("default: expected 1 field, got %d", len(dropped.Fields))
	}

	kept, err := mustNew(t, 2, 4, Options{KeepTrailing: true}).Scan(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept.Fields) != 2 {
		t.Fatalf("KeepTrailing: expected 2 fields, got %d", len(kept.Fields))
	}
	last := kept.Fields[1]
	if last.Text != "cd_" || last.Data != "cd" || !last.Editable {
		t.Errorf("trailing field: got %v", last)
	}
}

func TestScan_KeepTrailingMarkerInLastCell(t *testing.T) {
	buf := blankBuffer(1, 3)
	buf[0][0] = "SF(c0=e0)"
	buf[0][2] = "SF(c0=c1)"
	res, err := mustNew(t, 1, 3, Options{KeepTrailing: true}).Scan(buf, []string{".x."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 1 {
		t.Errorf("expected the off-grid trailing field to be dropped, got %d fields", len(res.Fields))
	}
}

func TestScan_CustomFiller(t *testing.T) {
	buf := blankBuffer(1, 6)
	buf[0][0] = "SF(c0=c1)"
	buf[0][5] = "SF(c0=e0)"
	res, err := mustNew(t, 1, 6, Options{Filler: "."}).Scan(buf, []string{" 1_..."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Fields[0].Data; got != "1_" {
		t.Errorf("Data: got %q, want %q", got, "1_")
	}
}

func TestScan_MalformedMarker(t *testing.T) {
	buf := blankBuffer(1, 4)
	buf[0][2] = "SF"
	_, err := mustNew(t, 1, 4, Options{}).Scan(buf, []string{"    "})
	if !IsMalformedMarker(err) {
		t.Fatalf("expected malformed marker error, got %v", err)
	}
	se := err.(*ScreenError)
	if se.Row != 0 || se.Col != 2 {
		t.Errorf("error position: got (%d,%d), want (0,2)", se.Row, se.Col)
	}
}

func TestScan_GeometryMismatch(t *testing.T) {
	r := mustNew(t, 2, 3, Options{})
	tests := []struct {
		name     string
		buffer   [][]string
		rendered []string
	}{
		{name: "too few buffer rows", buffer: blankBuffer(1, 3), rendered: []string{"...", "..."}},
		{name: "short buffer row", buffer: [][]string{{"40", "40", "40"}, {"40"}}, rendered: []string{"...", "..."}},
		{name: "rendered rows missing", buffer: blankBuffer(2, 3), rendered: []string{"..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Refresh(tt.buffer, tt.rendered)
			if !IsGeometry(err) {
				t.Errorf("expected geometry error, got %v", err)
			}
		})
	}
}

func TestNew_InvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 80}, {24, 0}, {-1, 80}} {
		if _, err := New(dims[0], dims[1], Options{}); !IsGeometry(err) {
			t.Errorf("New(%d, %d): expected geometry error, got %v", dims[0], dims[1], err)
		}
	}
}

func TestTextFromScreen(t *testing.T) {
	r := mustNew(t, 3, 4, Options{})
	rendered := []string{"abcd", "efgh", "ijkl"}

	tests := []struct {
		name     string
		startRow int
		startCol int
		endRow   int
		endCol   int
		want     string
		wantOK   bool
	}{
		{name: "single cell", startRow: 1, startCol: 2, endRow: 1, endCol: 2, want: "g", wantOK: true},
		{name: "same row span", startRow: 0, startCol: 1, endRow: 0, endCol: 3, want: "bcd", wantOK: true},
		{name: "two rows", startRow: 0, startCol: 2, endRow: 1, endCol: 1, want: "cdef", wantOK: true},
		{name: "three rows", startRow: 0, startCol: 3, endRow: 2, endCol: 0, want: "defghi", wantOK: true},
		{name: "whole screen", startRow: 0, startCol: 0, endRow: 2, endCol: 3, want: "abcdefghijkl", wantOK: true},
		{name: "end column off grid", startRow: 0, startCol: 0, endRow: 0, endCol: 4},
		{name: "end row off grid", startRow: 0, startCol: 0, endRow: 3, endCol: 0},
		{name: "reversed on same row", startRow: 1, startCol: 3, endRow: 1, endCol: 2},
		{name: "reversed rows", startRow: 2, startCol: 0, endRow: 1, endCol: 3},
		{name: "negative end row", startRow: 0, startCol: 0, endRow: -1, endCol: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.TextFromScreen(rendered, tt.startRow, tt.startCol, tt.endRow, tt.endCol)
			if ok != tt.wantOK {
				t.Errorf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("text: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFromScreen_ShortRenderedRow(t *testing.T) {
	r := mustNew(t, 2, 6, Options{})
	got, ok := r.TextFromScreen([]string{"ab", "cdefgh"}, 0, 1, 1, 2)
	if !ok {
		t.Fatal("expected ok")
	}
	if got != "bcde" {
		t.Errorf("text: got %q, want %q", got, "bcde")
	}
}

func TestSplitBuffer(t *testing.T) {
	got := SplitBuffer([]string{"SF(c0=e0) 48 45  4c", "  SF(c0=c1) 00 "})
	if len(got) != 2 || len(got[0]) != 4 || len(got[1]) != 2 {
		t.Fatalf("unexpected split: %q", got)
	}
	if got[0][0] != "SF(c0=e0)" || got[1][0] != "SF(c0=c1)" {
		t.Errorf("unexpected tokens: %q", got)
	}
}

func TestRefresh_LabelsFromBuffer(t *testing.T) {
	buf := blankBuffer(2, 20)
	buf[0][0] = "SF(c0=e0)"
	buf[0][6] = "SF(c0=c1)"
	buf[0][15] = "SF(c0=e0)"
	buf[1][0] = "SF(c0=e0)"
	buf[1][6] = "SF(c0=cd)"
	buf[1][15] = "SF(c0=e0)"
	rendered := []string{
		" Name: ________     ",
		" Pass: ________     ",
	}

	res, err := mustNew(t, 2, 20, Options{}).Refresh(buf, rendered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 5 {
		t.Fatalf("expected 5 fields, got %d", len(res.Fields))
	}

	name := res.Fields[1]
	if name.Label != "Name" {
		t.Errorf("name field Label: got %q, want %q", name.Label, "Name")
	}
	if !name.Editable || name.Length != 8 || name.Data != "" {
		t.Errorf("name field: got %v", name)
	}

	pass := res.Fields[4]
	if pass.Visible {
		t.Error("expected password field to be hidden")
	}
	// The default pattern only recognizes "Label:" captions in front of
	// visible fields.
	if pass.Label != "" {
		t.Errorf("password field Label: got %q, want empty", pass.Label)
	}
	if res.Labeled != 1 {
		t.Errorf("Labeled: got %d, want 1", res.Labeled)
	}
	for _, i := range []int{0, 2, 3} {
		if res.Fields[i].Label != "" {
			t.Errorf("field %d: unexpected label %q", i, res.Fields[i].Label)
		}
	}
}

func textField(t *testing.T, marker string, row, col int, text string) *field.Field {
	t.Helper()
	f, err := field.New(marker, row, col)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	f.SetText(text)
	return f
}
