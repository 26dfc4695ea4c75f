package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timvw/screen-patrol/internal/field"
)

// Snapshot is one consistent capture of a terminal screen.
type Snapshot struct {
	// Rows and Cols are the screen dimensions.
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
	// Ascii holds the rendered rows, exactly Rows of them.
	Ascii []string `json:"ascii" yaml:"ascii"`
	// Buffer holds the raw ReadBuffer(Ascii) rows, one space-separated token
	// per cell.
	Buffer []string `json:"buffer" yaml:"buffer"`
	// Status is the emulator status line at capture time.
	Status string `json:"status" yaml:"status"`
	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
}

// Status is the parsed s3270 status line.
//
// The line has twelve space-separated fields: keyboard state, screen
// formatting, field protection, connection state, emulator mode, model
// number, rows, columns, cursor row, cursor column, window id and command
// execution time.
type Status struct {
	KeyboardLocked bool   `json:"keyboard_locked"`
	Formatted      bool   `json:"formatted"`
	Protected      bool   `json:"protected"`
	Connection     string `json:"connection"`
	Rows           int    `json:"rows"`
	Cols           int    `json:"cols"`
	CursorRow      int    `json:"cursor_row"`
	CursorCol      int    `json:"cursor_col"`
}

// Connected reports whether the emulator is connected to a host.
func (s Status) Connected() bool {
	return strings.HasPrefix(s.Connection, "C(")
}

// ParseStatus parses an s3270 status line.
func ParseStatus(line string) (Status, error) {
	parts := strings.Fields(line)
	if len(parts) < 10 {
		return Status{}, fmt.Errorf("status line has %d fields, want at least 10: %q", len(parts), line)
	}
	nums := make([]int, 4)
	for i := range nums {
		n, err := strconv.Atoi(parts[6+i])
		if err != nil {
			return Status{}, fmt.Errorf("status field %d: %w", 7+i, err)
		}
		nums[i] = n
	}
	return Status{
		KeyboardLocked: parts[0] != "U",
		Formatted:      parts[1] == "F",
		Protected:      parts[2] == "P",
		Connection:     parts[3],
		Rows:           nums[0],
		Cols:           nums[1],
		CursorRow:      nums[2],
		CursorCol:      nums[3],
	}, nil
}

// ErrNoSuchLabel is returned when no field carries the requested label.
var ErrNoSuchLabel = errors.New("no field with that label")

// ScreenMap is the reconstructed, labeled view of one snapshot.
type ScreenMap struct {
	// Name identifies the screen, e.g. the stored screen it came from.
	Name string `json:"name,omitempty"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
	// Fields are in discovery order.
	Fields []*field.Field `json:"fields"`
	// Screen is the rendered text the fields were cut from.
	Screen []string `json:"screen,omitempty"`
	// Markers is the number of start-of-field markers in the buffer.
	Markers int `json:"markers"`
	// LabelSources maps a field index to the source of its label
	// ("pattern" or "llm").
	LabelSources map[int]string `json:"label_sources,omitempty"`
	// Cached is true when the map came from the label cache.
	Cached bool `json:"cached,omitempty"`
	// Usage tracks LLM tokens spent labeling this screen.
	Usage TokenUsage `json:"usage,omitempty"`
	// RefreshedAt is when the map was built.
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Field returns the first field whose label equals label, ignoring case.
func (m *ScreenMap) Field(label string) (*field.Field, bool) {
	for _, f := range m.Fields {
		if f.Label != "" && strings.EqualFold(f.Label, label) {
			return f, true
		}
	}
	return nil, false
}

// Editable returns the editable fields in discovery order.
func (m *ScreenMap) Editable() []*field.Field {
	var out []*field.Field
	for _, f := range m.Fields {
		if f.Editable {
			out = append(out, f)
		}
	}
	return out
}

// Unlabeled returns the indices of editable fields without a label.
func (m *ScreenMap) Unlabeled() []int {
	var out []int
	for i, f := range m.Fields {
		if f.Editable && f.Label == "" {
			out = append(out, i)
		}
	}
	return out
}

// Read returns the data of the field labeled label.
func (m *ScreenMap) Read(label string) (string, error) {
	f, ok := m.Field(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoSuchLabel, label)
	}
	return f.Data, nil
}

// Labels returns label -> data for every labeled field. When two fields
// share a label the first one wins.
func (m *ScreenMap) Labels() map[string]string {
	out := make(map[string]string)
	for _, f := range m.Fields {
		if f.Label == "" {
			continue
		}
		if _, seen := out[f.Label]; !seen {
			out[f.Label] = f.Data
		}
	}
	return out
}

// TokenUsage tracks LLM token consumption for a single evaluation.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// CacheReadInputTokens is the number of input tokens read from the
	// provider's prompt cache (Anthropic cache_read_input_tokens,
	// OpenAI prompt_tokens_details.cached_tokens).
	CacheReadInputTokens int64 `json:"cache_read_input_tokens,omitempty"`
	// CacheCreationInputTokens is the number of input tokens used to
	// create a new cache entry (Anthropic only).
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
}

// Add accumulates o into u.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheReadInputTokens += o.CacheReadInputTokens
	u.CacheCreationInputTokens += o.CacheCreationInputTokens
}

// LLMLabel is one label suggested by the LLM, addressed by the start cell of
// the field it names.
type LLMLabel struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Label string `json:"label"`
}

// LLMLabels is the JSON structure returned by the LLM.
type LLMLabels struct {
	Labels []LLMLabel `json:"labels"`

	// Usage is populated by the evaluator, not parsed from the LLM response.
	Usage TokenUsage `json:"-"`
}

// BuildScreenHeader returns the metadata block prepended to the screen text
// sent to the LLM: dimensions plus the editable fields that still need a
// label. Returns an empty string when no field needs one.
func BuildScreenHeader(m *ScreenMap) string {
	idx := m.Unlabeled()
	if len(idx) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Screen Info]\n")
	b.WriteString(fmt.Sprintf("Size: %d rows x %d columns\n", m.Rows, m.Cols))
	b.WriteString("Unlabeled editable fields (row, col, length):\n")
	for _, i := range idx {
		f := m.Fields[i]
		kind := ""
		if !f.Visible {
			kind = " hidden"
		}
		b.WriteString(fmt.Sprintf("  (%d, %d) %d%s\n", f.Row, f.Col, f.Length, kind))
	}
	b.WriteString("\n[Screen Content]\n")
	return b.String()
}
