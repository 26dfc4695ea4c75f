// Package field models a single field of a fixed-grid terminal screen.
//
// A field starts at the cell right after a start-of-field marker in the raw
// screen buffer and runs until the cell right before the next marker. The
// marker carries the field attributes, which decide whether the field is
// editable and whether its content is displayed.
package field

import (
	"fmt"
	"strings"
	"unicode"
)

// MarkerPrefix is the two-character token kind of a start-of-field marker
// in a ReadBuffer(Ascii) dump, e.g. "SF(c0=c1)".
const MarkerPrefix = "SF"

// DefaultFiller is the character terminals paint in empty editable positions.
const DefaultFiller = "_"

// Attribute combinations understood by the model.
const (
	// AttrModifiable marks an unprotected, displayed field.
	AttrModifiable = "c0=c1"
	// AttrModifiableHidden marks an unprotected, non-display field
	// (password-style input).
	AttrModifiableHidden = "c0=cd"
)

// Field is one span of the screen in reading order.
type Field struct {
	// Attributes are the key=value pairs of the marker that opened the field.
	Attributes []string `json:"attributes"`
	// Row and Col address the first content cell, not the marker cell.
	Row int `json:"row"`
	Col int `json:"col"`
	// Text is the raw rendered text, filler characters included.
	Text string `json:"text"`
	// Filler is the padding character of empty editable positions.
	Filler string `json:"-"`
	// Data is Text with filler replaced by spaces, right-trimmed.
	Data   string `json:"data"`
	Length int    `json:"length"`

	Visible  bool `json:"visible"`
	Editable bool `json:"editable"`

	// Label is assigned by the label pass; empty when nothing matched.
	Label string `json:"label,omitempty"`
}

// MarkerError reports a start-of-field token without the expected
// <kind>(<attributes>) structure.
type MarkerError struct {
	Marker string
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("malformed start-of-field marker %q", e.Marker)
}

// IsMarker reports whether a buffer token opens a new field.
func IsMarker(token string) bool {
	return strings.HasPrefix(token, MarkerPrefix)
}

// ParseAttributes extracts the attribute list of a marker token such as
// "SF(c0=c1,41=f4)". The kind and the enclosing delimiters are dropped and
// the payload is split on ",".
func ParseAttributes(marker string) ([]string, error) {
	if len(marker) < len(MarkerPrefix)+2 {
		return nil, &MarkerError{Marker: marker}
	}
	return strings.Split(marker[len(MarkerPrefix)+1:len(marker)-1], ","), nil
}

// New creates a field opened by marker at the given content position, using
// the default filler. Its text stays empty until SetText is called.
func New(marker string, row, col int) (*Field, error) {
	return NewWithFiller(marker, row, col, DefaultFiller)
}

// NewWithFiller is New with a custom filler character.
func NewWithFiller(marker string, row, col int, filler string) (*Field, error) {
	attrs, err := ParseAttributes(marker)
	if err != nil {
		return nil, err
	}
	f := &Field{
		Attributes: attrs,
		Row:        row,
		Col:        col,
		Filler:     filler,
		Visible:    true,
	}
	for _, a := range attrs {
		switch a {
		case AttrModifiableHidden:
			f.Visible = false
			f.Editable = true
		case AttrModifiable:
			f.Editable = true
		}
	}
	f.SetText("")
	return f, nil
}

// SetText replaces the raw text and recomputes Length and Data.
// It returns the new Data.
func (f *Field) SetText(text string) string {
	f.Text = text
	f.Length = len([]rune(text))
	f.Data = Clean(text, f.Filler)
	return f.Data
}

// Clean derives the caller-facing value of a raw field text.
func Clean(text, filler string) string {
	if filler != "" {
		text = strings.ReplaceAll(text, filler, " ")
	}
	return strings.TrimRightFunc(text, unicode.IsSpace)
}

// String returns a debug representation of the field.
func (f *Field) String() string {
	return fmt.Sprintf("Field{(%d,%d) len=%d editable=%v visible=%v label=%q data=%q}",
		f.Row, f.Col, f.Length, f.Editable, f.Visible, f.Label, f.Data)
}
