// Package screen rebuilds the field layout of a fixed-grid terminal screen.
//
// A snapshot of the screen comes in two parts: the rendered rows (what the
// user sees) and the raw buffer (one token per cell, where start-of-field
// markers carry the field attributes). The Reconstructor walks the buffer in
// row-major order, opens a field after every marker, closes the previous one
// right before it, and cuts each field's text out of the rendered rows.
//
// A second pass pairs fields with nearby captions. For every field a short
// probe string is built from the field's same-row neighbours and handed to a
// LabelMatcher; when it reports a caption, the first word cluster of that
// neighbour becomes the field's label.
//
// A Reconstructor holds no per-snapshot state and is safe for concurrent use.
package screen

import (
	"strings"

	"go.uber.org/zap"

	"github.com/timvw/screen-patrol/internal/field"
)

// Options configures a Reconstructor.
type Options struct {
	// Filler is the padding character of empty editable positions.
	// Defaults to field.DefaultFiller.
	Filler string
	// Matcher finds captions. Defaults to a PatternMatcher for
	// DefaultLabelPattern.
	Matcher LabelMatcher
	// KeepTrailing closes the field opened by the last marker at the end of
	// the buffer instead of dropping it.
	KeepTrailing bool
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Reconstructor turns snapshots of one rows x cols screen into fields.
type Reconstructor struct {
	rows, cols   int
	filler       string
	matcher      LabelMatcher
	keepTrailing bool
	logger       *zap.Logger
}

// Result is the outcome of one refresh.
type Result struct {
	// Fields are in discovery order: top-to-bottom, left-to-right.
	Fields []*field.Field
	// Markers is the number of start-of-field markers in the buffer.
	Markers int
	// Labeled is the number of fields that received a label.
	Labeled int
}

// New creates a Reconstructor for a rows x cols screen.
func New(rows, cols int, opts Options) (*Reconstructor, error) {
	if rows <= 0 || cols <= 0 {
		return nil, newGeometryError("screen dimensions must be positive, got %dx%d", rows, cols)
	}
	r := &Reconstructor{
		rows:         rows,
		cols:         cols,
		filler:       opts.Filler,
		matcher:      opts.Matcher,
		keepTrailing: opts.KeepTrailing,
		logger:       opts.Logger,
	}
	if r.filler == "" {
		r.filler = field.DefaultFiller
	}
	if r.matcher == nil {
		m, err := NewPatternMatcher(DefaultLabelPattern)
		if err != nil {
			return nil, err
		}
		r.matcher = m
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

// Rows returns the number of screen rows.
func (r *Reconstructor) Rows() int { return r.rows }

// Cols returns the number of screen columns.
func (r *Reconstructor) Cols() int { return r.cols }

// SplitBuffer splits raw ReadBuffer rows into per-cell tokens.
func SplitBuffer(lines []string) [][]string {
	buffer := make([][]string, len(lines))
	for i, line := range lines {
		buffer[i] = strings.Fields(line)
	}
	return buffer
}

// Refresh rebuilds the fields of one snapshot and labels them.
func (r *Reconstructor) Refresh(buffer [][]string, rendered []string) (*Result, error) {
	res, err := r.Scan(buffer, rendered)
	if err != nil {
		return nil, err
	}
	res.Labeled, err = AssignLabels(res.Fields, r.matcher)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("screen refreshed",
		zap.Int("rows", r.rows),
		zap.Int("cols", r.cols),
		zap.Int("markers", res.Markers),
		zap.Int("fields", len(res.Fields)),
		zap.Int("labeled", res.Labeled),
	)
	return res, nil
}

// Labels runs the configured matcher over fields without mutating them.
func (r *Reconstructor) Labels(fields []*field.Field) (map[int]string, error) {
	return Labels(fields, r.matcher)
}

// AssignLabels runs the configured matcher over fields and stores the
// labels it finds. It returns the number of labeled fields.
func (r *Reconstructor) AssignLabels(fields []*field.Field) (int, error) {
	return AssignLabels(fields, r.matcher)
}

// Validate checks that a snapshot matches the reconstructor dimensions.
func (r *Reconstructor) Validate(buffer [][]string, rendered []string) error {
	if len(buffer) != r.rows {
		return newGeometryError("buffer has %d rows, screen has %d", len(buffer), r.rows)
	}
	for row, cells := range buffer {
		if len(cells) != r.cols {
			return newGeometryError("buffer row %d has %d cells, screen has %d columns", row, len(cells), r.cols)
		}
	}
	if len(rendered) != r.rows {
		return newGeometryError("rendered screen has %d rows, screen has %d", len(rendered), r.rows)
	}
	return nil
}

// Scan runs the boundary scan: it finds every start-of-field marker and
// returns the fields they delimit, without labels. The field opened by the
// last marker is dropped unless KeepTrailing is set.
func (r *Reconstructor) Scan(buffer [][]string, rendered []string) (*Result, error) {
	if err := r.Validate(buffer, rendered); err != nil {
		return nil, err
	}

	res := &Result{}
	var open *field.Field
	for row := 0; row < r.rows; row++ {
		for col := 0; col < r.cols; col++ {
			token := buffer[row][col]
			if !field.IsMarker(token) {
				continue
			}
			res.Markers++
			if open != nil {
				endRow, endCol := r.endOfField(row, col)
				res.Fields = append(res.Fields, r.close(open, rendered, endRow, endCol))
			}
			startRow, startCol := r.startOfField(row, col)
			f, err := field.NewWithFiller(token, startRow, startCol, r.filler)
			if err != nil {
				return nil, &ScreenError{
					Type:    ErrTypeMalformedMarker,
					Message: "cannot parse start-of-field marker",
					Row:     row,
					Col:     col,
					Err:     err,
				}
			}
			open = f
		}
	}

	if open != nil && r.keepTrailing && open.Row < r.rows {
		res.Fields = append(res.Fields, r.close(open, rendered, r.rows-1, r.cols-1))
	}
	return res, nil
}

// close finalizes the text of f, which ends at (endRow, endCol).
func (r *Reconstructor) close(f *field.Field, rendered []string, endRow, endCol int) *field.Field {
	text, ok := r.TextFromScreen(rendered, f.Row, f.Col, endRow, endCol)
	if !ok {
		r.logger.Debug("field span out of order, leaving text empty",
			zap.Int("start_row", f.Row),
			zap.Int("start_col", f.Col),
			zap.Int("end_row", endRow),
			zap.Int("end_col", endCol),
		)
	}
	f.SetText(text)
	return f
}

// startOfField returns the first content cell after a marker at (row, col).
func (r *Reconstructor) startOfField(row, col int) (int, int) {
	if col == r.cols-1 {
		return row + 1, 0
	}
	return row, col + 1
}

// endOfField returns the last content cell before a marker at (row, col).
func (r *Reconstructor) endOfField(row, col int) (int, int) {
	if col == 0 {
		return row - 1, r.cols - 1
	}
	return row, col - 1
}

// TextFromScreen concatenates the rendered cells from (startRow, startCol)
// through (endRow, endCol) inclusive, in reading order. It reports false and
// returns "" when the end lies outside the grid or the span runs backwards.
func (r *Reconstructor) TextFromScreen(rendered []string, startRow, startCol, endRow, endCol int) (string, bool) {
	if startRow < 0 || startCol < 0 || endRow < 0 || endCol < 0 {
		return "", false
	}
	if endCol >= r.cols || endRow >= r.rows || endRow >= len(rendered) {
		return "", false
	}
	if startRow > endRow || (startRow == endRow && startCol > endCol) {
		return "", false
	}

	var b strings.Builder
	col := startCol
	for row := startRow; row <= endRow; row++ {
		to := r.cols
		if row == endRow {
			to = endCol + 1
		}
		b.WriteString(slice([]rune(rendered[row]), col, to))
		col = 0
	}
	return b.String(), true
}

// slice returns line[from:to], clamped to the line length.
func slice(line []rune, from, to int) string {
	if to > len(line) {
		to = len(line)
	}
	if from >= to {
		return ""
	}
	return string(line[from:to])
}
