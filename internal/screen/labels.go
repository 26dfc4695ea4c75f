package screen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/timvw/screen-patrol/internal/field"
)

// DefaultLabelPattern recognizes "(@) Label" style captions after a field
// and "Label: @", "Label --> @", "Label ==> @" captions before it.
const DefaultLabelPattern = `(\(?\s*(_|@)\s*\)?\s+(?P<LABELNEXT1>.*))|((?P<LABELPREV2>.*?)\s*(:|-->|==>)@)`

// Placeholders used in a label probe.
const (
	VisiblePlaceholder = "@"
	HiddenPlaceholder  = "_"
	// NeutralPlaceholder replaces placeholder characters that occur inside
	// neighbour text.
	NeutralPlaceholder = "ø"
)

// Group name prefixes selecting where the caption sits relative to the field.
const (
	groupNext = "LABELNEXT"
	groupPrev = "LABELPREV"
)

// LabelMatch is the outcome of a successful label probe.
type LabelMatch struct {
	// Offset is +1 when the caption comes from the following field and -1
	// when it comes from the preceding one.
	Offset int
	// Text is the probe text captured by the pattern.
	Text string
}

// LabelMatcher decides whether a probe string shows a caption next to the
// field it describes. MatchLabel returns nil when it does not.
type LabelMatcher interface {
	// Name identifies the matcher in logs and metrics.
	Name() string

	MatchLabel(probe string) *LabelMatch
}

// PatternMatcher is a LabelMatcher driven by a regular expression with
// LABELNEXT* and LABELPREV* named groups.
type PatternMatcher struct {
	re      *regexp.Regexp
	offsets []int // per subexpression index; 0 for groups without a role
}

// NewPatternMatcher compiles pattern. It fails when the pattern does not
// compile or lacks either named-group role.
func NewPatternMatcher(pattern string) (*PatternMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, newPatternError("label pattern does not compile", err)
	}
	m := &PatternMatcher{re: re, offsets: make([]int, re.NumSubexp()+1)}
	var next, prev bool
	for i, name := range re.SubexpNames() {
		switch {
		case strings.HasPrefix(name, groupNext):
			m.offsets[i] = 1
			next = true
		case strings.HasPrefix(name, groupPrev):
			m.offsets[i] = -1
			prev = true
		}
	}
	if !next || !prev {
		return nil, newPatternError("label pattern needs both a "+groupNext+" and a "+groupPrev+" named group", nil)
	}
	return m, nil
}

// Name returns "pattern".
func (m *PatternMatcher) Name() string { return "pattern" }

// MatchLabel runs the pattern against probe. The first role group that
// participated in the match decides the offset; an empty capture counts.
func (m *PatternMatcher) MatchLabel(probe string) *LabelMatch {
	loc := m.re.FindStringSubmatchIndex(probe)
	if loc == nil {
		return nil
	}
	for i, offset := range m.offsets {
		if offset == 0 || loc[2*i] < 0 {
			continue
		}
		return &LabelMatch{Offset: offset, Text: probe[loc[2*i]:loc[2*i+1]]}
	}
	return nil
}

// Registry holds an ordered list of matchers and tries each one.
type Registry struct {
	matchers []LabelMatcher
}

// NewRegistry creates a registry trying matchers in the given order.
func NewRegistry(matchers ...LabelMatcher) *Registry {
	return &Registry{matchers: matchers}
}

// NewDefaultRegistry creates a registry with a single PatternMatcher for
// pattern, or for DefaultLabelPattern when pattern is empty.
func NewDefaultRegistry(pattern string) (*Registry, error) {
	if pattern == "" {
		pattern = DefaultLabelPattern
	}
	m, err := NewPatternMatcher(pattern)
	if err != nil {
		return nil, err
	}
	return NewRegistry(m), nil
}

// Name returns "registry".
func (r *Registry) Name() string { return "registry" }

// MatchLabel returns the first match of any registered matcher.
func (r *Registry) MatchLabel(probe string) *LabelMatch {
	for _, m := range r.matchers {
		if match := m.MatchLabel(probe); match != nil {
			return match
		}
	}
	return nil
}

var (
	probeReplacer = strings.NewReplacer(VisiblePlaceholder, NeutralPlaceholder, HiddenPlaceholder, NeutralPlaceholder)
	labelWords    = regexp.MustCompile(`\w+(\s+\w+)*`)
)

// Probe builds the single-line string matched for fields[i]: the preceding
// field's data when it sits on the same row, a placeholder for field i
// itself, and the following field's data when it sits on the same row.
func Probe(fields []*field.Field, i int) string {
	cur := fields[i]
	var b strings.Builder
	if i > 0 && fields[i-1].Row == cur.Row {
		b.WriteString(neighbourText(fields[i-1]))
	}
	if cur.Visible {
		b.WriteString(VisiblePlaceholder)
	} else {
		b.WriteString(HiddenPlaceholder)
	}
	if i < len(fields)-1 && fields[i+1].Row == cur.Row {
		b.WriteString(neighbourText(fields[i+1]))
	}
	return b.String()
}

func neighbourText(f *field.Field) string {
	return probeReplacer.Replace(strings.TrimSpace(f.Data))
}

// LabelText returns the first word cluster of data, e.g. "Name" for
// "Name:" or "Account Number" for " Account Number ==>".
func LabelText(data string) string {
	return labelWords.FindString(data)
}

// Labels computes the label of every field without touching the fields.
// The result is keyed by field index. A match whose neighbour index falls
// outside the list is an ErrTypeLabelNeighbor error.
func Labels(fields []*field.Field, matcher LabelMatcher) (map[int]string, error) {
	labels := make(map[int]string)
	for i := range fields {
		match := matcher.MatchLabel(Probe(fields, i))
		if match == nil {
			continue
		}
		src := i + match.Offset
		if src < 0 || src >= len(fields) {
			return nil, &ScreenError{
				Type:    ErrTypeLabelNeighbor,
				Message: fmt.Sprintf("label match for field %d points at field %d", i, src),
				Row:     fields[i].Row,
				Col:     fields[i].Col,
			}
		}
		if text := LabelText(fields[src].Data); text != "" {
			labels[i] = text
		}
	}
	return labels, nil
}

// AssignLabels computes labels with Labels and, only once the whole pass
// succeeded, stores them on the fields. It returns the number of labels set.
func AssignLabels(fields []*field.Field, matcher LabelMatcher) (int, error) {
	labels, err := Labels(fields, matcher)
	if err != nil {
		return 0, err
	}
	for i, label := range labels {
		fields[i].Label = label
	}
	return len(labels), nil
}
