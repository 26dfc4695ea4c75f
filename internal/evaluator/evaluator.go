// Package evaluator asks an LLM to name editable fields that the label
// heuristic left without a caption.
//
// Go code builds the prompt and parses the response. The pattern pass in
// internal/screen always runs first and its labels are never overwritten;
// the LLM only fills the gaps.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timvw/screen-patrol/internal/model"
)

// Evaluator sends a screen to an LLM and returns suggested labels.
type Evaluator interface {
	// Evaluate sends the screen content to an LLM and returns its labels.
	Evaluate(ctx context.Context, content string) (*model.LLMLabels, error)

	// Provider returns the provider name (e.g., "anthropic", "openai").
	Provider() string

	// Model returns the model name used for evaluation.
	Model() string
}

// Content renders the text sent to the LLM for m: the field header followed
// by the rendered rows. It is empty when no editable field lacks a label.
func Content(m *model.ScreenMap) string {
	header := model.BuildScreenHeader(m)
	if header == "" {
		return ""
	}
	return header + strings.Join(m.Screen, "\n") + "\n"
}

// LabelScreen fills the unlabeled editable fields of m using ev. It returns
// the indices of the fields it labeled. Nothing is sent when every editable
// field already has a label.
func LabelScreen(ctx context.Context, ev Evaluator, m *model.ScreenMap) ([]int, error) {
	content := Content(m)
	if content == "" {
		return nil, nil
	}
	labels, err := ev.Evaluate(ctx, content)
	if err != nil {
		return nil, err
	}
	m.Usage.Add(labels.Usage)
	return Apply(m, labels), nil
}

// Apply assigns LLM labels to the editable fields of m that have none,
// matching on the field start cell. Labels for unknown cells, protected
// fields or already labeled fields are ignored. It returns the indices of
// the fields that were labeled.
func Apply(m *model.ScreenMap, labels *model.LLMLabels) []int {
	byCell := make(map[[2]int]int, len(m.Fields))
	for i, f := range m.Fields {
		byCell[[2]int{f.Row, f.Col}] = i
	}
	var applied []int
	for _, l := range labels.Labels {
		text := strings.TrimSpace(l.Label)
		if text == "" {
			continue
		}
		i, ok := byCell[[2]int{l.Row, l.Col}]
		if !ok {
			continue
		}
		f := m.Fields[i]
		if !f.Editable || f.Label != "" {
			continue
		}
		f.Label = text
		if m.LabelSources == nil {
			m.LabelSources = make(map[int]string)
		}
		m.LabelSources[i] = SourceLLM
		applied = append(applied, i)
	}
	return applied
}

// Label sources recorded in model.ScreenMap.LabelSources.
const (
	SourcePattern = "pattern"
	SourceLLM     = "llm"
)

// decodeLabels parses the model output, tolerating markdown fences.
func decodeLabels(raw string) (*model.LLMLabels, error) {
	text := stripMarkdownFences(raw)
	var labels model.LLMLabels
	if err := json.Unmarshal([]byte(text), &labels); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return &labels, nil
}

// stripMarkdownFences removes a surrounding ```json ... ``` block that some
// models wrap around JSON output.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
