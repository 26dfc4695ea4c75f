package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/timvw/screen-patrol/internal/field"
	"github.com/timvw/screen-patrol/internal/model"
	"github.com/timvw/screen-patrol/internal/session"
)

// view mode
type viewMode int

const (
	modeScreen viewMode = iota
	modeEdit
)

// cell kinds used to style the rendered screen
type cellKind int

const (
	cellText cellKind = iota
	cellEditable
	cellHidden
	cellCurrent
)

// messages
type screenMsg struct {
	screen *model.ScreenMap
	err    error
	note   string
}

// Browser runs the interactive screen browser.
type Browser struct {
	Navigator *Navigator
	Theme     Theme
}

type browserModel struct {
	nav    *Navigator
	ctx    context.Context
	styles styles

	screen *model.ScreenMap
	cursor int // index into screen.Fields
	mode   viewMode

	// edit state
	input   textinput.Model
	editing *field.Field

	width  int
	height int

	busy      bool
	message   string
	refreshes int
}

// Run starts the browser and blocks until the user quits.
func (b *Browser) Run(ctx context.Context) error {
	m := newBrowserModel(ctx, b.Navigator, b.Theme)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newBrowserModel(ctx context.Context, nav *Navigator, theme Theme) *browserModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Width = 80
	return &browserModel{
		nav:    nav,
		ctx:    ctx,
		styles: newStyles(theme),
		input:  ti,
	}
}

func (m *browserModel) Init() tea.Cmd {
	m.busy = true
	return m.doRefresh()
}

func (m *browserModel) doRefresh() tea.Cmd {
	nav, ctx := m.nav, m.ctx
	return func() tea.Msg {
		s, err := nav.Refresh(ctx)
		return screenMsg{screen: s, err: err}
	}
}

func (m *browserModel) doSend(command string) tea.Cmd {
	nav, ctx := m.nav, m.ctx
	return func() tea.Msg {
		s, err := nav.Send(ctx, command)
		return screenMsg{screen: s, err: err, note: "Sent " + command}
	}
}

func (m *browserModel) doFill(f *field.Field, value string) tea.Cmd {
	nav, ctx := m.nav, m.ctx
	row, col, name := f.Row, f.Col, fieldName(f)
	return func() tea.Msg {
		s, err := nav.FillAt(ctx, row, col, value)
		return screenMsg{screen: s, err: err, note: "Filled " + name}
	}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeEdit {
			return m.handleEditKey(msg)
		}
		return m.handleScreenKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screenMsg:
		m.busy = false
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.screen = msg.screen
		m.refreshes++
		m.message = msg.note
		if m.cursor >= len(m.screen.Fields) {
			m.cursor = 0
		}
		return m, nil
	}
	return m, nil
}

func (m *browserModel) handleScreenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.screen != nil && m.cursor < len(m.screen.Fields)-1 {
			m.cursor++
		}

	case "tab":
		m.nextEditable()

	case "enter", "e":
		f := m.selected()
		if f == nil {
			return m, nil
		}
		if !f.Editable {
			m.message = fmt.Sprintf("%s is protected", fieldName(f))
			return m, nil
		}
		m.editing = f
		m.mode = modeEdit
		m.input.SetValue(f.Data)
		m.input.CharLimit = f.Length
		m.input.EchoMode = textinput.EchoNormal
		if !f.Visible {
			m.input.EchoMode = textinput.EchoPassword
		}
		m.input.CursorEnd()
		return m, m.input.Focus()

	case "s":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.doSend(session.CmdEnter)

	case "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.message = ""
		return m, m.doRefresh()
	}
	return m, nil
}

func (m *browserModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "escape":
		m.stopEditing()
		return m, nil

	case "enter":
		f := m.editing
		value := m.input.Value()
		m.stopEditing()
		m.busy = true
		return m, m.doFill(f, value)
	}

	// Forward all other keys to the text input component
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *browserModel) stopEditing() {
	m.mode = modeScreen
	m.editing = nil
	m.input.Blur()
}

func (m *browserModel) selected() *field.Field {
	if m.screen == nil || m.cursor < 0 || m.cursor >= len(m.screen.Fields) {
		return nil
	}
	return m.screen.Fields[m.cursor]
}

// nextEditable moves the cursor to the next editable field, wrapping
// around.
func (m *browserModel) nextEditable() {
	if m.screen == nil {
		return
	}
	n := len(m.screen.Fields)
	for step := 1; step <= n; step++ {
		i := (m.cursor + step) % n
		if m.screen.Fields[i].Editable {
			m.cursor = i
			return
		}
	}
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Screen Patrol"))
	b.WriteString("  ")
	if m.mode == modeEdit {
		b.WriteString(m.styles.dim.Render("Enter=fill  Esc=cancel"))
	} else {
		b.WriteString(m.styles.dim.Render("↑↓=select  Tab=next input  Enter=edit  s=send Enter  r=refresh  q=quit"))
	}
	if m.busy {
		b.WriteString("  ")
		b.WriteString(m.styles.busy.Render("working..."))
	}
	b.WriteString("\n")

	if m.screen == nil {
		if m.message != "" {
			b.WriteString("  " + m.styles.err.Render(m.message) + "\n")
		} else {
			b.WriteString("  Capturing screen...\n")
		}
		return b.String()
	}

	rule := m.styles.header.Render(strings.Repeat("─", m.screen.Cols+2))
	b.WriteString(rule + "\n")
	for _, line := range m.renderScreen() {
		b.WriteString(" " + line + "\n")
	}
	b.WriteString(rule + "\n")

	if m.mode == modeEdit && m.editing != nil {
		b.WriteString(fmt.Sprintf("  %s (max %d)\n", fieldName(m.editing), m.editing.Length))
		b.WriteString("  " + m.input.View() + "\n")
	} else {
		for _, line := range m.renderFieldList() {
			b.WriteString(line + "\n")
		}
	}

	status := fmt.Sprintf("%s  %dx%d  fields: %d  refreshes: %d",
		m.screen.Name, m.screen.Rows, m.screen.Cols, len(m.screen.Fields), m.refreshes)
	if m.screen.Cached {
		status += "  (cached)"
	}
	b.WriteString(m.styles.dim.Render(status))
	if m.message != "" {
		b.WriteString("  ")
		if strings.HasPrefix(m.message, "Error") {
			b.WriteString(m.styles.err.Render(m.message))
		} else {
			b.WriteString(m.styles.text.Render(m.message))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// renderScreen returns the rendered rows with fields highlighted.
func (m *browserModel) renderScreen() []string {
	owners := cellOwners(m.screen)
	lines := make([]string, m.screen.Rows)
	for r := 0; r < m.screen.Rows; r++ {
		var row []rune
		if r < len(m.screen.Screen) {
			row = []rune(m.screen.Screen[r])
		}
		var b strings.Builder
		var run []rune
		kind := cellText
		flush := func() {
			if len(run) > 0 {
				b.WriteString(m.styleFor(kind).Render(string(run)))
				run = run[:0]
			}
		}
		for c := 0; c < m.screen.Cols; c++ {
			ch := ' '
			if c < len(row) {
				ch = row[c]
			}
			k := m.kindOf(owners[r][c])
			if k != kind {
				flush()
				kind = k
			}
			run = append(run, ch)
		}
		flush()
		lines[r] = b.String()
	}
	return lines
}

func (m *browserModel) kindOf(owner int) cellKind {
	if owner < 0 {
		return cellText
	}
	if owner == m.cursor {
		return cellCurrent
	}
	f := m.screen.Fields[owner]
	switch {
	case f.Editable && !f.Visible:
		return cellHidden
	case f.Editable:
		return cellEditable
	}
	return cellText
}

func (m *browserModel) styleFor(k cellKind) lipgloss.Style {
	switch k {
	case cellEditable:
		return m.styles.editable
	case cellHidden:
		return m.styles.hidden
	case cellCurrent:
		return m.styles.current
	}
	return m.styles.protected
}

// renderFieldList lists the fields around the cursor, one per line.
func (m *browserModel) renderFieldList() []string {
	fields := m.screen.Fields
	if len(fields) == 0 {
		return []string{"  No fields on this screen."}
	}
	room := len(fields)
	if m.height > 0 {
		room = m.height - m.screen.Rows - 5
		if room < 3 {
			room = 3
		}
	}
	start := 0
	if m.cursor >= room {
		start = m.cursor - room + 1
	}
	end := start + room
	if end > len(fields) {
		end = len(fields)
	}

	var lines []string
	for i := start; i < end; i++ {
		f := fields[i]
		pos := fmt.Sprintf("(%2d,%2d) %3d", f.Row, f.Col, f.Length)
		label := padRight(f.Label, 20)
		if f.Label != "" {
			label = m.styles.label.Render(label)
		}
		data := f.Data
		if f.Editable && !f.Visible && data != "" {
			data = strings.Repeat("*", len([]rune(data)))
		}
		line := fmt.Sprintf("%s  %s  %-9s  %s", pos, label, fieldKind(f), truncate(data, 40))
		if i == m.cursor {
			lines = append(lines, m.styles.selected.Render("> "+line))
		} else {
			lines = append(lines, "  "+m.styles.text.Render(line))
		}
	}
	return lines
}

// cellOwners maps every screen cell to the index of the field covering it,
// or -1. Fields wrap from the last column to the next row.
func cellOwners(s *model.ScreenMap) [][]int {
	owners := make([][]int, s.Rows)
	for r := range owners {
		owners[r] = make([]int, s.Cols)
		for c := range owners[r] {
			owners[r][c] = -1
		}
	}
	total := s.Rows * s.Cols
	for i, f := range s.Fields {
		pos := f.Row*s.Cols + f.Col
		for k := 0; k < f.Length && pos+k < total; k++ {
			p := pos + k
			owners[p/s.Cols][p%s.Cols] = i
		}
	}
	return owners
}

func fieldKind(f *field.Field) string {
	switch {
	case f.Editable && !f.Visible:
		return "hidden"
	case f.Editable:
		return "editable"
	}
	return "protected"
}

func fieldName(f *field.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return fmt.Sprintf("field (%d, %d)", f.Row, f.Col)
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// padRight pads a string with spaces to the given rune width.
func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
