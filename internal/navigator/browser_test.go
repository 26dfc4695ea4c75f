package navigator

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// newTestBrowser returns a browser whose first refresh has completed.
func newTestBrowser(t *testing.T) *browserModel {
	t.Helper()
	nav, _ := newReplayNavigator(t, Options{})
	m := newBrowserModel(context.Background(), nav, DarkTheme())
	m.width, m.height = 100, 40
	run(t, m, m.Init())
	if m.screen == nil {
		t.Fatalf("no screen after Init, message %q", m.message)
	}
	return m
}

// run executes cmd synchronously and feeds its message back into the model.
func run(t *testing.T, m *browserModel, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m.Update(cmd())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowser_InitialScreen(t *testing.T) {
	m := newTestBrowser(t)
	if m.busy {
		t.Error("busy after refresh completed")
	}
	if m.refreshes != 1 {
		t.Errorf("refreshes: got %d, want 1", m.refreshes)
	}
	view := m.View()
	for _, want := range []string{"Screen Patrol", "User", "editable", "hidden", "fields: 6"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBrowser_TabSelectsNextEditable(t *testing.T) {
	m := newTestBrowser(t)
	m.Update(key("tab"))
	if m.cursor != 1 {
		t.Fatalf("cursor: got %d, want 1 (user field)", m.cursor)
	}
	m.Update(key("tab"))
	if m.cursor != 4 {
		t.Fatalf("cursor: got %d, want 4 (password field)", m.cursor)
	}
	m.Update(key("tab"))
	if m.cursor != 1 {
		t.Errorf("cursor: got %d, want 1 after wrapping", m.cursor)
	}
}

func TestBrowser_EditProtectedField(t *testing.T) {
	m := newTestBrowser(t)
	m.Update(key("enter"))
	if m.mode != modeScreen {
		t.Error("protected field must not open the editor")
	}
	if !strings.Contains(m.message, "protected") {
		t.Errorf("message: got %q", m.message)
	}
}

func TestBrowser_EditAndFill(t *testing.T) {
	m := newTestBrowser(t)
	m.Update(key("tab"))
	m.Update(key("enter"))
	if m.mode != modeEdit || m.editing == nil {
		t.Fatal("expected edit mode on the user field")
	}
	if m.input.CharLimit != 8 {
		t.Errorf("CharLimit: got %d, want 8", m.input.CharLimit)
	}

	m.Update(key("ibmuser"))
	_, cmd := m.Update(key("enter"))
	if m.mode != modeScreen || !m.busy {
		t.Fatalf("after enter: mode %v busy %v", m.mode, m.busy)
	}
	run(t, m, cmd)
	if m.busy {
		t.Error("still busy after the fill completed")
	}
	if m.message != "Filled User" {
		t.Errorf("message: got %q", m.message)
	}
	if m.refreshes != 2 {
		t.Errorf("refreshes: got %d, want 2", m.refreshes)
	}
}

func TestBrowser_EscCancelsEdit(t *testing.T) {
	m := newTestBrowser(t)
	m.Update(key("tab"))
	m.Update(key("enter"))
	_, cmd := m.Update(key("esc"))
	if cmd != nil || m.mode != modeScreen || m.editing != nil {
		t.Errorf("esc: mode %v editing %v cmd %v", m.mode, m.editing, cmd != nil)
	}
}

func TestBrowser_SendEnterShowsNextScreen(t *testing.T) {
	m := newTestBrowser(t)
	m.cursor = 5
	_, cmd := m.Update(key("s"))
	run(t, m, cmd)
	if m.screen.Rows != 2 {
		t.Errorf("rows: got %d, want the 2-row menu", m.screen.Rows)
	}
	if m.cursor != 0 {
		t.Errorf("cursor: got %d, want reset to 0", m.cursor)
	}
	if !strings.Contains(m.View(), "Option ===>") {
		t.Error("view should show the menu")
	}
}

func TestBrowser_BusyIgnoresRefresh(t *testing.T) {
	m := newTestBrowser(t)
	m.busy = true
	if _, cmd := m.Update(key("r")); cmd != nil {
		t.Error("refresh while busy should be ignored")
	}
}

func TestBrowser_Quit(t *testing.T) {
	m := newTestBrowser(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestCellOwners(t *testing.T) {
	m := newTestBrowser(t)
	owners := cellOwners(m.screen)
	if owners[0][0] != -1 {
		t.Errorf("marker cell: got %d, want -1", owners[0][0])
	}
	if owners[0][7] != 1 || owners[0][14] != 1 {
		t.Errorf("user field cells: got %d..%d, want 1", owners[0][7], owners[0][14])
	}
	if owners[1][7] != 4 {
		t.Errorf("password cell: got %d, want 4", owners[1][7])
	}
	if owners[2][5] != -1 {
		t.Errorf("dropped trailing field: got %d, want -1", owners[2][5])
	}
}

func TestTruncateAndPad(t *testing.T) {
	if got := truncate("Account Number", 10); got != "Account..." {
		t.Errorf("truncate: got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate: got %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight: got %q", got)
	}
}
