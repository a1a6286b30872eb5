package ui

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/cardtree/pkg/config"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/selection"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/testutil"
)

func newTestModel(t *testing.T, nodes []model.Node, width, height int) Model {
	t.Helper()
	m, err := NewModel(Options{
		Config: config.DefaultConfig(),
		Store:  store.MustMemoryStore(nodes, store.WithFetchLatency(0)),
		Title:  "test",
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	t.Cleanup(m.Close)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return updated.(Model)
}

var specialKeys = map[string]tea.KeyType{
	"enter":      tea.KeyEnter,
	"esc":        tea.KeyEsc,
	" ":          tea.KeySpace,
	"tab":        tea.KeyTab,
	"ctrl+a":     tea.KeyCtrlA,
	"down":       tea.KeyDown,
	"up":         tea.KeyUp,
	"shift+down": tea.KeyShiftDown,
	"shift+up":   tea.KeyShiftUp,
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		if kt, ok := specialKeys[k]; ok {
			msg = tea.KeyMsg{Type: kt}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func click(t *testing.T, m Model, x, y int, ctrl, shift bool) Model {
	t.Helper()
	updated, _ := m.Update(tea.MouseMsg{
		X:      x,
		Y:      y,
		Ctrl:   ctrl,
		Shift:  shift,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionPress,
	})
	return updated.(Model)
}

func TestNewModelRequiresStore(t *testing.T) {
	if _, err := NewModel(Options{Config: config.DefaultConfig()}); err == nil {
		t.Error("expected error without a store")
	}
	cfg := config.DefaultConfig()
	cfg.Window.Bound = "sideways"
	if _, err := NewModel(Options{Config: cfg, Store: store.MustMemoryStore(testutil.Scenario())}); err == nil {
		t.Error("expected error for an invalid bound")
	}
}

func TestEnterSelectsLeafAndTogglesParent(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "j")
	if m.Cursor() != 1 {
		t.Fatalf("expected cursor on A (1), got %d", m.Cursor())
	}
	m = press(t, m, "enter")
	if !m.Selection().IsSelected("A") {
		t.Error("expected A selected after enter")
	}

	m = press(t, m, "j", "enter")
	if m.Cursor() != 2 {
		t.Fatalf("expected cursor on P2 (2), got %d", m.Cursor())
	}
	if m.Controller().IsOpen("P2") {
		t.Error("expected P2 closed after enter")
	}
	if got := m.Controller().Len(); got != 3 {
		t.Errorf("expected 3 projected items, got %d", got)
	}
}

func TestSpaceOnParentTogglesCheckbox(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "j", "j", " ")
	eng := m.Selection()
	if !eng.IsSelected("B") || !eng.IsSelected("C") {
		t.Errorf("expected B and C selected, got %v", eng.Selected())
	}
	if eng.CheckState("P2") != selection.Checked {
		t.Errorf("expected P2 checked, got %v", eng.CheckState("P2"))
	}
	if eng.CheckState("P1") != selection.Indeterminate {
		t.Errorf("expected P1 indeterminate, got %v", eng.CheckState("P1"))
	}

	m = press(t, m, " ")
	if m.Selection().Len() != 0 {
		t.Errorf("expected second toggle to clear, got %v", m.Selection().Selected())
	}
}

func TestCtrlToggleThenRange(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	// x on A, then move to C and extend
	m = press(t, m, "j", "x", "j", "j", "l")
	if m.Cursor() != 4 {
		t.Fatalf("expected cursor on C (4), got %d", m.Cursor())
	}
	m = press(t, m, "V")
	testutil.AssertIDs(t, m.Selection().Selected(), "A", "B", "C")
}

func TestShiftArrowWithoutAnchorSelectsLeaf(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "shift+down")
	testutil.AssertIDs(t, m.Selection().Selected(), "A")
	if a, ok := m.Selection().Anchor(); !ok || a != "A" {
		t.Errorf("expected anchor A, got %q", a)
	}
	m = press(t, m, "shift+down", "shift+down")
	testutil.AssertIDs(t, m.Selection().Selected(), "A", "B")
}

func TestSelectAllAndClear(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "ctrl+a")
	if got := m.Selection().Len(); got != 3 {
		t.Errorf("expected 3 selected, got %d", got)
	}
	m = press(t, m, "esc")
	if got := m.Selection().Len(); got != 0 {
		t.Errorf("expected selection cleared, got %d", got)
	}
}

func TestExpandCollapseAll(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "C")
	if got := m.Controller().Len(); got != 1 {
		t.Fatalf("expected only the root after collapse, got %d", got)
	}
	m = press(t, m, "E")
	if got := m.Controller().Len(); got != 5 {
		t.Errorf("expected 5 items after expand, got %d", got)
	}
	if m.Controller().VisibleCount() != 5 {
		t.Errorf("expected all items visible again, got %d", m.Controller().VisibleCount())
	}
}

func TestMouseSelection(t *testing.T) {
	// width 80: no detail pane, content width 79
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	// A: row at line 1, level 1 indent 2
	m = click(t, m, 3, 2, false, false)
	testutil.AssertIDs(t, m.Selection().Selected(), "A")

	// C: row at line 5, level 2 indent 4, card width 18
	m = click(t, m, 4+18+1, 6, true, false)
	testutil.AssertIDs(t, m.Selection().Selected(), "A", "C")

	// shift back to A selects the range
	m = click(t, m, 3, 2, false, true)
	testutil.AssertIDs(t, m.Selection().Selected(), "A", "B", "C")
}

func TestMouseParentCheckboxAndToggle(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	// P2 at line 4; checkbox columns [4,7)
	m = click(t, m, 5, 5, false, false)
	testutil.AssertIDs(t, m.Selection().Selected(), "B", "C")
	if !m.Controller().IsOpen("P2") {
		t.Error("expected checkbox click to leave P2 open")
	}

	m = click(t, m, 12, 5, false, false)
	if m.Controller().IsOpen("P2") {
		t.Error("expected click on the title to close P2")
	}
}

func TestMouseMissesIgnored(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	for _, pos := range [][2]int{{3, 0}, {3, 20}, {79, 2}, {-1, 2}} {
		m = click(t, m, pos[0], pos[1], false, false)
	}
	if m.Selection().Len() != 0 {
		t.Errorf("expected no selection from misses, got %v", m.Selection().Selected())
	}
}

func TestMouseWheelScrolls(t *testing.T) {
	m := newTestModel(t, singleParentTree(200), 80, 20)

	updated, _ := m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	m = updated.(Model)
	if m.surf.scrollTop != wheelLines {
		t.Errorf("expected scrollTop %d, got %d", wheelLines, m.surf.scrollTop)
	}
	if m.Controller().FirstVisible() == 0 {
		t.Error("expected first visible to move past the root")
	}
}

func TestPageDownMovesCursorIntoView(t *testing.T) {
	m := newTestModel(t, singleParentTree(200), 80, 20)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	m = updated.(Model)
	top, h, _ := m.surf.layout.bounds(m.Cursor())
	if top+h <= m.surf.scrollTop || top >= m.surf.scrollTop+m.surf.height {
		t.Errorf("expected cursor %d in view at scrollTop %d", m.Cursor(), m.surf.scrollTop)
	}

	m = press(t, m, "G")
	if m.Cursor() != m.Controller().Len()-1 {
		t.Errorf("expected cursor on the last item, got %d", m.Cursor())
	}
	if m.Controller().Window().End != m.Controller().Len() {
		t.Errorf("expected window to reach the end, got %+v", m.Controller().Window())
	}
	m = press(t, m, "g")
	if m.Cursor() != 0 || m.surf.scrollTop != 0 {
		t.Errorf("expected top, got cursor %d scrollTop %d", m.Cursor(), m.surf.scrollTop)
	}
}

func TestJumpOpensAncestors(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "C", "/")
	if !m.jumping {
		t.Fatal("expected jump prompt")
	}
	m = press(t, m, "B", "enter")
	if m.jumping {
		t.Error("expected prompt closed")
	}
	if !m.Controller().IsOpen("P1") || !m.Controller().IsOpen("P2") {
		t.Error("expected ancestors opened")
	}
	if it, ok := m.focused(); !ok || it.ID != "B" {
		t.Errorf("expected cursor on B, got %+v", it)
	}

	m = press(t, m, "/", "nope", "enter")
	if !strings.Contains(m.StatusMessage(), "nope") {
		t.Errorf("expected status about missing id, got %q", m.StatusMessage())
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)

	m = press(t, m, "?")
	if !m.showHelp {
		t.Fatal("expected help shown")
	}
	if !strings.Contains(m.View(), "expand all") {
		t.Error("expected help text in view")
	}
	m = press(t, m, "j")
	if m.showHelp {
		t.Error("expected any key to close help")
	}
	if m.Cursor() != 0 {
		t.Error("expected the closing key to be swallowed")
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestViewRendersHeaderBoardAndFooter(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	out := m.View()
	for _, want := range []string{"items 5", "window [0,5)", "Root", "Card A", "Card B", "[ ]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != 30 {
		t.Errorf("expected 30 lines, got %d", got)
	}
}

func TestViewEmptyBoard(t *testing.T) {
	m := newTestModel(t, testutil.Empty(), 80, 20)
	if !strings.Contains(m.View(), "no cards") {
		t.Error("expected empty board message")
	}
	m = press(t, m, "j", "enter", " ", "V")
	if m.Selection().Len() != 0 {
		t.Error("expected no selection on an empty board")
	}
}

func TestDump(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	m = press(t, m, "j", "enter")

	var buf bytes.Buffer
	if err := m.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# items=5 window=[0,5) visible=5 selected=1",
		"WV ▾ [-] Root (P1)",
		"● Card A (A)",
		"○ Card C (C)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected dump to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDetailFetchDiscardsStaleResults(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 140, 30)
	if !m.detailVisible() {
		t.Fatal("expected detail pane at width 140")
	}
	if m.detailID != "P1" {
		t.Fatalf("expected detail on P1, got %q", m.detailID)
	}

	m = press(t, m, "j")
	if m.detailID != "A" || !m.detailLoading {
		t.Fatalf("expected loading detail for A, got %q loading=%v", m.detailID, m.detailLoading)
	}

	updated, _ := m.Update(leafFetchedMsg{id: "B"})
	m = updated.(Model)
	if !m.detailLoading {
		t.Error("expected stale result to be ignored")
	}

	msg := fetchLeafCmd(m.store, "A")()
	updated, _ = m.Update(msg)
	m = updated.(Model)
	if m.detailLoading {
		t.Error("expected fetch result to be applied")
	}
}

func TestTabTogglesDetail(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 140, 30)
	full := m.boardWidth()
	m = press(t, m, "tab")
	if m.detailVisible() {
		t.Fatal("expected detail hidden")
	}
	if m.boardWidth() <= full {
		t.Errorf("expected the board to widen, got %d vs %d", m.boardWidth(), full)
	}
}

func TestReloadRetainsSelection(t *testing.T) {
	next := []model.Node{
		{ID: "P1", Name: "Root", Kind: model.KindParent, ChildrenIDs: []model.ID{"A", "P2"}},
		{ID: "A", Name: "Card A", Kind: model.KindLeaf, ParentIDs: []model.ID{"P1"}},
		{ID: "P2", Name: "Group", Kind: model.KindParent, ParentID: "P1", ChildrenIDs: []model.ID{"B", "D"}},
		{ID: "B", Name: "Card B", Kind: model.KindLeaf, ParentIDs: []model.ID{"P2"}},
		{ID: "D", Name: "Card D", Kind: model.KindLeaf, ParentIDs: []model.ID{"P2"}},
	}
	reloaded := store.MustMemoryStore(next)

	m, err := NewModel(Options{
		Config: config.DefaultConfig(),
		Store:  store.MustMemoryStore(testutil.Scenario()),
		Reload: func(context.Context) (store.Store, error) { return reloaded, nil },
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	defer m.Close()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = updated.(Model)
	m = press(t, m, "j", "j", " ", "l")

	updated, cmd := m.Update(FileChangedMsg{Paths: []string{"tree.json"}})
	m = updated.(Model)
	if cmd == nil || m.StatusMessage() != "reloading…" {
		t.Fatalf("expected reload to start, status %q", m.StatusMessage())
	}

	updated, _ = m.Update(reloadedMsg{store: reloaded})
	m = updated.(Model)
	testutil.AssertIDs(t, m.Selection().Selected(), "B")
	if got := m.StatusMessage(); got != "reloaded: +1 -1 ~1" {
		t.Errorf("expected diff summary, got %q", got)
	}
	if it, ok := m.focused(); !ok || it.ID != "B" {
		t.Errorf("expected cursor to stay on B, got %+v", it)
	}
	if m.Controller().Len() != 5 {
		t.Errorf("expected 5 items after reload, got %d", m.Controller().Len())
	}
}

func TestReloadErrorKeepsBoard(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	updated, _ := m.Update(reloadedMsg{err: context.DeadlineExceeded})
	m = updated.(Model)
	if !m.statusIsError || !strings.Contains(m.StatusMessage(), "reload failed") {
		t.Errorf("expected reload error status, got %q", m.StatusMessage())
	}
	if m.Controller().Len() != 5 {
		t.Errorf("expected the board unchanged, got %d items", m.Controller().Len())
	}
}

func TestSaveSnapshotKey(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	m = press(t, m, "S")
	status := m.StatusMessage()
	if m.statusIsError || !strings.HasPrefix(status, "saved cardtree-") {
		t.Fatalf("expected snapshot saved, got %q", status)
	}
	path := strings.TrimPrefix(status, "saved ")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s on disk: %v", path, err)
	}
}
