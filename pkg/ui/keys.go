package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/cardtree/pkg/export"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/selection"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

const wheelLines = 3

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.statusMsg = ""
	prev := m.cursor

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.helpCtx = m.CurrentContext()
		m.showHelp = true
		return m, nil

	case "/":
		m.jumping = true
		m.jumpInput.SetValue("")
		return m, m.jumpInput.Focus()

	case "j", "down":
		m.setCursor(m.verticalNeighbor(1))
	case "k", "up":
		m.setCursor(m.verticalNeighbor(-1))
	case "l", "right":
		m.setCursor(m.cursor + 1)
	case "h", "left":
		m.setCursor(m.cursor - 1)

	case "shift+down":
		m.setCursor(m.verticalNeighbor(1))
		m.extendToCursor()
	case "shift+up":
		m.setCursor(m.verticalNeighbor(-1))
		m.extendToCursor()
	case "shift+right":
		m.setCursor(m.cursor + 1)
		m.extendToCursor()
	case "shift+left":
		m.setCursor(m.cursor - 1)
		m.extendToCursor()

	case "g", "home":
		m.surf.scrollTo(0)
		m.setCursor(0)
	case "G", "end":
		m.surf.scrollTo(m.surf.maxScroll())
		m.setCursor(m.ctrl.Len() - 1)
	case "pgdown", "ctrl+f":
		m.pageScroll(m.surf.height)
	case "pgup", "ctrl+b":
		m.pageScroll(-m.surf.height)
	case "ctrl+d":
		m.pageScroll(m.surf.height / 2)
	case "ctrl+u":
		m.pageScroll(-m.surf.height / 2)

	case "enter":
		m.activate(selection.Modifiers{})
	case " ", "x":
		if it, ok := m.focused(); ok && it.IsParent() {
			m.toggleParentSelection(it)
		} else {
			m.activate(selection.Modifiers{Ctrl: true})
		}
	case "V":
		m.extendToCursor()
	case "ctrl+a":
		m.eng.SelectAll(m.ctrl)
		m.setStatus(fmt.Sprintf("selected %d cards", m.eng.Len()), false)
	case "esc":
		m.eng.Clear()

	case "E":
		m.ctrl.ExpandAll()
		m.afterReproject()
	case "C":
		m.ctrl.CollapseAll()
		m.afterReproject()

	case "y":
		m.yankSelection()
	case "S":
		m.saveSnapshot()

	case "tab", "d":
		m.showDetail = !m.showDetail
		m.detailID = ""
	case "J":
		m.detail.ScrollDown(1)
	case "K":
		m.detail.ScrollUp(1)
	}

	if m.cursor != prev || m.detailID == "" {
		return m, m.syncDetail()
	}
	return m, nil
}

func (m Model) handleJumpKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.jumping = false
		m.jumpInput.Blur()
		return m, nil
	case "enter":
		m.jumping = false
		m.jumpInput.Blur()
		m.jumpTo(model.ID(strings.TrimSpace(m.jumpInput.Value())))
		return m, m.syncDetail()
	case "?":
		if m.jumpInput.Value() == "" {
			m.helpCtx = ContextJump
			m.showHelp = true
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelDown:
		m.surf.scrollBy(wheelLines)
		return m, nil
	case tea.MouseButtonWheelUp:
		m.surf.scrollBy(-wheelLines)
		return m, nil
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}

	// header occupies the first line
	i, onCheckbox, ok := m.hitTest(msg.X, msg.Y-1)
	if !ok {
		return m, nil
	}
	m.statusMsg = ""
	m.cursor = i
	it := m.ctrl.Flat()[i]
	m.cursorKey = mountKey{parent: it.ParentID, id: it.ID}

	mods := selection.Modifiers{Ctrl: msg.Ctrl || msg.Alt, Shift: msg.Shift}
	switch {
	case it.IsParent() && onCheckbox:
		m.toggleParentSelection(it)
	case it.IsParent() && mods.Shift:
		m.extendToCursor()
	default:
		m.activate(mods)
	}
	return m, m.syncDetail()
}

// hitTest maps a board-relative cell to a mounted flat index. Clicks on
// unmounted spacers miss.
func (m Model) hitTest(x, y int) (index int, onCheckbox, ok bool) {
	if y < 0 || y >= m.surf.height || x < 0 || x >= m.boardWidth()-scrollbarW {
		return 0, false, false
	}
	r := m.surf.layout.rowAt(m.surf.scrollTop + y)
	if r < 0 {
		return 0, false, false
	}
	row := m.surf.layout.rows[r]
	level := m.ctrl.Flat()[row.first].Level

	index = row.first
	if row.leaves {
		x -= level * indentWidth
		if x < 0 {
			return 0, false, false
		}
		cw := cardWidth(m.boardWidth()-scrollbarW, level, m.ctrl.Config().CardsPerRow)
		index = row.first + x/cw
		if index > row.last {
			return 0, false, false
		}
	} else {
		from, to := checkboxSpan(level)
		onCheckbox = x >= from && x < to
	}
	if !m.surf.isMounted(index) {
		return 0, false, false
	}
	return index, onCheckbox, true
}

// activate applies a click or enter on the focused item: parents open or
// close, leaves are selected under mods.
func (m *Model) activate(mods selection.Modifiers) {
	it, ok := m.focused()
	if !ok {
		return
	}
	if it.IsParent() {
		if !it.Expandable() {
			m.toggleParentSelection(it)
			return
		}
		if m.ctrl.OnToggleParent(it.ID) {
			m.afterReproject()
		}
		return
	}
	if err := m.eng.SelectCard(m.ctrl, it.ID, mods); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) toggleParentSelection(it tree.FlatItem) {
	if !m.eng.ToggleParentSelection(it.ID) {
		m.setStatus(fmt.Sprintf("%s has no cards", m.flatLabel(it)), true)
	}
}

// extendToCursor selects from the anchor to the focused item. Without an
// anchor a focused leaf becomes the anchor instead.
func (m *Model) extendToCursor() {
	it, ok := m.focused()
	if !ok {
		return
	}
	if _, has := m.eng.Anchor(); !has {
		if it.IsLeaf() {
			_ = m.eng.SelectCard(m.ctrl, it.ID, selection.Modifiers{})
		}
		return
	}
	if err := m.eng.ExtendTo(m.ctrl, it.ID); err != nil {
		m.setStatus(err.Error(), true)
	}
}

// verticalNeighbor returns the item in the same column of the next or
// previous row, clamped to that row's last card.
func (m Model) verticalNeighbor(dir int) int {
	l := m.surf.layout
	if len(l.rows) == 0 {
		return 0
	}
	r := l.rowOf[m.cursor] + dir
	if r < 0 || r >= len(l.rows) {
		return m.cursor
	}
	target := l.rows[r]
	if !target.leaves {
		return target.first
	}
	return min(target.first+l.column(m.cursor), target.last)
}

// pageScroll scrolls by delta lines and moves the cursor into the new view
// when it fell out of it.
func (m *Model) pageScroll(delta int) {
	m.surf.scrollBy(delta)
	top, height, ok := m.surf.layout.bounds(m.cursor)
	if !ok {
		return
	}
	if top+height <= m.surf.scrollTop || top >= m.surf.scrollTop+m.surf.height {
		if r := m.surf.layout.rowAt(m.surf.scrollTop); r >= 0 {
			m.setCursor(m.surf.layout.rows[r].first)
		}
	}
}

// jumpTo focuses the first projected occurrence of id, opening its
// ancestors when it is hidden under closed parents.
func (m *Model) jumpTo(id model.ID) {
	if id == "" {
		return
	}
	if i := tree.IndexOf(m.ctrl.Flat(), id); i >= 0 {
		m.setCursor(i)
		return
	}
	n, ok := m.store.Node(id)
	if !ok {
		m.setStatus(fmt.Sprintf("no card %q", id), true)
		return
	}
	var chain []model.ID
	for p := parentOf(n); p != "" && len(chain) <= tree.MaxLevel; {
		chain = append(chain, p)
		pn, ok := m.store.Node(p)
		if !ok {
			break
		}
		p = parentOf(pn)
	}
	for k := len(chain) - 1; k >= 0; k-- {
		if i := tree.IndexOf(m.ctrl.Flat(), chain[k]); i >= 0 && !m.ctrl.IsOpen(chain[k]) {
			m.ctrl.OnToggleParent(chain[k])
		}
	}
	m.afterReproject()
	if i := tree.IndexOf(m.ctrl.Flat(), id); i >= 0 {
		m.setCursor(i)
		return
	}
	m.setStatus(fmt.Sprintf("%s is deeper than the board shows", id), true)
}

func parentOf(n *model.Node) model.ID {
	if n.ParentID != "" {
		return n.ParentID
	}
	if len(n.ParentIDs) > 0 {
		return n.ParentIDs[0]
	}
	return ""
}

func (m *Model) yankSelection() {
	ids := m.eng.Selected()
	if len(ids) == 0 {
		m.setStatus("nothing selected", true)
		return
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	if err := clipboard.WriteAll(strings.Join(parts, "\n")); err != nil {
		m.setStatus(fmt.Sprintf("clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("copied %d ids", len(ids)), false)
}

func (m *Model) saveSnapshot() {
	path := fmt.Sprintf("cardtree-%s.svg", time.Now().Format("20060102-150405"))
	err := export.SaveSnapshot(export.SnapshotOptions{
		Path:        path,
		Title:       m.opts.Title,
		Items:       m.ctrl.Flat(),
		Lookup:      m.store,
		Window:      m.ctrl.Window(),
		Visible:     m.ctrl.VisibleSet(),
		Selection:   m.eng,
		CardsPerRow: m.ctrl.Config().CardsPerRow,
	})
	if err != nil {
		m.setStatus(fmt.Sprintf("snapshot failed: %v", err), true)
		return
	}
	m.setStatus("saved "+path, false)
}
