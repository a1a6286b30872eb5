package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

const (
	minDetailTermWidth = 100
	detailRatio        = 0.4
	leafFetchTimeout   = 5 * time.Second
)

// leafFetchedMsg carries the result of an asynchronous leaf fetch. The pane
// discards it unless the cursor is still on id.
type leafFetchedMsg struct {
	id   model.ID
	node *model.Node
	err  error
}

// fetchLeafCmd loads a leaf record off the event loop.
func fetchLeafCmd(st store.Store, id model.ID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), leafFetchTimeout)
		defer cancel()
		n, err := st.FetchLeaf(ctx, id)
		return leafFetchedMsg{id: id, node: n, err: err}
	}
}

// detailVisible reports whether the split layout is active.
func (m Model) detailVisible() bool {
	return m.showDetail && m.width >= minDetailTermWidth
}

// boardWidth is the width left for the board next to the detail pane.
func (m Model) boardWidth() int {
	if !m.detailVisible() {
		return m.width
	}
	return m.width - m.detailWidth()
}

func (m Model) detailWidth() int {
	return int(float64(m.width) * detailRatio)
}

// markdownRenderer returns a glamour renderer wrapping at width, reusing the
// previous one when the width is unchanged.
func (m *Model) markdownRenderer(width int) *glamour.TermRenderer {
	if m.mdRenderer != nil && m.mdWidth == width {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer, m.mdWidth = r, width
	return r
}

// syncDetail points the pane at the focused item. Leaves start a fetch;
// parents render from the store directly.
func (m *Model) syncDetail() tea.Cmd {
	if !m.detailVisible() {
		return nil
	}
	it, ok := m.focused()
	if !ok {
		m.detailID = ""
		m.setDetailContent("_No card focused_")
		return nil
	}
	if it.ID == m.detailID {
		return nil
	}
	m.detailID = it.ID
	m.detail.GotoTop()
	if it.IsParent() {
		m.setDetailContent(m.parentMarkdown(it))
		return nil
	}
	m.detailLoading = true
	m.setDetailContent(fmt.Sprintf("# %s\n\n_loading…_", m.flatLabel(it)))
	return fetchLeafCmd(m.store, it.ID)
}

func (m *Model) applyLeafFetched(msg leafFetchedMsg) {
	if msg.id != m.detailID {
		return
	}
	m.detailLoading = false
	switch {
	case msg.err != nil:
		m.setDetailContent(fmt.Sprintf("# %s\n\n**fetch failed:** %v", msg.id, msg.err))
	case msg.node == nil:
		m.setDetailContent(fmt.Sprintf("# %s\n\n_not found_", msg.id))
	default:
		m.setDetailContent(m.leafMarkdown(msg.node))
	}
}

func (m *Model) setDetailContent(md string) {
	width := max(10, m.detail.Width-2)
	r := m.markdownRenderer(width)
	if r == nil {
		m.detail.SetContent(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		m.detail.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	m.detail.SetContent(out)
}

func (m Model) leafMarkdown(n *model.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", nameOr(n))
	sb.WriteString("| ID | Kind | Selected |\n|---|---|---|\n")
	fmt.Fprintf(&sb, "| **%s** | %s | %t |\n\n", n.ID, n.Kind, m.eng.IsSelected(n.ID))
	if len(n.ParentIDs) > 0 {
		names := make([]string, 0, len(n.ParentIDs))
		for _, pid := range n.ParentIDs {
			if p, ok := m.store.Node(pid); ok {
				names = append(names, nameOr(p))
			} else {
				names = append(names, string(pid))
			}
		}
		fmt.Fprintf(&sb, "**Parents:** %s\n\n", strings.Join(names, ", "))
	}
	if n.Description != "" {
		sb.WriteString("### Description\n")
		sb.WriteString(n.Description + "\n")
	}
	return sb.String()
}

func (m Model) parentMarkdown(it tree.FlatItem) string {
	n, ok := m.store.Node(it.ID)
	if !ok {
		return fmt.Sprintf("# %s\n\n_not found_", it.ID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s %s\n\n", CheckboxGlyph(m.eng.CheckState(it.ID)), nameOr(n))
	sb.WriteString("| ID | Level | Open | Leaves |\n|---|---|---|---|\n")
	leaves := tree.LeafDescendants(m.store, it.ID)
	fmt.Fprintf(&sb, "| **%s** | %d | %t | %d |\n\n", n.ID, it.Level, m.ctrl.IsOpen(it.ID), len(leaves))
	if n.Description != "" {
		sb.WriteString(n.Description + "\n\n")
	}
	if len(n.ChildrenIDs) > 0 {
		sb.WriteString("### Children\n")
		for _, cid := range n.ChildrenIDs {
			if c, ok := m.store.Node(cid); ok {
				fmt.Fprintf(&sb, "- %s `%s`\n", nameOr(c), cid)
			} else {
				fmt.Fprintf(&sb, "- `%s` (missing)\n", cid)
			}
		}
	}
	return sb.String()
}

func nameOr(n *model.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return string(n.ID)
}
