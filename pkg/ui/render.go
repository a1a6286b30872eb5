package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

const (
	indentWidth  = 2
	minCardWidth = 6
	scrollbarW   = 1
)

// checkboxSpan returns the columns of a parent row's checkbox.
func checkboxSpan(level int) (from, to int) {
	from = level*indentWidth + 2
	return from, from + 3
}

// cardWidth returns the width of one card in a leaf row at level.
func cardWidth(contentWidth, level, cardsPerRow int) int {
	return max(minCardWidth, (contentWidth-level*indentWidth)/max(1, cardsPerRow))
}

// renderBoard draws the rows that intersect the viewport plus the
// scrollbar column. Rows outside the window are drawn as spacers.
func (m Model) renderBoard(width, height int) string {
	defer metrics.Timer(metrics.UIRender)()

	s := m.surf
	contentW := max(1, width-scrollbarW)
	top, bottom := s.scrollTop, s.scrollTop+height

	lines := make([]string, 0, height)
	if ri := s.layout.rowAt(top); ri >= 0 {
		for r := ri; r < len(s.layout.rows) && s.layout.rows[r].top < bottom; r++ {
			row := s.layout.rows[r]
			for j, l := range m.renderRow(row, contentW) {
				if y := row.top + j; y >= top && y < bottom {
					lines = append(lines, fitLine(l, contentW))
				}
			}
		}
	}
	if m.ctrl.Len() == 0 && height > 0 {
		lines = append(lines, fitLine(m.theme.MutedText.Render("  no cards"), contentW))
	}
	blank := strings.Repeat(" ", contentW)
	for len(lines) < height {
		lines = append(lines, blank)
	}

	bar := m.renderScrollbar(height)
	for i := range lines {
		lines[i] += bar[i]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(row boardRow, width int) []string {
	flat := m.ctrl.Flat()
	if !row.leaves {
		if !m.surf.isMounted(row.first) {
			return m.spacerLines(flat[row.first].Level, row.height, width)
		}
		lines := []string{m.renderParent(row.first, width)}
		for len(lines) < row.height {
			lines = append(lines, "")
		}
		return lines
	}

	level := flat[row.first].Level
	cw := cardWidth(width, level, m.ctrl.Config().CardsPerRow)
	indent := strings.Repeat(" ", level*indentWidth)
	out := make([]string, row.height)
	for i := range out {
		out[i] = indent
	}
	for i := row.first; i <= row.last; i++ {
		var block []string
		if m.surf.isMounted(i) {
			block = m.renderCard(i, cw, row.height)
		} else {
			block = m.blankCard(cw, row.height)
		}
		for j := range out {
			if j < len(block) {
				out[j] += fitLine(block[j], cw)
			} else {
				out[j] += strings.Repeat(" ", cw)
			}
		}
	}
	return out
}

func (m Model) spacerLines(level, height, width int) []string {
	indent := level * indentWidth
	line := strings.Repeat(" ", indent) + m.theme.Spacer.Render(strings.Repeat("┈", max(0, min(width-indent, 24))))
	out := make([]string, height)
	out[0] = line
	return out
}

func (m Model) blankCard(width, height int) []string {
	out := make([]string, height)
	for i := range out {
		out[i] = strings.Repeat(" ", width)
	}
	if height > 0 {
		out[height/2] = m.theme.Spacer.Render(strings.Repeat("┈", max(0, width-2))) + "  "
	}
	return out
}

// renderParent draws a parent row: indent, expand glyph, checkbox, title
// and child count.
func (m Model) renderParent(i, width int) string {
	t := m.theme
	it := m.ctrl.Flat()[i]
	name := string(it.ID)
	count := 0
	if n, ok := m.store.Node(it.ID); ok {
		if n.Name != "" {
			name = n.Name
		}
		count = len(n.ChildrenIDs)
	}

	glyph := ExpandGlyph(it.Expandable(), m.ctrl.IsOpen(it.ID))
	prefix := strings.Repeat(" ", it.Level*indentWidth) + glyph + " "
	box := RenderCheckbox(t, m.eng.CheckState(it.ID))
	suffix := fmt.Sprintf(" (%d)", count)
	avail := width - lipgloss.Width(prefix) - 4 - lipgloss.Width(suffix)
	title := t.Renderer.NewStyle().Foreground(t.LevelColor(it.Level)).Bold(it.Level == 0).Render(truncate(name, avail))

	line := prefix + box + " " + title + t.MutedText.Render(suffix)
	if i == m.cursor {
		return t.Selected.Width(width).Render(line)
	}
	return line
}

// renderCard draws a leaf card of the given size. Cards shorter than three
// lines have no border.
func (m Model) renderCard(i, width, height int) []string {
	t := m.theme
	it := m.ctrl.Flat()[i]
	name := string(it.ID)
	if n, ok := m.store.Node(it.ID); ok && n.Name != "" {
		name = n.Name
	}
	selected := m.eng.IsSelected(it.ID)
	mark := SelectionMark(selected)
	if selected {
		mark = t.Renderer.NewStyle().Foreground(t.Checked).Render(mark)
	}

	if height < 3 {
		line := mark + " " + truncate(name, width-2)
		if i == m.cursor {
			line = t.Selected.Render(line)
		}
		out := []string{line}
		for len(out) < height {
			out = append(out, "")
		}
		return out
	}

	inner := width - 2
	content := mark + " " + truncate(name, inner-2)
	if height-2 >= 2 {
		content += "\n" + t.MutedText.Render(truncate(string(it.ID), inner))
	}

	style := t.Card
	switch {
	case i == m.cursor:
		style = t.CardFocused
	case selected:
		style = t.CardSelected
	}
	return strings.Split(style.Width(inner).Height(height-2).MaxHeight(height).Render(content), "\n")
}

// scrollThumb returns the thumb position for a track of the given height.
// The thumb spans the visible items, not the scroll offset.
func scrollThumb(first, last, visible, total, track int) (top, size int) {
	if total <= 0 || visible == 0 || track <= 0 {
		return 0, 0
	}
	top = first * track / total
	size = max(1, ((last-first+1)*track+total-1)/total)
	top = min(top, track-1)
	size = min(size, track-top)
	return top, size
}

func (m Model) renderScrollbar(height int) []string {
	t := m.theme
	top, size := scrollThumb(m.ctrl.FirstVisible(), m.ctrl.LastVisible(), m.ctrl.VisibleCount(), m.ctrl.Len(), height)
	out := make([]string, height)
	for i := range out {
		if size > 0 && i >= top && i < top+size {
			out[i] = t.ScrollThumb.Render("┃")
		} else {
			out[i] = t.ScrollTrack.Render("│")
		}
	}
	return out
}

func (m Model) renderHeader() string {
	w := m.ctrl.Window()
	title := m.opts.Title
	if title == "" {
		title = "cardtree"
	}
	text := fmt.Sprintf("%s  items %d  window [%d,%d)  mounted %d  visible %d  selected %d",
		title, m.ctrl.Len(), w.Start, w.End, m.surf.mountedCount(), m.ctrl.VisibleCount(), m.eng.Len())
	return m.theme.Header.Width(m.width).MaxWidth(m.width).Render(truncate(text, max(0, m.width-2)))
}

func (m Model) renderFooter() string {
	bar := lipgloss.NewStyle().Background(ThemeBg("#343746")).Width(m.width).MaxWidth(m.width)

	if m.jumping {
		return bar.Render(m.jumpInput.View())
	}
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
		prefix := "✓ "
		if m.statusIsError {
			style = m.theme.ErrorText
			prefix = "✗ "
		}
		return bar.Render(style.Render(prefix + m.statusMsg))
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle := lipgloss.NewStyle().Foreground(ColorText)
	type hint struct{ key, label string }
	hints := []hint{
		{"hjkl", "move"},
		{"enter", "open/select"},
		{"space", "toggle"},
		{"V", "range"},
		{"E/C", "expand/collapse"},
		{"/", "jump"},
		{"?", "help"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyStyle.Render(h.key)+" "+labelStyle.Render(h.label))
	}
	return bar.Render(strings.Join(parts, "  "))
}

// flatLabel names an item for status messages.
func (m Model) flatLabel(it tree.FlatItem) string {
	if n, ok := m.store.Node(it.ID); ok && n.Name != "" {
		return n.Name
	}
	return string(it.ID)
}
