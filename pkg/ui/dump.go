package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Dump writes the projection as plain text: one line per flat item with its
// window membership, visibility and selection state. Used when stdout is not
// a terminal.
func (m Model) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	win := m.ctrl.Window()
	visible := m.ctrl.VisibleSet()

	fmt.Fprintf(bw, "# items=%d window=[%d,%d) visible=%d selected=%d\n",
		m.ctrl.Len(), win.Start, win.End, m.ctrl.VisibleCount(), m.eng.Len())
	for i, it := range m.ctrl.Flat() {
		mounted, vis := ".", "."
		if win.Contains(i) {
			mounted = "W"
		}
		if visible[it.ID] {
			vis = "V"
		}
		indent := strings.Repeat("  ", it.Level)
		var mark string
		if it.IsParent() {
			mark = ExpandGlyph(it.Expandable(), m.ctrl.IsOpen(it.ID)) + " " + CheckboxGlyph(m.eng.CheckState(it.ID))
		} else {
			mark = SelectionMark(m.eng.IsSelected(it.ID))
		}
		fmt.Fprintf(bw, "%5d %s%s %s%s %s (%s)\n", i, mounted, vis, indent, mark, m.flatLabel(it), it.ID)
	}
	return bw.Flush()
}
