package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/cardtree/pkg/selection"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for the detail pane and overlays
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)
)

// ══════════════════════════════════════════════════════════════════════════════
// GLYPHS
// ══════════════════════════════════════════════════════════════════════════════

// CheckboxGlyph returns the three-cell checkbox for a parent row.
func CheckboxGlyph(s selection.CheckState) string {
	switch s {
	case selection.Checked:
		return "[x]"
	case selection.Indeterminate:
		return "[-]"
	default:
		return "[ ]"
	}
}

// RenderCheckbox returns a colored checkbox for a parent row.
func RenderCheckbox(t Theme, s selection.CheckState) string {
	return t.Renderer.NewStyle().Foreground(t.CheckColor(s)).Bold(s != selection.Unchecked).Render(CheckboxGlyph(s))
}

// ExpandGlyph returns the expand indicator for a parent row. Parents at the
// deepest level never expand and show a dot.
func ExpandGlyph(expandable, open bool) string {
	switch {
	case !expandable:
		return "·"
	case open:
		return "▾"
	default:
		return "▸"
	}
}

// SelectionMark returns the marker drawn before a leaf card title.
func SelectionMark(selected bool) string {
	if selected {
		return "●"
	}
	return "○"
}
