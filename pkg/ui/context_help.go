package ui

import "strings"

// helpRow is one key binding line of the help overlay.
type helpRow struct {
	keys, action string
}

type helpSection struct {
	title string
	rows  []helpRow
}

var (
	helpBoard = []helpRow{
		{"h j k l / arrows", "move between cards"},
		{"enter", "toggle parent / select card"},
		{"space, x", "toggle card or parent checkbox"},
		{"shift+arrows", "extend selection"},
		{"V", "select range to cursor"},
		{"ctrl+a / esc", "select all / clear"},
		{"E / C", "expand all / collapse all"},
		{"pgup pgdn g G", "scroll"},
		{"ctrl+u / ctrl+d", "half page"},
		{"/", "jump to id"},
		{"y", "copy selected ids"},
		{"S", "save board snapshot"},
		{"tab", "toggle detail pane"},
		{"q", "quit"},
	}
	helpDetail = []helpRow{
		{"J / K", "scroll detail"},
		{"tab, d", "hide detail pane"},
	}
	helpJump = []helpRow{
		{"enter", "open ancestors and focus the id"},
		{"esc", "cancel"},
	}
	helpMouse = []helpRow{
		{"click", "select card / toggle parent"},
		{"ctrl+click", "toggle card in selection"},
		{"shift+click", "select range"},
		{"wheel", "scroll"},
	}
)

// contextHelpSections returns the key tables shown for ctx. Jump help leads
// when the prompt is open.
func contextHelpSections(ctx Context) []helpSection {
	out := []helpSection{{"Board", helpBoard}, {"Mouse", helpMouse}}
	switch ctx {
	case ContextSplit:
		out = append(out, helpSection{"Detail", helpDetail})
	case ContextJump:
		out = append([]helpSection{{"Jump", helpJump}}, out...)
	}
	return out
}

// RenderContextHelp renders the help modal for ctx.
func RenderContextHelp(ctx Context, t Theme, width int) string {
	modalWidth := min(60, max(20, width-4))

	var b strings.Builder
	b.WriteString(t.PrimaryBold.Render("Quick Reference"))
	b.WriteString(t.MutedText.Render("  " + ctx.Description()))
	b.WriteString("\n")
	b.WriteString(t.MutedText.Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n")
	for _, s := range contextHelpSections(ctx) {
		b.WriteString("\n" + t.SecondaryText.Render(s.title) + "\n")
		for _, r := range s.rows {
			b.WriteString("  " + padRight(r.keys, 20) + r.action + "\n")
		}
	}
	b.WriteString("\n" + t.MutedText.Render("any key to close"))

	return PanelStyle.
		BorderForeground(t.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())
}
