package ui

// Context represents the current UI context for context-sensitive help
type Context string

const (
	// Overlays (highest priority)
	ContextHelp Context = "help"
	ContextJump Context = "jump"

	// Views
	ContextSplit Context = "split"
	ContextBoard Context = "board"
)

// CurrentContext returns the current UI context identifier.
// Priority order: overlays → split → board
func (m Model) CurrentContext() Context {
	if m.showHelp {
		return ContextHelp
	}
	if m.jumping {
		return ContextJump
	}
	if m.detailVisible() {
		return ContextSplit
	}
	return ContextBoard
}

// Description returns a human-readable description of the context.
func (c Context) Description() string {
	descriptions := map[Context]string{
		ContextHelp:  "Help overlay",
		ContextJump:  "Jump prompt",
		ContextSplit: "Board with detail pane",
		ContextBoard: "Card board",
	}
	if desc, ok := descriptions[c]; ok {
		return desc
	}
	return string(c)
}

// IsOverlay returns true if the context is an overlay (modal/popup)
func (c Context) IsOverlay() bool {
	return c == ContextHelp || c == ContextJump
}
