package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/cardtree/pkg/testutil"
)

func TestCurrentContext(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	if got := m.CurrentContext(); got != ContextBoard {
		t.Errorf("expected %q, got %q", ContextBoard, got)
	}

	wide := newTestModel(t, testutil.Scenario(), 140, 30)
	if got := wide.CurrentContext(); got != ContextSplit {
		t.Errorf("expected %q with the detail pane, got %q", ContextSplit, got)
	}

	m = press(t, m, "/")
	if got := m.CurrentContext(); got != ContextJump {
		t.Errorf("expected %q, got %q", ContextJump, got)
	}
	if !m.CurrentContext().IsOverlay() {
		t.Error("expected the jump prompt to be an overlay")
	}
}

func TestContextHelpSections(t *testing.T) {
	tests := []struct {
		ctx    Context
		titles []string
	}{
		{ContextBoard, []string{"Board", "Mouse"}},
		{ContextSplit, []string{"Board", "Mouse", "Detail"}},
		{ContextJump, []string{"Jump", "Board", "Mouse"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.ctx), func(t *testing.T) {
			got := contextHelpSections(tt.ctx)
			if len(got) != len(tt.titles) {
				t.Fatalf("expected %d sections, got %d", len(tt.titles), len(got))
			}
			for i, s := range got {
				if s.title != tt.titles[i] {
					t.Errorf("section %d: expected %q, got %q", i, tt.titles[i], s.title)
				}
				if len(s.rows) == 0 {
					t.Errorf("section %q has no rows", s.title)
				}
			}
		})
	}
}

func TestHelpFromJumpPrompt(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), 80, 30)
	m = press(t, m, "/")
	m = press(t, m, "?")
	if !m.showHelp || m.helpCtx != ContextJump {
		t.Fatalf("expected jump help, got show=%v ctx=%q", m.showHelp, m.helpCtx)
	}
	if !strings.Contains(m.View(), "Jump prompt") {
		t.Error("expected the jump context named in the overlay")
	}
	m = press(t, m, "esc")
	if m.showHelp || !m.jumping {
		t.Error("expected help closed and the prompt still open")
	}
}

func TestContextDescriptionFallback(t *testing.T) {
	if got := Context("other").Description(); got != "other" {
		t.Errorf("expected raw name, got %q", got)
	}
}
