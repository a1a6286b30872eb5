package ui

import (
	"testing"

	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/testutil"
	"github.com/vanderheijden86/cardtree/pkg/visibility"
	"github.com/vanderheijden86/cardtree/pkg/window"
)

func newTestSurface(t *testing.T, nodes []model.Node, height int) (*window.Controller, *surface) {
	t.Helper()
	ctrl := window.New(store.MustMemoryStore(nodes), window.DefaultConfig())
	s := newSurface(ctrl, visibility.DefaultOptions(), 3, 1, height)
	t.Cleanup(s.close)
	s.settle()
	return ctrl, s
}

// singleParentTree returns a tree where every leaf has one parent, so each
// id is projected once.
func singleParentTree(leaves int) []model.Node {
	return testutil.New(testutil.GeneratorConfig{
		Seed:           1,
		ParentsPer:     5,
		Leaves:         leaves,
		MaxLeafParents: 1,
	}).Tree()
}

// assertWindowInvariants checks the window bounds and that every visible
// item is mounted.
func assertWindowInvariants(t *testing.T, ctrl *window.Controller, s *surface) {
	t.Helper()
	w := ctrl.Window()
	if w.Start < 0 || w.Start > w.End || w.End > ctrl.Len() {
		t.Fatalf("window out of bounds: %+v (len %d)", w, ctrl.Len())
	}
	if ctrl.VisibleCount() > 0 {
		if !w.Contains(ctrl.FirstVisible()) || !w.Contains(ctrl.LastVisible()) {
			t.Errorf("visible range [%d,%d] outside window %+v", ctrl.FirstVisible(), ctrl.LastVisible(), w)
		}
	}
	if s.mountedCount() != w.Len() {
		t.Errorf("expected %d mounted items, got %d", w.Len(), s.mountedCount())
	}
	for i := w.Start; i < w.End; i++ {
		if !s.isMounted(i) {
			t.Errorf("expected index %d mounted", i)
		}
	}
}

func TestSurfaceSettlesSmallTree(t *testing.T) {
	ctrl, s := newTestSurface(t, testutil.Scenario(), 30)

	if ctrl.VisibleCount() != 5 {
		t.Errorf("expected all 5 items visible, got %d", ctrl.VisibleCount())
	}
	if w := ctrl.Window(); w.Start != 0 || w.End != 5 {
		t.Errorf("expected window [0,5), got %+v", w)
	}
	assertWindowInvariants(t, ctrl, s)
}

func TestSurfaceVirtualizesLargeTree(t *testing.T) {
	ctrl, s := newTestSurface(t, singleParentTree(500), 18)

	if s.mountedCount() >= ctrl.Len() {
		t.Fatalf("expected a partial mount, got %d of %d", s.mountedCount(), ctrl.Len())
	}
	if ctrl.VisibleCount() == 0 {
		t.Fatal("expected visible items after settle")
	}
	if ctrl.FirstVisible() != 0 {
		t.Errorf("expected first visible 0, got %d", ctrl.FirstVisible())
	}
	assertWindowInvariants(t, ctrl, s)
}

func TestSurfaceJumpToEndUsesFallback(t *testing.T) {
	ctrl, s := newTestSurface(t, singleParentTree(500), 18)

	s.scrollTo(s.maxScroll())

	if ctrl.VisibleCount() == 0 {
		t.Fatal("expected visibility to re-anchor after jump")
	}
	if got := ctrl.Window().End; got != ctrl.Len() {
		t.Errorf("expected window to reach the end %d, got %d", ctrl.Len(), got)
	}
	if got := ctrl.LastVisible(); got != ctrl.Len()-1 {
		t.Errorf("expected last item visible, got last visible %d of %d", got, ctrl.Len())
	}
	if s.scrollTop != s.maxScroll() {
		t.Errorf("expected to stay at the end, scrollTop %d max %d", s.scrollTop, s.maxScroll())
	}
	assertWindowInvariants(t, ctrl, s)
}

func TestSurfaceJumpToMiddleReanchors(t *testing.T) {
	ctrl, s := newTestSurface(t, singleParentTree(500), 18)

	s.scrollTo(s.layout.height / 2)

	if ctrl.VisibleCount() == 0 {
		t.Fatal("expected visible items after a far jump")
	}
	assertWindowInvariants(t, ctrl, s)
}

func TestSurfaceSmallScrollsKeepWindowValid(t *testing.T) {
	ctrl, s := newTestSurface(t, singleParentTree(300), 18)

	for step := 0; step < 40; step++ {
		s.scrollBy(wheelLines)
		if ctrl.VisibleCount() == 0 {
			t.Fatalf("step %d: nothing visible at scrollTop %d", step, s.scrollTop)
		}
		assertWindowInvariants(t, ctrl, s)
	}
	for step := 0; step < 40; step++ {
		s.scrollBy(-wheelLines)
		assertWindowInvariants(t, ctrl, s)
	}
	if ctrl.FirstVisible() != 0 {
		t.Errorf("expected to be back at the top, first visible %d", ctrl.FirstVisible())
	}
}

func TestSurfaceSharedLeafAggregatesVisibility(t *testing.T) {
	nodes := []model.Node{
		{ID: "P1", Kind: model.KindParent, ChildrenIDs: []model.ID{"S"}},
		{ID: "P2", Kind: model.KindParent, ChildrenIDs: []model.ID{"S"}},
		{ID: "S", Kind: model.KindLeaf, ParentIDs: []model.ID{"P1", "P2"}},
	}
	ctrl, s := newTestSurface(t, nodes, 30)

	if ctrl.Len() != 4 {
		t.Fatalf("expected S projected twice (4 items), got %d", ctrl.Len())
	}
	if s.mountedCount() != 4 {
		t.Errorf("expected both occurrences mounted, got %d", s.mountedCount())
	}
	if got := s.visibleBy["S"]; got != 2 {
		t.Errorf("expected S visible through 2 elements, got %d", got)
	}

	// closing P1 unmounts one occurrence; S stays visible
	if !ctrl.OnToggleParent("P1") {
		t.Fatal("expected toggle to succeed")
	}
	s.relayout()
	s.settle()
	if !ctrl.VisibleSet()["S"] {
		t.Error("expected S to remain visible through P2")
	}
	if got := s.visibleBy["S"]; got != 1 {
		t.Errorf("expected S visible through 1 element, got %d", got)
	}
}

func TestSurfaceUnmountDropsVisibility(t *testing.T) {
	ctrl, s := newTestSurface(t, testutil.Scenario(), 30)

	// collapsing P2 removes B and C from the projection
	ctrl.OnToggleParent("P2")
	s.relayout()
	s.settle()

	for _, id := range []model.ID{"B", "C"} {
		if ctrl.VisibleSet()[id] {
			t.Errorf("expected %s to leave the visible set", id)
		}
	}
	if ctrl.VisibleCount() != 3 {
		t.Errorf("expected 3 visible items, got %d", ctrl.VisibleCount())
	}
	assertWindowInvariants(t, ctrl, s)
}

func TestSurfaceScrollMetricsAndReveal(t *testing.T) {
	ctrl, s := newTestSurface(t, testutil.QuickTree(300), 18)

	top, total, client := s.ScrollMetrics()
	if top != 0 || total != s.layout.height || client != 18 {
		t.Errorf("unexpected metrics (%d,%d,%d)", top, total, client)
	}

	last := ctrl.Len() - 1
	s.reveal(last)
	rowTop, rowH, _ := s.layout.bounds(last)
	if rowTop+rowH > s.scrollTop+s.height || rowTop < s.scrollTop {
		t.Errorf("expected index %d in view after reveal, scrollTop %d", last, s.scrollTop)
	}
}
