package ui

import (
	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/visibility"
	"github.com/vanderheijden86/cardtree/pkg/window"
)

// maxSettlePasses caps the mount/observe loop. Each pass either mounts new
// rows or delivers new visibility; a stable board settles in two or three.
const maxSettlePasses = 64

// mountKey identifies a mounted element. A shared leaf is projected once per
// parent, so the id alone is not unique.
type mountKey struct {
	parent model.ID
	id     model.ID
}

type mountedItem struct {
	handle  visibility.Handle
	id      model.ID
	index   int
	visible bool
}

// surface mounts the window of the flat sequence and observes the mounted
// elements against a line-based viewport. It is the scroll container the
// controller's fallback reads.
type surface struct {
	ctrl *window.Controller

	layout       boardLayout
	cardHeight   int
	parentHeight int

	scrollTop int
	height    int

	prim       *visibility.GeometryPrimitive
	mux        *visibility.Multiplexer
	mounts     map[mountKey]*mountedItem
	byHandle   map[visibility.Handle]*mountedItem
	visibleBy  map[model.ID]int
	nextHandle visibility.Handle
	deliveries int
}

func newSurface(ctrl *window.Controller, opts visibility.Options, cardHeight, parentHeight, height int) *surface {
	s := &surface{
		ctrl:         ctrl,
		cardHeight:   cardHeight,
		parentHeight: parentHeight,
		height:       max(1, height),
		mounts:       make(map[mountKey]*mountedItem),
		byHandle:     make(map[visibility.Handle]*mountedItem),
		visibleBy:    make(map[model.ID]int),
	}
	s.prim = visibility.NewGeometryPrimitive(s)
	s.mux = visibility.NewMultiplexer(s.prim, s, opts)
	s.relayout()
	return s
}

// Visible implements visibility.Viewport.
func (s *surface) Visible() (top, height int) {
	return s.scrollTop, s.height
}

// Bounds implements visibility.Geometry.
func (s *surface) Bounds(h visibility.Handle) (top, height int, ok bool) {
	m, found := s.byHandle[h]
	if !found {
		return 0, 0, false
	}
	return s.layout.bounds(m.index)
}

// ScrollMetrics implements window.ScrollSurface.
func (s *surface) ScrollMetrics() (top, scrollHeight, clientHeight int) {
	return s.scrollTop, s.layout.height, s.height
}

// ScrollToIndex implements window.ScrollSurface. The viewport is only moved
// when it shares no line with the window, so a jump to the end of the board
// stays at the end.
func (s *surface) ScrollToIndex(index int) {
	w := s.ctrl.Window()
	if w.Len() > 0 {
		wTop, _, _ := s.layout.bounds(w.Start)
		lTop, lHeight, _ := s.layout.bounds(w.End - 1)
		if visibility.Intersects(wTop, lTop+lHeight-wTop, s.scrollTop, s.scrollTop+s.height, 0) {
			return
		}
	}
	if top, _, ok := s.layout.bounds(index); ok {
		s.setScroll(top)
	}
}

// relayout rebuilds the geometry after the flat sequence changed. Mounted
// items are re-indexed by key; those that no longer exist are unmounted by
// the next reconcile.
func (s *surface) relayout() {
	flat := s.ctrl.Flat()
	s.layout = buildLayout(flat, s.ctrl.Config().CardsPerRow, s.cardHeight, s.parentHeight)
	index := make(map[mountKey]int, len(flat))
	for i, it := range flat {
		index[mountKey{parent: it.ParentID, id: it.ID}] = i
	}
	for k, m := range s.mounts {
		if i, ok := index[k]; ok {
			m.index = i
		} else {
			m.index = -1
		}
	}
	s.setScroll(s.scrollTop)
}

func (s *surface) maxScroll() int {
	return max(0, s.layout.height-s.height)
}

func (s *surface) setScroll(top int) {
	s.scrollTop = max(0, min(top, s.maxScroll()))
}

func (s *surface) resize(height int) {
	s.height = max(1, height)
	s.setScroll(s.scrollTop)
}

// reconcile mounts every item in the window and unmounts everything else.
// It reports whether anything changed.
func (s *surface) reconcile() bool {
	flat := s.ctrl.Flat()
	w := s.ctrl.Window()
	changed := false

	for k, m := range s.mounts {
		if m.index >= 0 && w.Contains(m.index) {
			continue
		}
		s.unmount(k, m)
		changed = true
	}
	for i := w.Start; i < w.End && i < len(flat); i++ {
		it := flat[i]
		k := mountKey{parent: it.ParentID, id: it.ID}
		if _, ok := s.mounts[k]; ok {
			continue
		}
		s.mount(k, i)
		changed = true
	}
	return changed
}

func (s *surface) mount(k mountKey, index int) {
	s.nextHandle++
	m := &mountedItem{handle: s.nextHandle, id: k.id, index: index}
	s.mounts[k] = m
	s.byHandle[m.handle] = m
	s.mux.Observe(m.handle, func(visible bool) { s.deliver(m, visible) })
}

func (s *surface) unmount(k mountKey, m *mountedItem) {
	s.mux.Unobserve(m.handle)
	delete(s.byHandle, m.handle)
	delete(s.mounts, k)
	if m.visible {
		m.visible = false
		s.adjust(m.id, -1)
	}
}

func (s *surface) deliver(m *mountedItem, visible bool) {
	s.deliveries++
	if m.visible == visible {
		return
	}
	m.visible = visible
	if visible {
		s.adjust(m.id, 1)
	} else {
		s.adjust(m.id, -1)
	}
}

// adjust tracks how many mounted elements of id intersect the viewport and
// reports transitions of the aggregate to the controller.
func (s *surface) adjust(id model.ID, delta int) {
	before := s.visibleBy[id]
	after := max(0, before+delta)
	if after == 0 {
		delete(s.visibleBy, id)
	} else {
		s.visibleBy[id] = after
	}
	switch {
	case before == 0 && after > 0:
		s.ctrl.OnVisibilityChange(id, true)
	case before > 0 && after == 0:
		s.ctrl.OnVisibilityChange(id, false)
	}
}

// settle runs mount and observation passes until the window stops moving.
// When nothing is visible afterwards, the controller's scroll fallback
// places the window and the loop runs once more. Otherwise the window is
// rederived once, since a toggle or unmount may have changed the projection
// without any element reporting in.
func (s *surface) settle() {
	s.settlePasses()
	if s.ctrl.VisibleCount() == 0 {
		if s.ctrl.Len() > 0 && s.ctrl.OnScroll(s) {
			s.settlePasses()
		}
		return
	}
	before := s.ctrl.Window()
	if err := s.ctrl.RecomputeWindow(); err != nil {
		debug.Log("surface: %v", err)
		debug.Dump("visible", s.ctrl.VisibleSet())
		if s.ctrl.Len() > 0 && s.ctrl.OnScroll(s) {
			s.settlePasses()
		}
		return
	}
	if s.ctrl.Window() != before {
		s.settlePasses()
	}
}

func (s *surface) settlePasses() {
	for pass := 0; pass < maxSettlePasses; pass++ {
		changed := s.reconcile()
		s.deliveries = 0
		s.prim.Check()
		if !changed && s.deliveries == 0 {
			return
		}
	}
	debug.Log("surface: window did not settle after %d passes, window=%v", maxSettlePasses, s.ctrl.Window())
}

// scrollBy moves the viewport and lets visibility catch up.
func (s *surface) scrollBy(delta int) {
	s.scrollTo(s.scrollTop + delta)
}

func (s *surface) scrollTo(top int) {
	prev := s.scrollTop
	s.setScroll(top)
	if s.scrollTop != prev {
		s.settle()
	}
}

// reveal scrolls the minimum distance that brings flat index i into view.
func (s *surface) reveal(i int) {
	top, height, ok := s.layout.bounds(i)
	if !ok {
		return
	}
	switch {
	case top < s.scrollTop:
		s.scrollTo(top)
	case top+height > s.scrollTop+s.height:
		s.scrollTo(top + height - s.height)
	}
}

// isMounted reports whether flat index i is currently rendered.
func (s *surface) isMounted(i int) bool {
	flat := s.ctrl.Flat()
	if i < 0 || i >= len(flat) {
		return false
	}
	m, ok := s.mounts[mountKey{parent: flat[i].ParentID, id: flat[i].ID}]
	return ok && m.index == i
}

func (s *surface) mountedCount() int {
	return len(s.mounts)
}

func (s *surface) close() {
	s.mux.Close()
}
