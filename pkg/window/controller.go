// Package window decides which contiguous slice of the flat card sequence is
// materialized.
//
// The Controller is driven by three event sources: visibility transitions
// reported by mounted rows, scroll position (only as a fallback when nothing
// mounted is visible), and parent toggles. Every recompute reads the whole
// VisibleSet, so the order in which transitions arrive does not matter.
package window

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

// ErrNoVisibleAnchor is returned by RecomputeWindow when no id in the
// VisibleSet is present in the flat sequence. The window is left unchanged.
var ErrNoVisibleAnchor = errors.New("no visible items to anchor the window")

// Bound selects how far past the last visible item the window extends.
type Bound int

const (
	// BoundExclusive ends the window at last + visibleCount.
	BoundExclusive Bound = iota
	// BoundPastLast ends the window one further, at last + visibleCount + 1.
	BoundPastLast
)

func (b Bound) String() string {
	if b == BoundPastLast {
		return "past_last"
	}
	return "exclusive"
}

// ParseBound parses "exclusive" or "past_last".
func ParseBound(s string) (Bound, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclusive":
		return BoundExclusive, nil
	case "past_last", "past-last":
		return BoundPastLast, nil
	}
	return BoundExclusive, fmt.Errorf("unknown window bound %q (want exclusive or past_last)", s)
}

// Window is a half-open range [Start, End) into the flat sequence.
type Window struct {
	Start, End int
}

// Len returns the number of items in the window.
func (w Window) Len() int { return w.End - w.Start }

// Contains reports whether index i is inside the window.
func (w Window) Contains(i int) bool { return i >= w.Start && i < w.End }

// VisibleSet records ids currently reported visible. It is replaced, never
// patched, so holders of an old value keep a consistent snapshot.
type VisibleSet map[model.ID]bool

// Config holds the windowing knobs.
type Config struct {
	Buffer      int
	CardsPerRow int
	Bound       Bound
	Policy      tree.Policy
}

// DefaultConfig returns a 40-item buffer and four cards per row.
func DefaultConfig() Config {
	return Config{
		Buffer:      40,
		CardsPerRow: 4,
		Bound:       BoundExclusive,
		Policy:      tree.DefaultOpen,
	}
}

// ScrollSurface is the scroll container the fallback path reads and moves.
type ScrollSurface interface {
	// ScrollMetrics returns the scroll offset, total content height and
	// visible height, all in the same unit.
	ScrollMetrics() (top, scrollHeight, clientHeight int)
	// ScrollToIndex scrolls so the flat item at index is at the top.
	ScrollToIndex(index int)
}

// Controller owns the open state, the flat sequence, the VisibleSet and the
// render window. It is not safe for concurrent use.
type Controller struct {
	cfg     Config
	src     tree.Source
	open    tree.OpenState
	flat    []tree.FlatItem
	visible VisibleSet
	win     Window

	firstVisible int
	lastVisible  int
}

// New projects src under cfg.Policy and starts with the window [0, Buffer).
func New(src tree.Source, cfg Config) *Controller {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	if cfg.CardsPerRow <= 0 {
		cfg.CardsPerRow = DefaultConfig().CardsPerRow
	}
	c := &Controller{
		cfg:     cfg,
		src:     src,
		open:    tree.NewOpenState(cfg.Policy),
		visible: VisibleSet{},
	}
	c.flat = tree.Project(src, c.open)
	c.win = Window{Start: 0, End: min(cfg.Buffer, len(c.flat))}
	return c
}

// Config returns the controller configuration.
func (c *Controller) Config() Config { return c.cfg }

// Flat returns the current flat sequence. Callers must not modify it.
func (c *Controller) Flat() []tree.FlatItem { return c.flat }

// Len returns the length of the flat sequence.
func (c *Controller) Len() int { return len(c.flat) }

// Window returns the current render window.
func (c *Controller) Window() Window { return c.win }

// OpenState returns the current open state.
func (c *Controller) OpenState() tree.OpenState { return c.open }

// IsOpen reports whether a parent is expanded.
func (c *Controller) IsOpen(id model.ID) bool { return c.open.IsOpen(id) }

// VisibleSet returns the current set. Callers must not modify it.
func (c *Controller) VisibleSet() VisibleSet { return c.visible }

// VisibleCount returns the number of ids reported visible, stale ones
// included until the next recompute prunes them.
func (c *Controller) VisibleCount() int { return len(c.visible) }

// FirstVisible returns the first visible index found by the last successful
// recompute.
func (c *Controller) FirstVisible() int { return c.firstVisible }

// LastVisible returns the last visible index found by the last successful
// recompute.
func (c *Controller) LastVisible() int { return c.lastVisible }

// OnVisibilityChange records a transition. Only a report of visible
// triggers a recompute; rows leaving the viewport before their replacements
// report in must not shrink the window. Repeated reports are harmless.
func (c *Controller) OnVisibilityChange(id model.ID, visible bool) {
	if c.visible[id] != visible {
		next := make(VisibleSet, len(c.visible)+1)
		for k := range c.visible {
			next[k] = true
		}
		if visible {
			next[id] = true
		} else {
			delete(next, id)
		}
		c.visible = next
	}

	if !visible {
		return
	}
	if err := c.RecomputeWindow(); err != nil {
		debug.Log("window: %v (after %s became visible)", err, id)
	}
}

// RecomputeWindow rederives the window from the VisibleSet. Ids no longer
// present in the flat sequence are pruned. If nothing visible remains it
// returns ErrNoVisibleAnchor and leaves the window as it was.
func (c *Controller) RecomputeWindow() error {
	defer metrics.Timer(metrics.WindowRecompute)()

	first, last := -1, -1
	pruned := make(VisibleSet, len(c.visible))
	for i, it := range c.flat {
		if !c.visible[it.ID] {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		pruned[it.ID] = true
	}
	if len(pruned) != len(c.visible) {
		c.visible = pruned
	}
	if first < 0 {
		return ErrNoVisibleAnchor
	}

	count := len(pruned)
	start := max(0, first-count)
	start = tree.RowStart(c.flat, start, c.cfg.CardsPerRow)

	end := last + count
	if c.cfg.Bound == BoundPastLast {
		end++
	}
	end = min(len(c.flat), end)

	debug.Assert(start <= first && last < end && end <= len(c.flat),
		"window [%d,%d) does not cover visible [%d,%d] of %d", start, end, first, last, len(c.flat))
	c.firstVisible, c.lastVisible = first, last
	c.win = Window{Start: start, End: end}
	debug.Log("window: [%d,%d) first=%d last=%d visible=%d", start, end, first, last, count)
	return nil
}

// OnToggleParent flips a parent's open state and reprojects. The window stays
// anchored at Start and takes VisibleCount items; a recompute follows once
// the newly mounted rows report visibility. With nothing visible the window
// takes Buffer items instead, so there is always something mounted to report.
func (c *Controller) OnToggleParent(id model.ID) bool {
	n, ok := c.src.Node(id)
	if !ok || !n.IsParent() {
		return false
	}
	c.open = c.open.Toggle(id)
	c.reproject()

	size := len(c.visible)
	if size == 0 {
		size = c.cfg.Buffer
	}
	start := min(c.win.Start, len(c.flat))
	c.win = Window{Start: start, End: min(len(c.flat), start+size)}
	return true
}

// OnScroll recovers from jumps that outrun the buffer. It only acts when the
// VisibleSet is empty: the window is placed from the scroll ratio and the
// surface is scrolled to the new start so visibility can re-anchor. It
// reports whether the fallback ran.
func (c *Controller) OnScroll(surface ScrollSurface) bool {
	if len(c.visible) > 0 {
		return false
	}
	top, scrollHeight, clientHeight := surface.ScrollMetrics()

	pct := 0.0
	if maxScroll := scrollHeight - clientHeight; maxScroll > 0 {
		pct = math.Min(1, math.Max(0, float64(top)/float64(maxScroll)))
	}
	start := int(math.Floor(pct * float64(len(c.flat)-c.cfg.Buffer)))
	start = max(0, min(start, len(c.flat)))
	c.win = Window{Start: start, End: min(len(c.flat), start+c.cfg.Buffer)}

	debug.Log("window: scroll fallback to [%d,%d) at %.2f", c.win.Start, c.win.End, pct)
	surface.ScrollToIndex(start)
	return true
}

// SetSource swaps the backing store, keeping the open state, and reprojects.
// The window is clamped; stale visible ids are pruned by the next recompute.
func (c *Controller) SetSource(src tree.Source) {
	c.src = src
	c.reproject()
	c.clamp()
}

// ExpandAll opens every expandable parent. The window is reseeded with
// Buffer items from Start, as on a fresh mount.
func (c *Controller) ExpandAll() {
	c.open = c.open.ExpandAll(c.src)
	c.reproject()
	c.reseed()
}

// CollapseAll closes every expandable parent.
func (c *Controller) CollapseAll() {
	c.open = c.open.CollapseAll(c.src)
	c.reproject()
	c.reseed()
}

func (c *Controller) reseed() {
	n := len(c.flat)
	start := min(c.win.Start, max(0, n-c.cfg.Buffer))
	c.win = Window{Start: start, End: min(n, start+c.cfg.Buffer)}
	c.firstVisible = min(c.firstVisible, max(0, n-1))
	c.lastVisible = min(c.lastVisible, max(0, n-1))
}

func (c *Controller) reproject() {
	c.flat = tree.Project(c.src, c.open)
}

func (c *Controller) clamp() {
	n := len(c.flat)
	start := c.win.Start
	if start >= n {
		start = max(0, n-c.cfg.Buffer)
	}
	end := min(c.win.End, n)
	if end <= start {
		end = min(n, start+c.cfg.Buffer)
	}
	c.win = Window{Start: start, End: end}
	c.firstVisible = min(c.firstVisible, max(0, n-1))
	c.lastVisible = min(c.lastVisible, max(0, n-1))
}
