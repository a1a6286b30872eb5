// Package selection implements multi-select over leaf cards: plain click,
// ctrl-toggle, shift-range and recursive parent toggles with an
// indeterminate state.
//
// Ranges are resolved against the current flat sequence, while parent
// checkbox state is derived from the backing store on every query, so
// neither goes stale when parents are opened or closed.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

// ErrMissingRangeEndpoint is returned when a shift selection's anchor or
// target is not in the current flat sequence. The selection is unchanged.
var ErrMissingRangeEndpoint = errors.New("range endpoint not in flat sequence")

// AnchorPolicy decides whether a shift selection moves the anchor.
type AnchorPolicy int

const (
	// KeepAnchor leaves the anchor where the last plain or ctrl click put it.
	KeepAnchor AnchorPolicy = iota
	// MoveAnchor moves the anchor to the shift-clicked card.
	MoveAnchor
)

func (p AnchorPolicy) String() string {
	if p == MoveAnchor {
		return "move"
	}
	return "keep"
}

// ParseAnchorPolicy parses "keep" or "move".
func ParseAnchorPolicy(s string) (AnchorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return KeepAnchor, nil
	case "move":
		return MoveAnchor, nil
	}
	return KeepAnchor, fmt.Errorf("unknown anchor policy %q (want keep or move)", s)
}

// Modifiers are the keys held during a selection gesture. Ctrl also covers
// Meta/Cmd.
type Modifiers struct {
	Ctrl  bool
	Shift bool
}

// View is the flat sequence a selection gesture is resolved against.
type View interface {
	Flat() []tree.FlatItem
	IsOpen(id model.ID) bool
}

// CheckState is the tri-state of a parent checkbox.
type CheckState int

const (
	Unchecked CheckState = iota
	Indeterminate
	Checked
)

// Snapshot is an immutable view of the selection. Version changes on every
// mutation.
type Snapshot struct {
	ids     map[model.ID]bool
	Version uint64
}

// Has reports whether id is selected in the snapshot.
func (s Snapshot) Has(id model.ID) bool { return s.ids[id] }

// Len returns the number of selected ids.
func (s Snapshot) Len() int { return len(s.ids) }

// Engine holds the selected leaf ids and the range anchor.
// It is not safe for concurrent use.
type Engine struct {
	lookup   tree.Lookup
	policy   AnchorPolicy
	selected map[model.ID]bool
	anchor   model.ID
	version  uint64
}

// New creates an empty selection over lookup.
func New(lookup tree.Lookup, policy AnchorPolicy) *Engine {
	return &Engine{
		lookup:   lookup,
		policy:   policy,
		selected: map[model.ID]bool{},
	}
}

// Policy returns the anchor policy.
func (e *Engine) Policy() AnchorPolicy { return e.policy }

// Anchor returns the shift-range anchor, if any.
func (e *Engine) Anchor() (model.ID, bool) { return e.anchor, e.anchor != "" }

// SelectCard applies a click on id. Only leaf items present in the view are
// selectable; anything else is ignored. Ctrl wins over Shift, and Shift
// without an anchor behaves as a plain click.
func (e *Engine) SelectCard(view View, id model.ID, mods Modifiers) error {
	flat := view.Flat()
	target := tree.IndexOf(flat, id)
	if target < 0 || !flat[target].IsLeaf() {
		return nil
	}

	switch {
	case mods.Ctrl:
		next := e.copySelected(1)
		if next[id] {
			delete(next, id)
		} else {
			next[id] = true
		}
		e.replace(next)
		e.anchor = id
	case mods.Shift && e.anchor != "":
		return e.ExtendTo(view, id)
	default:
		e.replace(map[model.ID]bool{id: true})
		e.anchor = id
	}
	return nil
}

// ExtendTo adds the inclusive range between the anchor and id, which may be
// a parent row. Leaves in the range are added, and so are all leaf
// descendants of parents whose children are not projected. Open parents add
// nothing themselves since their children are scanned separately.
func (e *Engine) ExtendTo(view View, id model.ID) error {
	flat := view.Flat()
	if e.anchor == "" {
		return fmt.Errorf("%w: no anchor", ErrMissingRangeEndpoint)
	}
	from := tree.IndexOf(flat, e.anchor)
	if from < 0 {
		return fmt.Errorf("%w: anchor %s", ErrMissingRangeEndpoint, e.anchor)
	}
	to := tree.IndexOf(flat, id)
	if to < 0 {
		return fmt.Errorf("%w: %s", ErrMissingRangeEndpoint, id)
	}
	e.selectRange(view, from, to)
	if e.policy == MoveAnchor && flat[to].IsLeaf() {
		e.anchor = id
	}
	return nil
}

// selectRange adds every leaf in flat[lo..hi], plus all leaf descendants of
// parents in the range whose children are not projected.
func (e *Engine) selectRange(view View, a, b int) {
	defer metrics.Timer(metrics.RangeSelection)()

	lo, hi := min(a, b), max(a, b)
	flat := view.Flat()
	next := e.copySelected(hi - lo + 1)
	for _, it := range flat[lo : hi+1] {
		switch {
		case it.IsLeaf():
			next[it.ID] = true
		case it.IsParent() && (!it.Expandable() || !view.IsOpen(it.ID)):
			for _, leaf := range tree.LeafDescendants(e.lookup, it.ID) {
				next[leaf] = true
			}
		}
	}
	e.replace(next)
}

// SelectAll selects every leaf currently in the view. Leaves hidden under
// closed parents are not included.
func (e *Engine) SelectAll(view View) {
	next := make(map[model.ID]bool)
	for _, it := range view.Flat() {
		if it.IsLeaf() {
			next[it.ID] = true
		}
	}
	e.replace(next)
}

// Clear deselects everything and drops the anchor.
func (e *Engine) Clear() {
	e.replace(map[model.ID]bool{})
	e.anchor = ""
}

// IsSelected reports whether id is selected.
func (e *Engine) IsSelected(id model.ID) bool { return e.selected[id] }

// Len returns the number of selected leaves.
func (e *Engine) Len() int { return len(e.selected) }

// Selected returns the selected ids in sorted order.
func (e *Engine) Selected() []model.ID {
	out := make([]model.ID, 0, len(e.selected))
	for id := range e.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns the current selection. It is never modified afterwards.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{ids: e.selected, Version: e.version}
}

// AllChildrenSelected reports whether every leaf under parentID is selected.
// A parent without leaves reports false.
func (e *Engine) AllChildrenSelected(parentID model.ID) bool {
	n, total := e.countSelected(parentID)
	return total > 0 && n == total
}

// SomeChildrenSelected reports whether some, but not all, leaves under
// parentID are selected.
func (e *Engine) SomeChildrenSelected(parentID model.ID) bool {
	n, total := e.countSelected(parentID)
	return n > 0 && n < total
}

// CheckState returns the checkbox state for parentID.
func (e *Engine) CheckState(parentID model.ID) CheckState {
	n, total := e.countSelected(parentID)
	switch {
	case total == 0 || n == 0:
		return Unchecked
	case n == total:
		return Checked
	default:
		return Indeterminate
	}
}

func (e *Engine) countSelected(parentID model.ID) (selected, total int) {
	leaves := tree.LeafDescendants(e.lookup, parentID)
	for _, id := range leaves {
		if e.selected[id] {
			selected++
		}
	}
	return selected, len(leaves)
}

// ToggleParentSelection deselects every leaf under parentID if all are
// selected, and selects them all otherwise. It reports whether parentID has
// any leaves.
func (e *Engine) ToggleParentSelection(parentID model.ID) bool {
	leaves := tree.LeafDescendants(e.lookup, parentID)
	if len(leaves) == 0 {
		return false
	}
	all := true
	for _, id := range leaves {
		if !e.selected[id] {
			all = false
			break
		}
	}
	next := e.copySelected(len(leaves))
	for _, id := range leaves {
		if all {
			delete(next, id)
		} else {
			next[id] = true
		}
	}
	e.replace(next)
	return true
}

// Retain switches to a new lookup after a reload and drops selected ids that
// no longer resolve to leaves. The anchor is dropped with them.
func (e *Engine) Retain(lookup tree.Lookup) {
	e.lookup = lookup
	next := make(map[model.ID]bool, len(e.selected))
	for id := range e.selected {
		if n, ok := lookup.Node(id); ok && n.IsLeaf() {
			next[id] = true
		}
	}
	if len(next) != len(e.selected) {
		e.replace(next)
	}
	if e.anchor != "" {
		if n, ok := lookup.Node(e.anchor); !ok || !n.IsLeaf() {
			e.anchor = ""
		}
	}
}

func (e *Engine) copySelected(extra int) map[model.ID]bool {
	next := make(map[model.ID]bool, len(e.selected)+extra)
	for id := range e.selected {
		next[id] = true
	}
	return next
}

func (e *Engine) replace(next map[model.ID]bool) {
	e.selected = next
	e.version++
}
