// Package tree projects the card hierarchy onto the flat, render-ordered
// sequence the board windows over.
//
// The board shows three fixed levels: root parents at level 0, their children
// at level 1 and the children of open level-1 parents at level 2. Parents at
// level 2 are shown but never expanded. Closed parents contribute exactly one
// item; their subtree is absent from the sequence, not hidden.
package tree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
)

// ErrUnresolvedReference marks a child id with no backing node. The branch is
// skipped.
var ErrUnresolvedReference = errors.New("unresolved reference")

// MaxLevel is the deepest level the projector emits.
const MaxLevel = 2

// Lookup resolves node ids.
type Lookup interface {
	Node(id model.ID) (*model.Node, bool)
}

// Source is the part of the store the projector reads.
type Source interface {
	Lookup
	RootParents() []*model.Node
}

// FlatItem is one row of the projection.
type FlatItem struct {
	ID       model.ID
	Kind     model.Kind
	Level    int
	ParentID model.ID // empty at level 0
	// Position is the ordinal among the projected children of ParentID.
	Position int
}

// IsLeaf reports whether the item is a leaf card.
func (f FlatItem) IsLeaf() bool { return f.Kind == model.KindLeaf }

// IsParent reports whether the item is a parent row.
func (f FlatItem) IsParent() bool { return f.Kind == model.KindParent }

// Expandable reports whether toggling the item changes the projection.
func (f FlatItem) Expandable() bool { return f.IsParent() && f.Level < MaxLevel }

// Project walks the roots in store order and emits the pre-order flat
// sequence for the given open state. It runs in time proportional to the
// number of emitted items.
func Project(src Source, open OpenState) []FlatItem {
	defer metrics.Timer(metrics.Projection)()

	roots := src.RootParents()
	items := make([]FlatItem, 0, len(roots)*4)
	for i, root := range roots {
		items = appendVisible(items, src, open, root, 0, "", i)
	}
	return items
}

func appendVisible(items []FlatItem, src Source, open OpenState, n *model.Node, level int, parent model.ID, pos int) []FlatItem {
	items = append(items, FlatItem{
		ID:       n.ID,
		Kind:     n.Kind,
		Level:    level,
		ParentID: parent,
		Position: pos,
	})
	if !n.IsParent() || level >= MaxLevel || !open.IsOpen(n.ID) {
		return items
	}

	childPos := 0
	for _, cid := range n.ChildrenIDs {
		child, ok := src.Node(cid)
		if !ok {
			debug.Log("%v", fmt.Errorf("%w: %s lists child %s", ErrUnresolvedReference, n.ID, cid))
			continue
		}
		items = appendVisible(items, src, open, child, level+1, n.ID, childPos)
		childPos++
	}
	return items
}

// IndexOf returns the index of the first item with id, or -1.
func IndexOf(items []FlatItem, id model.ID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// RowStart returns the index of the first item in the grid row containing
// items[i]. Adjacent sibling leaves form a run that wraps every cardsPerRow
// cards; a parent row or an open subtree between siblings ends the run.
// Parents always occupy a row of their own.
func RowStart(items []FlatItem, i, cardsPerRow int) int {
	if i < 0 || i >= len(items) || !items[i].IsLeaf() || cardsPerRow <= 1 {
		return i
	}
	run := i
	for run > 0 && items[run-1].IsLeaf() && items[run-1].ParentID == items[i].ParentID {
		run--
	}
	return run + (i-run)/cardsPerRow*cardsPerRow
}
