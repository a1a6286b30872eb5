package datasource

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

// SourceDiff describes differences between two node sets, typically the
// tree before and after a live reload.
type SourceDiff struct {
	// Added lists ids present only in the new set
	Added []model.ID `json:"added"`
	// Removed lists ids present only in the old set
	Removed []model.ID `json:"removed"`
	// Changed lists ids whose name, kind, description or edges differ
	Changed []model.ID `json:"changed"`
	// CountOld is the number of nodes in the old set
	CountOld int `json:"count_old"`
	// CountNew is the number of nodes in the new set
	CountNew int `json:"count_new"`
}

// IsEmpty returns true if the two sets are identical
func (d SourceDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Summary returns a short status line such as "+3 -1 ~2".
func (d SourceDiff) Summary() string {
	if d.IsEmpty() {
		return "no changes"
	}
	var parts []string
	if len(d.Added) > 0 {
		parts = append(parts, fmt.Sprintf("+%d", len(d.Added)))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("-%d", len(d.Removed)))
	}
	if len(d.Changed) > 0 {
		parts = append(parts, fmt.Sprintf("~%d", len(d.Changed)))
	}
	return strings.Join(parts, " ")
}

// DiffNodes compares two node sets. Result slices are sorted by id.
func DiffNodes(prev, next []model.Node) SourceDiff {
	oldByID := make(map[model.ID]model.Node, len(prev))
	for _, n := range prev {
		oldByID[n.ID] = n
	}
	newByID := make(map[model.ID]model.Node, len(next))
	for _, n := range next {
		newByID[n.ID] = n
	}

	diff := SourceDiff{CountOld: len(oldByID), CountNew: len(newByID)}
	for id, o := range oldByID {
		n, ok := newByID[id]
		if !ok {
			diff.Removed = append(diff.Removed, id)
			continue
		}
		if !sameNode(o, n) {
			diff.Changed = append(diff.Changed, id)
		}
	}
	for id := range newByID {
		if _, ok := oldByID[id]; !ok {
			diff.Added = append(diff.Added, id)
		}
	}
	model.SortIDs(diff.Added)
	model.SortIDs(diff.Removed)
	model.SortIDs(diff.Changed)
	return diff
}

func sameNode(a, b model.Node) bool {
	return a.Name == b.Name &&
		a.Kind.Normalize() == b.Kind.Normalize() &&
		a.Description == b.Description &&
		a.ParentID == b.ParentID &&
		slices.Equal(a.ChildrenIDs, b.ChildrenIDs) &&
		slices.Equal(a.ParentIDs, b.ParentIDs)
}
