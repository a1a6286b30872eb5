package tree

import (
	"github.com/vanderheijden86/cardtree/pkg/model"
)

// LeafDescendants returns every leaf under parentID in the backing store,
// regardless of open state, in pre-order and without duplicates. Leaves that
// sit under several parents are reported once. The walk keeps a visited set,
// so malformed data with containment cycles still terminates.
func LeafDescendants(lookup Lookup, parentID model.ID) []model.ID {
	root, ok := lookup.Node(parentID)
	if !ok || !root.IsParent() {
		return nil
	}

	var out []model.ID
	visited := map[model.ID]bool{parentID: true}
	stack := reversed(root.ChildrenIDs, nil)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		n, ok := lookup.Node(id)
		if !ok {
			continue
		}
		if n.IsLeaf() {
			out = append(out, id)
			continue
		}
		stack = reversed(n.ChildrenIDs, stack)
	}
	return out
}

// reversed appends ids to dst in reverse so popping yields stored order.
func reversed(ids []model.ID, dst []model.ID) []model.ID {
	for i := len(ids) - 1; i >= 0; i-- {
		dst = append(dst, ids[i])
	}
	return dst
}
