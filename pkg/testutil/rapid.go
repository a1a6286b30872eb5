package testutil

import (
	"fmt"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

// TreeGen draws well-formed three-level trees. Leaves may be shared between
// parents and level-2 parents may carry children of their own, which the
// board never expands.
func TreeGen() *rapid.Generator[[]model.Node] {
	return rapid.Custom(func(t *rapid.T) []model.Node {
		var nodes []model.Node
		index := make(map[model.ID]int)
		var leaves []model.ID
		seq := 0
		next := func(prefix string) model.ID {
			seq++
			return model.ID(fmt.Sprintf("%s%d", prefix, seq))
		}
		add := func(n model.Node) {
			index[n.ID] = len(nodes)
			nodes = append(nodes, n)
		}
		link := func(parent, child model.ID) {
			p := &nodes[index[parent]]
			p.ChildrenIDs = append(p.ChildrenIDs, child)
			c := &nodes[index[child]]
			if c.Kind == model.KindLeaf {
				c.ParentIDs = append(c.ParentIDs, parent)
			} else {
				c.ParentID = parent
			}
		}
		addLeaf := func(parent model.ID) {
			if len(leaves) > 0 && rapid.IntRange(0, 4).Draw(t, "share") == 0 {
				shared := rapid.SampledFrom(leaves).Draw(t, "shared")
				if !containsID(nodes[index[parent]].ChildrenIDs, shared) {
					link(parent, shared)
					return
				}
			}
			id := next("L")
			add(model.Node{ID: id, Name: "Card " + string(id), Kind: model.KindLeaf})
			leaves = append(leaves, id)
			link(parent, id)
		}
		var addParent func(parent model.ID, level int)
		addParent = func(parent model.ID, level int) {
			id := next("P")
			add(model.Node{ID: id, Name: "Parent " + string(id), Kind: model.KindParent})
			if parent != "" {
				link(parent, id)
			}
			kids := rapid.IntRange(0, 4).Draw(t, "kids")
			for i := 0; i < kids; i++ {
				if level < 2 && rapid.IntRange(0, 2).Draw(t, "kind") == 0 {
					addParent(id, level+1)
				} else {
					addLeaf(id)
				}
			}
		}

		roots := rapid.IntRange(0, 4).Draw(t, "roots")
		for i := 0; i < roots; i++ {
			addParent("", 0)
		}
		return nodes
	})
}

// ParentIDs returns the ids of every parent node in order.
func ParentIDs(nodes []model.Node) []model.ID {
	var out []model.ID
	for _, n := range nodes {
		if n.Kind == model.KindParent {
			out = append(out, n.ID)
		}
	}
	return out
}

// LeafIDs returns the ids of every leaf node in order.
func LeafIDs(nodes []model.Node) []model.ID {
	var out []model.ID
	for _, n := range nodes {
		if n.Kind == model.KindLeaf {
			out = append(out, n.ID)
		}
	}
	return out
}

func containsID(ids []model.ID, id model.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
