package store

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

// ProblemKind classifies a consistency problem in the node graph.
type ProblemKind string

const (
	ProblemUnresolved    ProblemKind = "unresolved_reference"
	ProblemBackReference ProblemKind = "broken_back_reference"
	ProblemKindMismatch  ProblemKind = "kind_mismatch"
	ProblemCycle         ProblemKind = "cycle"
	ProblemDepth         ProblemKind = "too_deep"
)

// Problem is a single consistency violation.
type Problem struct {
	Kind   ProblemKind
	NodeID model.ID
	Ref    model.ID
	Detail string
}

func (p Problem) String() string {
	if p.Ref != "" {
		return fmt.Sprintf("%s: %s -> %s: %s", p.Kind, p.NodeID, p.Ref, p.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", p.Kind, p.NodeID, p.Detail)
}

// maxParentDepth is the number of parent levels the board can display.
const maxParentDepth = 3

// Validate checks the cross-node invariants the projector relies on: every
// referenced id resolves, parent/child back-references agree, parents only
// contain parents or leaves of the right shape, and parent chains are acyclic.
// The projector tolerates every violation, so Validate only reports them.
func Validate(s Store) []Problem {
	var problems []Problem
	nodes := s.AllNodes()

	for i := range nodes {
		n := &nodes[i]
		switch {
		case n.IsParent():
			if n.ParentID != "" {
				parent, ok := s.Node(n.ParentID)
				switch {
				case !ok:
					problems = append(problems, Problem{ProblemUnresolved, n.ID, n.ParentID, "parentId does not resolve"})
				case !parent.IsParent():
					problems = append(problems, Problem{ProblemKindMismatch, n.ID, n.ParentID, "parentId names a leaf"})
				case !containsID(parent.ChildrenIDs, n.ID):
					problems = append(problems, Problem{ProblemBackReference, n.ID, n.ParentID, "parent does not list this node as a child"})
				}
			}
			for _, cid := range n.ChildrenIDs {
				child, ok := s.Node(cid)
				if !ok {
					problems = append(problems, Problem{ProblemUnresolved, n.ID, cid, "child does not resolve"})
					continue
				}
				if child.IsLeaf() && !containsID(child.ParentIDs, n.ID) {
					problems = append(problems, Problem{ProblemBackReference, n.ID, cid, "leaf does not list this parent"})
				}
				if child.IsParent() && child.ParentID != n.ID {
					problems = append(problems, Problem{ProblemBackReference, n.ID, cid, "child parent has a different parentId"})
				}
			}
		case n.IsLeaf():
			for _, pid := range n.ParentIDs {
				parent, ok := s.Node(pid)
				switch {
				case !ok:
					problems = append(problems, Problem{ProblemUnresolved, n.ID, pid, "parentIds entry does not resolve"})
				case !parent.IsParent():
					problems = append(problems, Problem{ProblemKindMismatch, n.ID, pid, "parentIds entry names a leaf"})
				case !containsID(parent.ChildrenIDs, n.ID):
					problems = append(problems, Problem{ProblemBackReference, n.ID, pid, "parent does not list this leaf"})
				}
			}
		}
	}

	problems = append(problems, cycleProblems(nodes)...)
	problems = append(problems, depthProblems(s, nodes)...)
	return problems
}

// cycleProblems finds cycles in the parent-to-child containment graph.
func cycleProblems(nodes []model.Node) []Problem {
	var problems []Problem

	g := simple.NewDirectedGraph()
	idToNode := make(map[model.ID]int64, len(nodes))
	nodeToID := make(map[int64]model.ID, len(nodes))
	for i := range nodes {
		n := g.NewNode()
		g.AddNode(n)
		idToNode[nodes[i].ID] = n.ID()
		nodeToID[n.ID()] = nodes[i].ID
	}

	for i := range nodes {
		n := &nodes[i]
		if !n.IsParent() {
			continue
		}
		u := idToNode[n.ID]
		for _, cid := range n.ChildrenIDs {
			v, ok := idToNode[cid]
			if !ok {
				continue
			}
			if u == v {
				// simple.DirectedGraph rejects self edges
				problems = append(problems, Problem{ProblemCycle, n.ID, cid, "node lists itself as a child"})
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]model.ID, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, nodeToID[n.ID()])
		}
		model.SortIDs(ids)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = string(id)
		}
		problems = append(problems, Problem{
			Kind:   ProblemCycle,
			NodeID: ids[0],
			Detail: "containment cycle through " + strings.Join(parts, ", "),
		})
	}
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].NodeID < problems[j].NodeID })
	return problems
}

// depthProblems reports parents nested deeper than the board renders.
// Chains are walked with a visited set so cycles terminate.
func depthProblems(s Store, nodes []model.Node) []Problem {
	var problems []Problem
	for i := range nodes {
		n := &nodes[i]
		if !n.IsParent() {
			continue
		}
		depth := 1
		seen := map[model.ID]bool{n.ID: true}
		cur := n
		for cur.ParentID != "" {
			p, ok := s.Node(cur.ParentID)
			if !ok || !p.IsParent() || seen[p.ID] {
				break
			}
			seen[p.ID] = true
			depth++
			cur = p
		}
		if depth > maxParentDepth {
			problems = append(problems, Problem{ProblemDepth, n.ID, "", fmt.Sprintf("parent nested %d levels deep", depth)})
		}
	}
	return problems
}

func containsID(ids []model.ID, id model.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
