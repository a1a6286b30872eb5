package testutil

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

func TestTreeDefaultShape(t *testing.T) {
	nodes := NewDefault().Tree()

	AssertNoDuplicateIDs(t, nodes)
	AssertAllValid(t, nodes)

	var roots, parents, leaves int
	for _, n := range nodes {
		switch {
		case n.Kind == model.KindParent && n.ParentID == "":
			roots++
		case n.Kind == model.KindParent:
			parents++
		case n.Kind == model.KindLeaf:
			leaves++
			if len(n.ParentIDs) < 1 || len(n.ParentIDs) > 3 {
				t.Errorf("leaf %s has %d parents, expected 1..3", n.ID, len(n.ParentIDs))
			}
		}
	}
	if roots != 2 || parents != 6 || leaves != 101 {
		t.Errorf("expected 2/6/101 nodes, got %d/%d/%d", roots, parents, leaves)
	}
	if FindNode(nodes, "100") == nil || FindNode(nodes, "200") == nil {
		t.Error("expected leaves 100..200")
	}
}

func TestTreeBackReferences(t *testing.T) {
	nodes := New(GeneratorConfig{Seed: 7, Leaves: 50}).Tree()
	for _, n := range nodes {
		if n.Kind != model.KindLeaf {
			continue
		}
		for _, pid := range n.ParentIDs {
			p := FindNode(nodes, pid)
			if p == nil {
				t.Fatalf("leaf %s references missing parent %s", n.ID, pid)
			}
			if !containsID(p.ChildrenIDs, n.ID) {
				t.Errorf("parent %s does not list leaf %s", pid, n.ID)
			}
		}
	}
}

func TestTreeDeterminism(t *testing.T) {
	a := NewDefault().Tree()
	b := NewDefault().Tree()
	if len(a) != len(b) {
		t.Fatalf("expected equal lengths, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || len(a[i].ParentIDs) != len(b[i].ParentIDs) {
			t.Fatalf("node %d differs between runs", i)
		}
	}
}

func TestDescriptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Leaves = 3
	cfg.IncludeDescriptions = true
	for _, n := range New(cfg).Tree() {
		if n.Kind == model.KindLeaf && n.Description == "" {
			t.Errorf("expected description on %s", n.ID)
		}
	}
}

func TestQuickTreeScales(t *testing.T) {
	nodes := QuickTree(2000)
	if got := len(LeafIDs(nodes)); got != 2000 {
		t.Errorf("expected 2000 leaves, got %d", got)
	}
	if got := len(ParentIDs(nodes)); got != 2+2*10 {
		t.Errorf("expected 22 parents, got %d", got)
	}
}

func TestTreeGenWellFormed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := TreeGen().Draw(t, "nodes")
		seen := make(map[model.ID]bool)
		for i := range nodes {
			if seen[nodes[i].ID] {
				t.Fatalf("duplicate id %s", nodes[i].ID)
			}
			seen[nodes[i].ID] = true
			if err := nodes[i].Validate(); err != nil {
				t.Fatalf("invalid node: %v", err)
			}
		}
	})
}

func BenchmarkTree10k(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = QuickTree(10000)
	}
}
