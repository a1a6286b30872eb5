// Package testutil provides deterministic card-tree fixtures for tests,
// benchmarks and the -generate flag.
package testutil

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

// GeneratorConfig controls mock tree generation.
type GeneratorConfig struct {
	Seed                int64 // Random seed for determinism (0 = use current time)
	Grandparents        int   // Root parents (default: 2)
	ParentsPer          int   // Parents under each root (default: 3)
	Leaves              int   // Leaf cards (default: 101)
	LeafIDStart         int   // First numeric leaf id (default: 100)
	MaxLeafParents      int   // Each leaf gets 1..MaxLeafParents parents (default: 3)
	IncludeDescriptions bool  // Generate markdown descriptions for leaves
}

// DefaultConfig reproduces the board's demo data set: two grandparents, three
// parents each and leaves 100..200 spread over one to three parents.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:           42, // Deterministic
		Grandparents:   2,
		ParentsPer:     3,
		Leaves:         101,
		LeafIDStart:    100,
		MaxLeafParents: 3,
	}
}

// Generator creates mock card trees.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	def := DefaultConfig()
	if cfg.Grandparents <= 0 {
		cfg.Grandparents = def.Grandparents
	}
	if cfg.ParentsPer <= 0 {
		cfg.ParentsPer = def.ParentsPer
	}
	if cfg.Leaves < 0 {
		cfg.Leaves = 0
	}
	if cfg.LeafIDStart <= 0 {
		cfg.LeafIDStart = def.LeafIDStart
	}
	if cfg.MaxLeafParents <= 0 {
		cfg.MaxLeafParents = def.MaxLeafParents
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Tree generates the three-level hierarchy. Parent ChildrenIDs and leaf
// ParentIDs are kept mutually consistent.
func (g *Generator) Tree() []model.Node {
	cfg := g.cfg
	nodes := make([]model.Node, 0, cfg.Grandparents*(cfg.ParentsPer+1)+cfg.Leaves)

	gpIndex := make([]int, cfg.Grandparents)
	var parentIndex []int
	for gp := 1; gp <= cfg.Grandparents; gp++ {
		gpIndex[gp-1] = len(nodes)
		nodes = append(nodes, model.Node{
			ID:   model.ID(strconv.Itoa(gp)),
			Name: fmt.Sprintf("Grand Parent %d", gp),
			Kind: model.KindParent,
		})
	}
	for gp := 1; gp <= cfg.Grandparents; gp++ {
		gpID := model.ID(strconv.Itoa(gp))
		for i := 1; i <= cfg.ParentsPer; i++ {
			id := model.ID(fmt.Sprintf("%d.%d", gp, i))
			parentIndex = append(parentIndex, len(nodes))
			nodes = append(nodes, model.Node{
				ID:       id,
				Name:     fmt.Sprintf("Parent %d.%d", gp, i),
				Kind:     model.KindParent,
				ParentID: gpID,
			})
			root := &nodes[gpIndex[gp-1]]
			root.ChildrenIDs = append(root.ChildrenIDs, id)
		}
	}

	maxParents := cfg.MaxLeafParents
	if maxParents > len(parentIndex) {
		maxParents = len(parentIndex)
	}
	for k := 0; k < cfg.Leaves && maxParents > 0; k++ {
		num := cfg.LeafIDStart + k
		id := model.ID(strconv.Itoa(num))

		n := g.rng.Intn(maxParents) + 1
		picked := g.rng.Perm(len(parentIndex))[:n]
		sort.Ints(picked)

		leaf := model.Node{
			ID:   id,
			Name: fmt.Sprintf("Card %d", num),
			Kind: model.KindLeaf,
		}
		for _, pi := range picked {
			parent := &nodes[parentIndex[pi]]
			parent.ChildrenIDs = append(parent.ChildrenIDs, id)
			leaf.ParentIDs = append(leaf.ParentIDs, parent.ID)
		}
		if cfg.IncludeDescriptions {
			leaf.Description = g.description(num, leaf.ParentIDs)
		}
		nodes = append(nodes, leaf)
	}
	return nodes
}

func (g *Generator) description(num int, parents []model.ID) string {
	points := g.rng.Intn(8) + 1
	s := fmt.Sprintf("## Card %d\n\nEstimate: **%d** points.\n\nFiled under:\n", num, points)
	for _, p := range parents {
		s += fmt.Sprintf("- Parent %s\n", p)
	}
	return s
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickTree generates a default-shaped tree with the given leaf count and
// enough parents to keep rows full.
func QuickTree(leaves int) []model.Node {
	cfg := DefaultConfig()
	cfg.Leaves = leaves
	if leaves > 600 {
		cfg.ParentsPer = leaves / 200
	}
	return New(cfg).Tree()
}

// Scenario returns root P1 with children [leaf A, parent P2 [leaf B, leaf C]].
func Scenario() []model.Node {
	return []model.Node{
		{ID: "P1", Name: "Root", Kind: model.KindParent, ChildrenIDs: []model.ID{"A", "P2"}},
		{ID: "A", Name: "Card A", Kind: model.KindLeaf, ParentIDs: []model.ID{"P1"}},
		{ID: "P2", Name: "Group", Kind: model.KindParent, ParentID: "P1", ChildrenIDs: []model.ID{"B", "C"}},
		{ID: "B", Name: "Card B", Kind: model.KindLeaf, ParentIDs: []model.ID{"P2"}},
		{ID: "C", Name: "Card C", Kind: model.KindLeaf, ParentIDs: []model.ID{"P2"}},
	}
}

// Empty returns an empty tree.
func Empty() []model.Node {
	return []model.Node{}
}
