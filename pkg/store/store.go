// Package store holds the backing node graph the card tree is projected from.
//
// A Store is read-only once constructed. The tree projector, selection engine
// and renderer only ever read from it; live reloads build a new store and
// swap it in.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/metrics"
	"github.com/vanderheijden86/cardtree/pkg/model"
)

// DefaultFetchLatency mirrors the latency of the remote card service the
// board was designed against.
const DefaultFetchLatency = 10 * time.Millisecond

// Store is the read interface over the node graph.
type Store interface {
	// AllNodes returns every node in insertion order.
	AllNodes() []model.Node
	// Node resolves an id.
	Node(id model.ID) (*model.Node, bool)
	// RootParents returns parents without a ParentID, in insertion order.
	RootParents() []*model.Node
	// Children resolves a parent's ChildrenIDs, skipping ids that do not resolve.
	Children(parent *model.Node) []*model.Node
	// FetchLeaf loads the full leaf record. It returns nil, nil when the id is
	// absent or not a leaf.
	FetchLeaf(ctx context.Context, id model.ID) (*model.Node, error)
}

// MemoryStore is an insertion-ordered in-memory Store.
// Safe for concurrent reads, including FetchLeaf.
type MemoryStore struct {
	nodes   []model.Node
	byID    map[model.ID]int
	roots   []*model.Node
	latency time.Duration
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithFetchLatency sets the simulated latency of FetchLeaf. Zero disables it.
func WithFetchLatency(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d < 0 {
			d = 0
		}
		s.latency = d
	}
}

// NewMemoryStore builds a store from nodes. Kinds are normalized and each node
// is validated on its own; duplicate ids are rejected. Cross-node consistency
// is not enforced here, see Validate.
func NewMemoryStore(nodes []model.Node, opts ...Option) (*MemoryStore, error) {
	s := &MemoryStore{
		nodes:   make([]model.Node, 0, len(nodes)),
		byID:    make(map[model.ID]int, len(nodes)),
		latency: DefaultFetchLatency,
	}
	for _, opt := range opts {
		opt(s)
	}

	for i := range nodes {
		n := nodes[i].Clone()
		n.Kind = n.Kind.Normalize()
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := s.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		s.byID[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}

	for i := range s.nodes {
		if s.nodes[i].IsRoot() {
			s.roots = append(s.roots, &s.nodes[i])
		}
	}
	return s, nil
}

// MustMemoryStore is NewMemoryStore for fixtures known to be valid.
func MustMemoryStore(nodes []model.Node, opts ...Option) *MemoryStore {
	s, err := NewMemoryStore(nodes, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of nodes.
func (s *MemoryStore) Len() int { return len(s.nodes) }

// AllNodes returns copies of every node in insertion order.
func (s *MemoryStore) AllNodes() []model.Node {
	out := make([]model.Node, len(s.nodes))
	for i := range s.nodes {
		out[i] = s.nodes[i].Clone()
	}
	return out
}

// Node resolves an id. The returned node must not be modified.
func (s *MemoryStore) Node(id model.ID) (*model.Node, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.nodes[i], true
}

// RootParents returns the level-0 parents in insertion order.
func (s *MemoryStore) RootParents() []*model.Node {
	return s.roots
}

// Children resolves the parent's children in stored order.
func (s *MemoryStore) Children(parent *model.Node) []*model.Node {
	if !parent.IsParent() {
		return nil
	}
	out := make([]*model.Node, 0, len(parent.ChildrenIDs))
	for _, id := range parent.ChildrenIDs {
		if n, ok := s.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// FetchLeaf returns a copy of the leaf after the configured latency.
func (s *MemoryStore) FetchLeaf(ctx context.Context, id model.ID) (*model.Node, error) {
	defer metrics.TimerWithCallback(metrics.LeafFetch, func(d time.Duration) {
		debug.LogTiming("fetch "+string(id), d)
	})()

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, ok := s.Node(id)
	if !ok || !n.IsLeaf() {
		return nil, nil
	}
	clone := n.Clone()
	return &clone, nil
}
