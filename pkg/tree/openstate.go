package tree

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

// Policy decides whether a parent without an explicit entry is open.
type Policy int

const (
	// DefaultOpen treats unset parents as expanded.
	DefaultOpen Policy = iota
	// DefaultClosed treats unset parents as collapsed.
	DefaultClosed
)

func (p Policy) String() string {
	if p == DefaultClosed {
		return "closed"
	}
	return "open"
}

// ParsePolicy parses "open" or "closed".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return DefaultOpen, nil
	case "closed":
		return DefaultClosed, nil
	}
	return DefaultOpen, fmt.Errorf("unknown open policy %q (want open or closed)", s)
}

// OpenState maps parent ids to an explicit expanded flag. It is a value type:
// every mutation returns a new OpenState and leaves the receiver untouched.
type OpenState struct {
	explicit map[model.ID]bool
	policy   Policy
}

// NewOpenState returns an empty state under the given policy.
func NewOpenState(p Policy) OpenState {
	return OpenState{policy: p}
}

// Policy returns the default openness policy.
func (s OpenState) Policy() Policy { return s.policy }

// IsOpen reports whether the parent is expanded.
func (s OpenState) IsOpen(id model.ID) bool {
	if v, ok := s.explicit[id]; ok {
		return v
	}
	return s.policy == DefaultOpen
}

// Explicit returns the stored flag and whether one is stored.
func (s OpenState) Explicit(id model.ID) (open, ok bool) {
	open, ok = s.explicit[id]
	return open, ok
}

// Len returns the number of explicit entries.
func (s OpenState) Len() int { return len(s.explicit) }

// Set returns a copy with id explicitly set.
func (s OpenState) Set(id model.ID, open bool) OpenState {
	next := s.clone(len(s.explicit) + 1)
	next.explicit[id] = open
	return next
}

// Toggle returns a copy with id flipped. An unset parent stores the negation
// of the policy default, so under DefaultOpen the sequence is
// unset -> false -> true -> false.
func (s OpenState) Toggle(id model.ID) OpenState {
	return s.Set(id, !s.IsOpen(id))
}

// ExpandAll opens every parent the projector can expand.
func (s OpenState) ExpandAll(src Source) OpenState {
	return s.setExpandable(src, true)
}

// CollapseAll closes every parent the projector can expand.
func (s OpenState) CollapseAll(src Source) OpenState {
	return s.setExpandable(src, false)
}

func (s OpenState) setExpandable(src Source, open bool) OpenState {
	next := s.clone(len(s.explicit))
	for _, root := range src.RootParents() {
		next.explicit[root.ID] = open
		for _, cid := range root.ChildrenIDs {
			if child, ok := src.Node(cid); ok && child.IsParent() {
				next.explicit[cid] = open
			}
		}
	}
	return next
}

func (s OpenState) clone(capacity int) OpenState {
	next := OpenState{
		explicit: make(map[model.ID]bool, capacity),
		policy:   s.policy,
	}
	for k, v := range s.explicit {
		next.explicit[k] = v
	}
	return next
}
