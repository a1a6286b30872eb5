package model

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// ID identifies a node in the card tree.
type ID string

// UnmarshalJSON accepts both string and numeric ids; older exports used
// plain numbers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("invalid id %s: %w", b, err)
		}
		*id = ID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(b)
	return nil
}

// Kind tags a Node as an internal parent or a terminal leaf card.
type Kind string

const (
	KindParent Kind = "parent"
	KindLeaf   Kind = "leaf"

	// kindChild is the legacy spelling of KindLeaf found in older exports.
	kindChild Kind = "child"
)

// IsValid returns true if the kind is one of the known values
func (k Kind) IsValid() bool {
	switch k {
	case KindParent, KindLeaf:
		return true
	}
	return false
}

// Normalize maps legacy spellings onto the canonical kind.
func (k Kind) Normalize() Kind {
	if k == kindChild {
		return KindLeaf
	}
	return k
}

// Node is a tagged union over parent and leaf nodes.
//
// Parents carry ChildrenIDs (ordered) and an optional ParentID; roots have an
// empty ParentID. Leaves carry ParentIDs, since the same card may sit under
// several parents.
type Node struct {
	ID          ID     `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Kind        Kind   `json:"type" yaml:"type"`
	ChildrenIDs []ID   `json:"childrenIds,omitempty" yaml:"children,omitempty"`
	ParentID    ID     `json:"parentId,omitempty" yaml:"parent,omitempty"`
	ParentIDs   []ID   `json:"parentIds,omitempty" yaml:"parents,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsParent reports whether the node is an internal node.
func (n *Node) IsParent() bool { return n != nil && n.Kind == KindParent }

// IsLeaf reports whether the node is a leaf card.
func (n *Node) IsLeaf() bool { return n != nil && n.Kind == KindLeaf }

// IsRoot reports whether the node is a parent without a parent of its own.
func (n *Node) IsRoot() bool { return n.IsParent() && n.ParentID == "" }

// Clone creates a deep copy of the node
func (n Node) Clone() Node {
	clone := n
	if n.ChildrenIDs != nil {
		clone.ChildrenIDs = make([]ID, len(n.ChildrenIDs))
		copy(clone.ChildrenIDs, n.ChildrenIDs)
	}
	if n.ParentIDs != nil {
		clone.ParentIDs = make([]ID, len(n.ParentIDs))
		copy(clone.ParentIDs, n.ParentIDs)
	}
	return clone
}

// Validate checks if the node is well formed on its own. Cross-node
// consistency is checked by store.Validate.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if !n.Kind.IsValid() {
		return fmt.Errorf("node %s: invalid type: %q", n.ID, n.Kind)
	}
	switch n.Kind {
	case KindLeaf:
		if len(n.ChildrenIDs) > 0 {
			return fmt.Errorf("leaf %s cannot have children", n.ID)
		}
		if n.ParentID != "" {
			return fmt.Errorf("leaf %s uses parentId; leaves list parentIds", n.ID)
		}
	case KindParent:
		if len(n.ParentIDs) > 0 {
			return fmt.Errorf("parent %s uses parentIds; parents have a single parentId", n.ID)
		}
		if n.ParentID == n.ID {
			return fmt.Errorf("parent %s cannot be its own parent", n.ID)
		}
	}
	return nil
}

// SortIDs sorts ids in place and returns them.
func SortIDs(ids []ID) []ID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
