package hashtree

import "fmt"

// ChildKind tells what a ChildRef points to.
type ChildKind uint8

const (
	// ChildEmpty is an absent child.
	ChildEmpty ChildKind = iota
	// ChildNode references an internal node by arena position.
	ChildNode
	// ChildLeaf references a leaf by its position in the sorted leaves.
	ChildLeaf
)

func (k ChildKind) String() string {
	switch k {
	case ChildEmpty:
		return "empty"
	case ChildNode:
		return "node"
	case ChildLeaf:
		return "leaf"
	}
	return fmt.Sprintf("ChildKind(%d)", uint8(k))
}

// ChildRef is a tagged, non-owning reference to a child of an internal node.
type ChildRef struct {
	Kind  ChildKind
	Index int
}

// NodeRef references the internal node at pos.
func NodeRef(pos int) ChildRef {
	return ChildRef{Kind: ChildNode, Index: pos}
}

// LeafRef references the leaf at pos.
func LeafRef(pos int) ChildRef {
	return ChildRef{Kind: ChildLeaf, Index: pos}
}

func (c ChildRef) IsEmpty() bool { return c.Kind == ChildEmpty }
func (c ChildRef) IsNode() bool  { return c.Kind == ChildNode }
func (c ChildRef) IsLeaf() bool  { return c.Kind == ChildLeaf }

func (c ChildRef) String() string {
	if c.Kind == ChildEmpty {
		return "empty"
	}
	return fmt.Sprintf("%s(%d)", c.Kind, c.Index)
}
