package hashtree

import "math/bits"

// Level returns the height of the internal node at arena position pos.
//
// The height is obtained by repeatedly removing the highest power of two
// from pos+1 until nothing is left; the exponent of the last power removed is
// the height. That is the position of the lowest set bit of pos+1, which is
// what is computed here.
func Level(pos int) int {
	return bits.TrailingZeros(uint(pos + 1))
}

// Parent returns the position of the structural parent of the node at pos.
// The parent may not exist in a tree that is not complete.
func Parent(pos int) int {
	level := Level(pos)
	if isLeftChild(pos, level) {
		return pos + 1<<level
	}
	return pos - 1<<level
}

// Children returns the structural children of the node at pos.
// Nodes at level 0 have leaves as children and ok is false for them.
func Children(pos int) (left, right int, ok bool) {
	level := Level(pos)
	if level == 0 {
		return 0, 0, false
	}
	half := 1 << (level - 1)
	return pos - half, pos + half, true
}

// RootIndex returns the position of the root for an arena of the given size:
// the largest power of two not exceeding size, minus one.
func RootIndex(size int) int {
	if size <= 0 {
		return 0
	}
	return 1<<(bits.Len(uint(size))-1) - 1
}

// arenaSize returns the number of internal nodes needed for the leaves.
// A single leaf still gets a node so that the tree always has a root.
func arenaSize(leaves int) int {
	switch leaves {
	case 0:
		return 0
	case 1:
		return 1
	default:
		return leaves - 1
	}
}

func isLeftChild(pos, level int) bool {
	return (pos+1)&(2<<level) == 0
}

// span is the number of leaf slots under a node at the level.
func span(level int) int {
	return 2 << level
}

// firstLeaf is the first leaf slot under the node at pos.
func firstLeaf(pos, level int) int {
	return pos + 1 - 1<<level
}
