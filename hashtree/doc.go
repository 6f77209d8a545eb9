// Package hashtree implements an append friendly hash tree over a sorted set
// of key/value pairs.
//
// Leaves are kept in a slice sorted by key. Internal nodes live in a second
// slice (the arena) and reference their children by position, tagged as
// either a node or a leaf. Node positions follow an in-order layout, so the
// height of a node and the positions of its parent and children are derived
// from the position alone:
//
//	3                    7
//	                  /     \
//	2          3               11
//	         /   \            /   \
//	1      1       5       9       13
//	      / \     / \     / \     /  \
//	0    0   2   4   6   8   10  12   14
//	    /\  /\  /\  /\  /\  /\   /\   /\
//	    01  23  45  67  89  ...
//
// The bottom row lists the leaf positions paired by each level 0 node.
// Two replicas that hold the same set of keys build the same arena, which is
// what allows a reconciliation walk to compare them position by position.
package hashtree
