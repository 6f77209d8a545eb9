package hashtree

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/spacemeshos/go-antientropy/hash"
)

// Leaf is a key/value pair stored in the tree.
type Leaf[K cmp.Ordered, V any] struct {
	KeyHash uint64
	Key     K
	Value   V
}

// Node is an internal node of the tree.
type Node struct {
	Hash  uint64
	Left  ChildRef
	Right ChildRef
}

// Opt configures a Tree.
type Opt func(*config)

type config struct {
	hashValues bool
}

// WithValueHashing makes leaf hashes cover the value as well as the key.
// By default only keys are hashed, so two trees that hold the same keys with
// different values have equal hashes.
func WithValueHashing() Opt {
	return func(c *config) {
		c.hashValues = true
	}
}

// Tree is a hash tree over key/value pairs sorted by key.
// Tree is not safe for concurrent use.
type Tree[K cmp.Ordered, V any] struct {
	nodes  []Node
	leaves []Leaf[K, V]
	root   int
	cfg    config
}

// New creates an empty tree.
func New[K cmp.Ordered, V any](opts ...Opt) *Tree[K, V] {
	t := &Tree[K, V]{}
	for _, opt := range opts {
		opt(&t.cfg)
	}
	return t
}

// Len returns the number of leaves.
func (t *Tree[K, V]) Len() int {
	return len(t.leaves)
}

// NodeCount returns the number of internal nodes.
func (t *Tree[K, V]) NodeCount() int {
	return len(t.nodes)
}

// Root returns the arena position of the root node.
func (t *Tree[K, V]) Root() int {
	return t.root
}

// RootHash returns the hash of the root node, or 0 for an empty tree.
func (t *Tree[K, V]) RootHash() uint64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[t.root].Hash
}

// Insert adds a key/value pair to the tree. Keys are unique and there is no
// way to overwrite the value of an existing key.
//
// Appending a key greater than all existing ones touches one node per level.
// Inserting in the middle shifts the following leaves and rehashes every
// node that covers them.
func (t *Tree[K, V]) Insert(key K, value V) error {
	pos, found := t.search(key)
	if found {
		return fmt.Errorf("%w: %v", ErrKeyExists, key)
	}
	t.leaves = slices.Insert(t.leaves, pos, Leaf[K, V]{
		KeyHash: t.leafHash(key, value),
		Key:     key,
		Value:   value,
	})
	for len(t.nodes) < arenaSize(len(t.leaves)) {
		t.nodes = append(t.nodes, Node{})
	}
	t.root = RootIndex(len(t.nodes))
	return t.updateHashes(pos)
}

// Get returns the value stored under key.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	pos, found := t.search(key)
	if !found {
		var v V
		return v, false
	}
	return t.leaves[pos].Value, true
}

// Node returns the internal node at pos.
func (t *Tree[K, V]) Node(pos int) (Node, error) {
	if pos < 0 || pos >= len(t.nodes) {
		return Node{}, fmt.Errorf("%w: node %d of %d", ErrOutOfRange, pos, len(t.nodes))
	}
	return t.nodes[pos], nil
}

// HashAt returns the hash of the internal node at pos.
func (t *Tree[K, V]) HashAt(pos int) (uint64, error) {
	n, err := t.Node(pos)
	if err != nil {
		return 0, err
	}
	return n.Hash, nil
}

// Leaf returns the leaf at pos.
func (t *Tree[K, V]) Leaf(pos int) (Leaf[K, V], error) {
	if pos < 0 || pos >= len(t.leaves) {
		return Leaf[K, V]{}, fmt.Errorf("%w: leaf %d of %d", ErrOutOfRange, pos, len(t.leaves))
	}
	return t.leaves[pos], nil
}

// KeyAt returns the key of the leaf at pos.
func (t *Tree[K, V]) KeyAt(pos int) (K, error) {
	l, err := t.Leaf(pos)
	return l.Key, err
}

// ValueAt returns the value of the leaf at pos.
func (t *Tree[K, V]) ValueAt(pos int) (V, error) {
	l, err := t.Leaf(pos)
	return l.Value, err
}

// LeftOf returns the left child of the node at pos.
// ok is false if there is no such node or it has no left child.
func (t *Tree[K, V]) LeftOf(pos int) (ref ChildRef, ok bool) {
	if pos < 0 || pos >= len(t.nodes) {
		return ChildRef{}, false
	}
	ref = t.nodes[pos].Left
	return ref, !ref.IsEmpty()
}

// RightOf returns the right child of the node at pos.
// ok is false if there is no such node or it has no right child.
func (t *Tree[K, V]) RightOf(pos int) (ref ChildRef, ok bool) {
	if pos < 0 || pos >= len(t.nodes) {
		return ChildRef{}, false
	}
	ref = t.nodes[pos].Right
	return ref, !ref.IsEmpty()
}

// All iterates over the key/value pairs in ascending key order.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, l := range t.leaves {
			if !yield(l.Key, l.Value) {
				return
			}
		}
	}
}

// Verify checks the structure of the whole tree: leaf order, arena size,
// child references and hashes. It returns an error wrapping
// ErrInvariantViolation on the first inconsistency.
func (t *Tree[K, V]) Verify() error {
	for i := 1; i < len(t.leaves); i++ {
		if cmp.Compare(t.leaves[i-1].Key, t.leaves[i].Key) >= 0 {
			return fmt.Errorf("%w: leaves %d and %d out of order", ErrInvariantViolation, i-1, i)
		}
	}
	if want := arenaSize(len(t.leaves)); len(t.nodes) != want {
		return fmt.Errorf("%w: %d nodes for %d leaves, expected %d",
			ErrInvariantViolation, len(t.nodes), len(t.leaves), want)
	}
	if want := RootIndex(len(t.nodes)); t.root != want {
		return fmt.Errorf("%w: root %d, expected %d", ErrInvariantViolation, t.root, want)
	}
	for pos := range t.nodes {
		want, err := t.derive(pos)
		if err != nil {
			return err
		}
		if got := t.nodes[pos]; got != want {
			return fmt.Errorf("%w: node %d is %+v, expected %+v", ErrInvariantViolation, pos, got, want)
		}
	}
	return nil
}

func (t *Tree[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(t.leaves, key, func(l Leaf[K, V], k K) int {
		return cmp.Compare(l.Key, k)
	})
}

func (t *Tree[K, V]) leafHash(key K, value V) uint64 {
	if t.cfg.hashValues {
		return keyValueHash(key, value)
	}
	return keyHash(key)
}

// updateHashes refreshes every node covering a leaf at position from or
// after it, level by level starting from the pairs of leaves, so that the
// children of a node are always up to date before the node itself.
//
// When a leaf is appended this is the path from its pair up to the root, and
// refreshing the path is what closes an open pair, promotes a lone leaf into
// a new pair node relinking its ancestor, or opens a new sibling subtree.
func (t *Tree[K, V]) updateHashes(from int) error {
	if len(t.nodes) == 0 {
		return nil
	}
	top := Level(t.root)
	for level := 0; level <= top; level++ {
		step := span(level)
		for pos := 1<<level - 1 + from/step*step; pos < len(t.nodes); pos += step {
			node, err := t.derive(pos)
			if err != nil {
				return err
			}
			t.nodes[pos] = node
		}
	}
	return nil
}

// derive computes the node at pos from the current leaves and the current
// hashes of its children.
func (t *Tree[K, V]) derive(pos int) (Node, error) {
	var node Node
	if level := Level(pos); level == 0 {
		node.Left = t.leafRef(pos)
		node.Right = t.leafRef(pos + 1)
	} else {
		half := 1 << (level - 1)
		node.Left = t.subtree(pos-half, level-1)
		node.Right = t.subtree(pos+half, level-1)
	}
	if node.Left.IsEmpty() {
		return Node{}, fmt.Errorf("%w: node %d has no left child", ErrInvariantViolation, pos)
	}
	left, err := t.childHash(node.Left)
	if err != nil {
		return Node{}, err
	}
	if node.Right.IsEmpty() {
		node.Hash = left
		return node, nil
	}
	right, err := t.childHash(node.Right)
	if err != nil {
		return Node{}, err
	}
	node.Hash = hash.Combine(left, right)
	return node, nil
}

func (t *Tree[K, V]) leafRef(pos int) ChildRef {
	if pos >= len(t.leaves) {
		return ChildRef{}
	}
	return LeafRef(pos)
}

// subtree returns the reference that stands for the structural subtree
// rooted at pos. A subtree with a single leaf is replaced by the leaf and a
// subtree with leaves only in its left half by that half.
func (t *Tree[K, V]) subtree(pos, level int) ChildRef {
	for {
		start := firstLeaf(pos, level)
		present := min(len(t.leaves), start+span(level)) - start
		switch {
		case present <= 0:
			return ChildRef{}
		case present == 1:
			return LeafRef(start)
		case present > 1<<level:
			return NodeRef(pos)
		}
		level--
		pos -= 1 << level
	}
}

func (t *Tree[K, V]) childHash(ref ChildRef) (uint64, error) {
	switch {
	case ref.IsLeaf() && ref.Index < len(t.leaves):
		return t.leaves[ref.Index].KeyHash, nil
	case ref.IsNode() && ref.Index < len(t.nodes):
		return t.nodes[ref.Index].Hash, nil
	}
	return 0, fmt.Errorf("%w: dangling reference %s", ErrInvariantViolation, ref)
}
