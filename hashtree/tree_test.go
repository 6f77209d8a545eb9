package hashtree

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-antientropy/hash"
)

func h(k int) uint64 { return keyHash(k) }

func two(a, b uint64) uint64 { return hash.Combine(a, b) }

func seq(n int) *Tree[int, string] {
	tr := New[int, string]()
	for i := range n {
		if err := tr.Insert(i, fmt.Sprintf("value %d", i)); err != nil {
			panic(err)
		}
	}
	return tr
}

func TestEmpty(t *testing.T) {
	tr := New[int, string]()
	require.Zero(t, tr.Len())
	require.Zero(t, tr.NodeCount())
	require.Zero(t, tr.RootHash())
	_, err := tr.Node(0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = tr.Leaf(0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, ok := tr.LeftOf(0)
	require.False(t, ok)
	require.NoError(t, tr.Verify())
	require.Contains(t, tr.String(), "empty")
}

type testValue struct {
	Data1 string
	Data2 uint64
	Data3 []bool
}

func TestInsertComplexValue(t *testing.T) {
	tr := New[int, testValue]()
	v := testValue{Data1: "test", Data2: 1, Data3: []bool{true, false}}
	require.NoError(t, tr.Insert(0, v))
	got, err := tr.ValueAt(0)
	require.NoError(t, err)
	require.Equal(t, v, got)
	n, err := tr.Node(0)
	require.NoError(t, err)
	require.Equal(t, Node{Hash: h(0), Left: LeafRef(0)}, n)
	require.Equal(t, h(0), tr.RootHash())
}

func TestInsertStructure(t *testing.T) {
	h01 := two(h(0), h(1))
	h23 := two(h(2), h(3))
	h45 := two(h(4), h(5))
	h67 := two(h(6), h(7))
	h0123 := two(h01, h23)
	for _, tc := range []struct {
		leaves int
		nodes  []Node
	}{
		{
			leaves: 2,
			nodes:  []Node{{h01, LeafRef(0), LeafRef(1)}},
		},
		{
			leaves: 3,
			nodes: []Node{
				{h01, LeafRef(0), LeafRef(1)},
				{two(h01, h(2)), NodeRef(0), LeafRef(2)},
			},
		},
		{
			leaves: 4,
			nodes: []Node{
				{h01, LeafRef(0), LeafRef(1)},
				{h0123, NodeRef(0), NodeRef(2)},
				{h23, LeafRef(2), LeafRef(3)},
			},
		},
		{
			leaves: 5,
			nodes: []Node{
				{h01, LeafRef(0), LeafRef(1)},
				{h0123, NodeRef(0), NodeRef(2)},
				{h23, LeafRef(2), LeafRef(3)},
				{two(h0123, h(4)), NodeRef(1), LeafRef(4)},
			},
		},
		{
			leaves: 6,
			nodes: []Node{
				{h01, LeafRef(0), LeafRef(1)},
				{h0123, NodeRef(0), NodeRef(2)},
				{h23, LeafRef(2), LeafRef(3)},
				{two(h0123, h45), NodeRef(1), NodeRef(4)},
				{h45, LeafRef(4), LeafRef(5)},
			},
		},
		{
			leaves: 7,
			nodes: []Node{
				{h01, LeafRef(0), LeafRef(1)},
				{h0123, NodeRef(0), NodeRef(2)},
				{h23, LeafRef(2), LeafRef(3)},
				{two(h0123, two(h45, h(6))), NodeRef(1), NodeRef(5)},
				{h45, LeafRef(4), LeafRef(5)},
				{two(h45, h(6)), NodeRef(4), LeafRef(6)},
			},
		},
		{
			leaves: 8,
			nodes: []Node{
				{h01, LeafRef(0), LeafRef(1)},
				{h0123, NodeRef(0), NodeRef(2)},
				{h23, LeafRef(2), LeafRef(3)},
				{two(h0123, two(h45, h67)), NodeRef(1), NodeRef(5)},
				{h45, LeafRef(4), LeafRef(5)},
				{two(h45, h67), NodeRef(4), NodeRef(6)},
				{h67, LeafRef(6), LeafRef(7)},
			},
		},
	} {
		t.Run(fmt.Sprint(tc.leaves), func(t *testing.T) {
			tr := seq(tc.leaves)
			require.Equal(t, tc.nodes, tr.nodes)
			for i := range tc.leaves {
				l, err := tr.Leaf(i)
				require.NoError(t, err)
				require.Equal(t, Leaf[int, string]{h(i), i, fmt.Sprintf("value %d", i)}, l)
			}
			require.NoError(t, tr.Verify())
		})
	}
}

func TestRootPosition(t *testing.T) {
	tr := New[int, string]()
	for i, root := range []int{0, 0, 1, 1, 3, 3, 3, 3, 7, 7, 7, 7, 7, 7, 7, 7, 15} {
		require.NoError(t, tr.Insert(i, ""))
		require.Equal(t, root, tr.Root(), "after %d inserts", i+1)
	}
}

func TestLeftRightOf(t *testing.T) {
	tr := seq(9)
	for _, tc := range []struct {
		pos         int
		left, right ChildRef
	}{
		{1, NodeRef(0), NodeRef(2)},
		{7, NodeRef(3), LeafRef(8)},
		{0, LeafRef(0), LeafRef(1)},
	} {
		left, ok := tr.LeftOf(tc.pos)
		require.True(t, ok)
		require.Equal(t, tc.left, left)
		right, ok := tr.RightOf(tc.pos)
		require.True(t, ok)
		require.Equal(t, tc.right, right)
	}
	_, ok := tr.LeftOf(8)
	require.False(t, ok)

	single := seq(1)
	_, ok = single.RightOf(0)
	require.False(t, ok)
}

func TestRootHashDiffers(t *testing.T) {
	for v := range 16 {
		t1 := New[int, int]()
		t2 := New[int, int]()
		for i := range 16 {
			require.NoError(t, t1.Insert(i, v))
			if i != 11 {
				require.NoError(t, t2.Insert(i, i))
			}
		}
		require.NotEqual(t, t1.RootHash(), t2.RootHash())
	}
}

func TestHashesForEntireTree(t *testing.T) {
	t1 := New[int, int]()
	t2 := New[int, int]()
	for i := range 16 {
		if i != 4 {
			require.NoError(t, t1.Insert(i, i))
		}
		require.NoError(t, t2.Insert(i, i))
	}
	require.Equal(t, 14, t1.NodeCount())
	require.Equal(t, 15, t2.NodeCount())
	for i := range 14 {
		h1, err := t1.HashAt(i)
		require.NoError(t, err)
		h2, err := t2.HashAt(i)
		require.NoError(t, err)
		if i < 3 {
			require.Equal(t, h1, h2, "node %d", i)
		} else {
			require.NotEqual(t, h1, h2, "node %d", i)
		}
	}
}

func TestInsertionOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for n := 1; n <= 70; n++ {
		keys := make([]int, n)
		for i := range keys {
			keys[i] = i * 3
		}
		ordered := New[int, int]()
		for _, k := range keys {
			require.NoError(t, ordered.Insert(k, k))
		}
		rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		shuffled := New[int, int]()
		for _, k := range keys {
			require.NoError(t, shuffled.Insert(k, k))
			require.NoError(t, shuffled.Verify())
		}
		require.Equal(t, ordered.nodes, shuffled.nodes, "n=%d", n)
		require.Equal(t, ordered.RootHash(), shuffled.RootHash())
	}
}

func TestInsertDuplicate(t *testing.T) {
	tr := seq(5)
	before := tr.RootHash()
	err := tr.Insert(3, "other")
	require.ErrorIs(t, err, ErrKeyExists)
	require.Equal(t, before, tr.RootHash())
	v, ok := tr.Get(3)
	require.True(t, ok)
	require.Equal(t, "value 3", v)
	require.Equal(t, 5, tr.Len())
}

func TestGetAndAccessors(t *testing.T) {
	tr := New[string, int]()
	for i, k := range []string{"m", "c", "x", "a"} {
		require.NoError(t, tr.Insert(k, i))
	}
	_, ok := tr.Get("b")
	require.False(t, ok)
	v, ok := tr.Get("x")
	require.True(t, ok)
	require.Equal(t, 2, v)

	k, err := tr.KeyAt(1)
	require.NoError(t, err)
	require.Equal(t, "c", k)
	_, err = tr.KeyAt(4)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = tr.ValueAt(-1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = tr.HashAt(tr.NodeCount())
	require.ErrorIs(t, err, ErrOutOfRange)

	var keys []string
	for k := range tr.All() {
		keys = append(keys, k)
	}
	require.Equal(t, []string{"a", "c", "m", "x"}, keys)
	require.True(t, slices.IsSorted(keys))
}

func TestValueHashing(t *testing.T) {
	plain1 := New[int, string]()
	plain2 := New[int, string]()
	valued1 := New[int, string](WithValueHashing())
	valued2 := New[int, string](WithValueHashing())
	for i := range 10 {
		require.NoError(t, plain1.Insert(i, "a"))
		require.NoError(t, plain2.Insert(i, "b"))
		require.NoError(t, valued1.Insert(i, "a"))
		require.NoError(t, valued2.Insert(i, "b"))
	}
	require.Equal(t, plain1.RootHash(), plain2.RootHash())
	require.NotEqual(t, valued1.RootHash(), valued2.RootHash())
	require.NotEqual(t, plain1.RootHash(), valued1.RootHash())
	require.NoError(t, valued1.Verify())
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tr := seq(6)
	tr.nodes[4].Hash++
	require.ErrorIs(t, tr.Verify(), ErrInvariantViolation)

	tr = seq(6)
	tr.leaves[2], tr.leaves[3] = tr.leaves[3], tr.leaves[2]
	require.ErrorIs(t, tr.Verify(), ErrInvariantViolation)
}

func TestString(t *testing.T) {
	out := seq(3).String()
	require.Contains(t, out, "node 1")
	require.Contains(t, out, "node 0")
	require.Contains(t, out, "leaf 2 2")
}

func TestEncodedKeysDistinct(t *testing.T) {
	require.NotEqual(t, keyHash(-1), keyHash(1))
	require.NotEqual(t, keyHash(int64(0)), keyHash(uint64(0)), "sign bit is flipped for signed keys")
	require.Equal(t, keyHash("abc"), keyHash([]byte("abc")))
	require.NotEqual(t, keyValueHash("ab", "c"), keyValueHash("a", "bc"))
}

func BenchmarkAppend(b *testing.B) {
	tr := New[int, struct{}]()
	for i := range b.N {
		if err := tr.Insert(i, struct{}{}); err != nil {
			b.Fatal(err)
		}
	}
}
