package hashtree

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// String renders the tree structure starting from the root.
func (t *Tree[K, V]) String() string {
	out := treeprint.New()
	if len(t.nodes) == 0 {
		out.SetValue("empty")
		return out.String()
	}
	t.print(out, t.root)
	return out.String()
}

func (t *Tree[K, V]) print(branch treeprint.Tree, pos int) {
	n := t.nodes[pos]
	branch.SetValue(fmt.Sprintf("node %d [%016x]", pos, n.Hash))
	for _, ref := range []ChildRef{n.Left, n.Right} {
		switch ref.Kind {
		case ChildNode:
			t.print(branch.AddBranch(""), ref.Index)
		case ChildLeaf:
			l := t.leaves[ref.Index]
			branch.AddNode(fmt.Sprintf("leaf %d %v [%016x]", ref.Index, l.Key, l.KeyHash))
		}
	}
}
