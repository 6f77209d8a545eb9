package reconcile

import (
	"cmp"
	"context"

	"github.com/spacemeshos/go-antientropy/hashtree"
)

// Local exposes an in-process tree as an Accessor.
type Local[K cmp.Ordered, V any] struct {
	Tree *hashtree.Tree[K, V]
}

func (l Local[K, V]) HashAt(ctx context.Context, index int) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.Tree.HashAt(index)
}

func (l Local[K, V]) ValueAt(ctx context.Context, index int) (V, error) {
	if err := ctx.Err(); err != nil {
		var v V
		return v, err
	}
	return l.Tree.ValueAt(index)
}
