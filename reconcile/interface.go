package reconcile

import "context"

//go:generate mockgen -typed -package=reconcile -destination=./mocks.go -source=./interface.go

// Accessor reads the hash tree of a replica by arena position.
// Positions outside of the replica's tree are reported with an error wrapping
// hashtree.ErrOutOfRange.
type Accessor[V any] interface {
	HashAt(ctx context.Context, index int) (uint64, error)
	ValueAt(ctx context.Context, index int) (V, error)
}
