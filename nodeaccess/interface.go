package nodeaccess

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
)

//go:generate mockgen -typed -package=nodeaccess -destination=./mocks.go -source=./interface.go

// Requester sends a request to a peer and returns the response payload.
type Requester interface {
	Request(ctx context.Context, pid peer.ID, req []byte) ([]byte, error)
}

// Source yields key/value pairs for a bulk load.
type Source interface {
	Iterate(ctx context.Context, fn func(key, value []byte) error) error
}
