package nodeaccess

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/spacemeshos/go-antientropy/codec"
	"github.com/spacemeshos/go-antientropy/hashtree"
	"github.com/spacemeshos/go-antientropy/p2p/server"
)

// ErrMalformedResponse is returned when a peer response can't be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// Client reads the tree served by a single peer.
type Client struct {
	requester Requester
	peer      peer.ID
}

func NewClient(requester Requester, pid peer.ID) *Client {
	return &Client{requester: requester, peer: pid}
}

func (c *Client) HashAt(ctx context.Context, index int) (uint64, error) {
	data, err := c.request(ctx, GetHash, index)
	if err != nil {
		return 0, err
	}
	var resp HashResponse
	if err := codec.Decode(data, &resp); err != nil {
		return 0, fmt.Errorf("%w: hash at %d from %s: %w", ErrMalformedResponse, index, c.peer, err)
	}
	return resp.Hash, nil
}

func (c *Client) ValueAt(ctx context.Context, index int) ([]byte, error) {
	return c.request(ctx, GetValue, index)
}

func (c *Client) request(ctx context.Context, kind Kind, index int) ([]byte, error) {
	if index < 0 || index > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", hashtree.ErrOutOfRange, index)
	}
	req := codec.MustEncode(&Request{Kind: kind, Index: uint32(index)})
	data, err := c.requester.Request(ctx, c.peer, req)
	var serr *server.ServerError
	switch {
	case err == nil:
		return data, nil
	case errors.As(err, &serr) && serr.Message() == notFound:
		return nil, fmt.Errorf("%w: %s at %d on %s", hashtree.ErrOutOfRange, kind, index, c.peer)
	default:
		return nil, fmt.Errorf("%s at %d from %s: %w", kind, index, c.peer, err)
	}
}
