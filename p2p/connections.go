package p2p

import (
	"sync/atomic"

	"github.com/libp2p/go-libp2p/core/network"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/spacemeshos/go-antientropy/metrics/public"
)

// connections tracks the number of open connections per direction.
type connections struct {
	inbound, outbound atomic.Int64
}

func newConnections() *connections {
	return &connections{}
}

func (c *connections) Listen(network.Network, ma.Multiaddr) {}

func (c *connections) ListenClose(network.Network, ma.Multiaddr) {}

func (c *connections) Connected(_ network.Network, conn network.Conn) {
	c.update(conn.Stat().Direction, 1)
}

func (c *connections) Disconnected(_ network.Network, conn network.Conn) {
	c.update(conn.Stat().Direction, -1)
}

func (c *connections) update(dir network.Direction, delta int64) {
	switch dir {
	case network.DirInbound:
		public.Connections.WithLabelValues("inbound").Set(float64(c.inbound.Add(delta)))
	case network.DirOutbound:
		public.Connections.WithLabelValues("outbound").Set(float64(c.outbound.Add(delta)))
	}
}

// Connected returns the number of currently open connections.
func (fh *Host) Connected() int {
	return int(fh.conns.inbound.Load() + fh.conns.outbound.Load())
}
