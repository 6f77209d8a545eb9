package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-varint"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/codec"
)

// Request sends req to an already connected peer and returns the data of the
// response. An error reported by the peer is returned as *ServerError.
func (s *Server) Request(ctx context.Context, pid peer.ID, req []byte) ([]byte, error) {
	start := s.clock.Now()
	data, err := s.request(ctx, pid, req)
	s.metrics.requested(err, s.clock.Since(start))
	s.logger.Debug("request execution time",
		zap.String("protocol", s.protocol),
		zap.Stringer("peer", pid),
		zap.Duration("duration", s.clock.Since(start)),
		zap.Error(err),
	)
	return data, err
}

func (s *Server) request(ctx context.Context, pid peer.ID, req []byte) ([]byte, error) {
	if len(req) > s.requestLimit {
		return nil, fmt.Errorf("request length (%d) is longer than limit %d", len(req), s.requestLimit)
	}
	if s.h.Network().Connectedness(pid) != network.Connected {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, pid)
	}
	ctx, cancel := context.WithTimeoutCause(ctx, s.hardTimeout, errHardTimeout)
	defer cancel()

	stream, err := s.h.NewStream(network.WithNoDial(ctx, "existing connection"), pid, protocol.ID(s.protocol))
	if err != nil {
		return nil, err
	}
	dadj := newDeadlineAdjuster(stream, s.logger, s.clock, s.timeout, s.hardTimeout)
	defer dadj.Close()
	// unblock reads when ctx is done before the deadline adjuster fires
	stop := context.AfterFunc(ctx, func() { stream.Reset() })
	defer stop()

	if err := writeRequest(dadj, req); err != nil {
		return nil, fmt.Errorf("peer %s address %s: %w", pid, stream.Conn().RemoteMultiaddr(), err)
	}
	var resp Response
	if _, err := codec.DecodeFrom(bufio.NewReader(dadj), &resp); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", context.Cause(ctx), err)
		}
		return nil, fmt.Errorf("peer %s: %w", pid, err)
	}
	if resp.Error != "" {
		return nil, &ServerError{msg: resp.Error}
	}
	return resp.Data, nil
}

func writeRequest(w io.Writer, req []byte) error {
	wr := bufio.NewWriter(w)
	if _, err := wr.Write(varint.ToUvarint(uint64(len(req)))); err != nil {
		return err
	}
	if _, err := wr.Write(req); err != nil {
		return err
	}
	return wr.Flush()
}

// IsServerError reports whether err was returned by the peer rather than by
// the transport.
func IsServerError(err error) bool {
	return errors.Is(err, &ServerError{})
}
