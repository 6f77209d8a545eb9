// Package server implements a length prefixed request/response protocol on
// top of libp2p streams.
//
// A request is a uvarint length followed by the payload. The response is a
// scale encoded Response carrying either data or an error message. Incoming
// streams are queued, admitted through a rate limiter and served by a bounded
// number of workers.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-varint"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spacemeshos/go-antientropy/codec"
)

// ErrNotConnected is returned when peer is not connected.
var ErrNotConnected = errors.New("peer is not connected")

// ErrInvalidConfig is returned by Run when the server limits are not positive.
var ErrInvalidConfig = errors.New("invalid server config")

const (
	maxResponseSize = 89128960 // 85 MiB
	maxErrorSize    = 1024
)

// Opt is a type to configure a server.
type Opt func(s *Server)

// WithTimeout configures the idle timeout of a stream. Every read or write
// moves the deadline forward by timeout.
func WithTimeout(timeout time.Duration) Opt {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// WithHardTimeout bounds the total duration of a request, regardless of
// activity on the stream.
func WithHardTimeout(timeout time.Duration) Opt {
	return func(s *Server) {
		s.hardTimeout = timeout
	}
}

// WithLog configures logger for the server.
func WithLog(log *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = log
	}
}

// WithRequestSizeLimit limits the size of requests both accepted and sent.
func WithRequestSizeLimit(limit int) Opt {
	return func(s *Server) {
		s.requestLimit = limit
	}
}

// WithMetrics will enable metrics collection in the server.
func WithMetrics() Opt {
	return func(s *Server) {
		s.metrics = newTracker(s.protocol)
	}
}

// WithQueueSize sets the number of streams kept waiting for a worker. Streams
// that don't fit are closed immediately. The same value bounds the number of
// concurrently served requests.
//
// Defaults to 1000.
func WithQueueSize(size int) Opt {
	return func(s *Server) {
		s.queueSize = size
	}
}

// WithRequestsPerInterval limits the rate at which queued requests are
// served. Bursts of up to n requests are allowed.
//
// Defaults to 100 requests per second.
func WithRequestsPerInterval(n int, interval time.Duration) Opt {
	return func(s *Server) {
		s.requestsPerInterval = n
		s.interval = interval
	}
}

// Handler answers a single request. An error is sent to the peer as the
// Error field of the response.
type Handler func(context.Context, []byte) ([]byte, error)

// ServerError is used by the client to represent an error returned by the
// server.
type ServerError struct {
	msg string
}

func NewServerError(msg string) *ServerError {
	return &ServerError{msg: msg}
}

func (*ServerError) Is(target error) bool {
	_, ok := target.(*ServerError)
	return ok
}

func (err *ServerError) Error() string {
	return fmt.Sprintf("peer error: %s", err.msg)
}

// Message returns the error reported by the peer.
func (err *ServerError) Message() string {
	return err.msg
}

// Response is a server response.
type Response struct {
	Data  []byte
	Error string
}

// Host is the subset of the libp2p host used by the server.
type Host interface {
	SetStreamHandler(protocol.ID, network.StreamHandler)
	NewStream(context.Context, peer.ID, ...protocol.ID) (network.Stream, error)
	Network() network.Network
}

// Server serves a single protocol and sends requests to peers serving the
// same protocol.
type Server struct {
	logger              *zap.Logger
	clock               clockwork.Clock
	protocol            string
	handler             Handler
	timeout             time.Duration
	hardTimeout         time.Duration
	requestLimit        int
	queueSize           int
	requestsPerInterval int
	interval            time.Duration

	metrics *tracker // nil unless WithMetrics is used

	h Host
}

// New server for the handler. A server with a nil handler can only send
// requests.
func New(h Host, proto string, handler Handler, opts ...Opt) *Server {
	srv := &Server{
		logger:              zap.NewNop(),
		clock:               clockwork.NewRealClock(),
		protocol:            proto,
		handler:             handler,
		h:                   h,
		timeout:             25 * time.Second,
		hardTimeout:         5 * time.Minute,
		requestLimit:        10240,
		queueSize:           1000,
		requestsPerInterval: 100,
		interval:            time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

type incoming struct {
	stream   network.Stream
	received time.Time
}

// Validate checks the limits the server is configured with.
func (s *Server) Validate() error {
	switch {
	case s.queueSize <= 0:
		return fmt.Errorf("%w: queue size %d", ErrInvalidConfig, s.queueSize)
	case s.requestsPerInterval <= 0:
		return fmt.Errorf("%w: requests per interval %d", ErrInvalidConfig, s.requestsPerInterval)
	case s.interval <= 0:
		return fmt.Errorf("%w: interval %v", ErrInvalidConfig, s.interval)
	}
	return nil
}

// Run registers the stream handler and serves requests until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}
	limit := rate.NewLimiter(rate.Every(s.interval/time.Duration(s.requestsPerInterval)), s.requestsPerInterval)
	queue := make(chan incoming, s.queueSize)
	s.metrics.configured(s.queueSize, float64(limit.Limit()))
	s.h.SetStreamHandler(protocol.ID(s.protocol), func(stream network.Stream) {
		select {
		case queue <- incoming{stream: stream, received: s.clock.Now()}:
			s.metrics.accept(len(queue))
		default:
			s.metrics.drop()
			stream.Close()
		}
	})

	var eg errgroup.Group
	eg.SetLimit(s.queueSize)
	defer eg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-queue:
			s.metrics.dequeue(s.clock.Since(req.received))
			if err := limit.Wait(ctx); err != nil {
				req.stream.Close()
				return nil
			}
			eg.Go(func() error {
				ok := s.serve(ctx, req.stream)
				s.metrics.served(ok, s.clock.Since(req.received))
				return nil
			})
		}
	}
}

func (s *Server) serve(ctx context.Context, stream network.Stream) bool {
	remote := stream.Conn().RemotePeer()
	logger := s.logger.With(
		zap.String("protocol", s.protocol),
		zap.Stringer("remotePeer", remote),
		zap.Stringer("remoteMultiaddr", stream.Conn().RemoteMultiaddr()),
	)
	ctx, cancel := context.WithTimeoutCause(ctx, s.hardTimeout, errHardTimeout)
	defer cancel()
	dadj := newDeadlineAdjuster(stream, logger, s.clock, s.timeout, s.hardTimeout)
	defer dadj.Close()
	stop := context.AfterFunc(ctx, func() { stream.Reset() })
	defer stop()
	req, err := s.readRequest(bufio.NewReader(dadj))
	if errors.Is(err, errRequestTooLarge) {
		logger.Warn("request limit overflow", zap.Int("limit", s.requestLimit), zap.Error(err))
		stream.Conn().Close()
		return false
	} else if err != nil {
		logger.Debug("failed to read request", zap.Error(err))
		return false
	}

	start := s.clock.Now()
	var resp Response
	if s.handler == nil {
		resp.Error = fmt.Sprintf("protocol %s is not served", s.protocol)
	} else if data, err := s.handler(withPeerID(ctx, remote), req); err != nil {
		resp.Error = err.Error()
		if len(resp.Error) > maxErrorSize {
			resp.Error = resp.Error[:maxErrorSize]
		}
	} else {
		resp.Data = data
	}
	if err := writeResponse(dadj, &resp); err != nil {
		logger.Debug("failed to write response", zap.Error(err))
		return false
	}
	logger.Debug("request served",
		zap.Duration("duration", s.clock.Since(start)),
		zap.Bool("error", resp.Error != ""),
	)
	return resp.Error == ""
}

var errRequestTooLarge = errors.New("request too large")

func (s *Server) readRequest(rd *bufio.Reader) ([]byte, error) {
	size, err := varint.ReadUvarint(rd)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if size > uint64(s.requestLimit) {
		return nil, fmt.Errorf("%w: %d", errRequestTooLarge, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return nil, fmt.Errorf("read %d bytes: %w", size, err)
	}
	return buf, nil
}

func writeResponse(w io.Writer, resp *Response) error {
	wr := bufio.NewWriter(w)
	if _, err := codec.EncodeTo(wr, resp); err != nil {
		return fmt.Errorf("encode response (len %d err len %d): %w", len(resp.Data), len(resp.Error), err)
	}
	if err := wr.Flush(); err != nil {
		return fmt.Errorf("flush response (len %d err len %d): %w", len(resp.Data), len(resp.Error), err)
	}
	return nil
}

type peerIDKey struct{}

func withPeerID(ctx context.Context, peerID peer.ID) context.Context {
	return context.WithValue(ctx, peerIDKey{}, peerID)
}

// ContextPeerID retrieves the ID of the peer being served from the context.
func ContextPeerID(ctx context.Context) (peer.ID, bool) {
	if v := ctx.Value(peerIDKey{}); v != nil {
		return v.(peer.ID), true
	}
	return peer.ID(""), false
}
