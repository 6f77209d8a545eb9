package nodeaccess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/codec"
	"github.com/spacemeshos/go-antientropy/hashtree"
	"github.com/spacemeshos/go-antientropy/metrics/public"
	"github.com/spacemeshos/go-antientropy/p2p/server"
	"github.com/spacemeshos/go-antientropy/reconcile"
)

// Config for serving and reconciling the tree.
type Config struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	HardTimeout         time.Duration `mapstructure:"hard-timeout"`
	QueueSize           int           `mapstructure:"queue-size"`
	RequestsPerInterval int           `mapstructure:"requests-per-interval"`
	Interval            time.Duration `mapstructure:"interval"`
	FetchTimeout        time.Duration `mapstructure:"fetch-timeout"`
	WalkTimeout         time.Duration `mapstructure:"walk-timeout"`
	TailProbe           bool          `mapstructure:"tail-probe"`
	ValueHashing        bool          `mapstructure:"value-hashing"`
	// HashCacheSize is the number of encoded hash responses kept between
	// writes to the tree.
	HashCacheSize int `mapstructure:"hash-cache-size"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:             10 * time.Second,
		HardTimeout:         time.Minute,
		QueueSize:           1000,
		RequestsPerInterval: 1000,
		Interval:            time.Second,
		FetchTimeout:        5 * time.Second,
		WalkTimeout:         time.Minute,
		TailProbe:           true,
		HashCacheSize:       1024,
	}
}

// Validate rejects limits that would stall or crash the request server.
func (c *Config) Validate() error {
	switch {
	case c.QueueSize <= 0:
		return fmt.Errorf("queue-size must be positive, got %d", c.QueueSize)
	case c.RequestsPerInterval <= 0:
		return fmt.Errorf("requests-per-interval must be positive, got %d", c.RequestsPerInterval)
	case c.Interval <= 0:
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	case c.HashCacheSize <= 0:
		return fmt.Errorf("hash-cache-size must be positive, got %d", c.HashCacheSize)
	}
	return nil
}

type Opt func(*Service)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithServerOpts passes options to the underlying request server.
func WithServerOpts(opts ...server.Opt) Opt {
	return func(s *Service) {
		s.serverOpts = append(s.serverOpts, opts...)
	}
}

// Service owns the local tree, serves it to peers and reconciles it against
// them.
type Service struct {
	logger     *zap.Logger
	cfg        Config
	serverOpts []server.Opt

	mu     sync.RWMutex
	tree   *hashtree.Tree[string, []byte]
	hashes *lru.Cache[int, []byte]

	server *server.Server
	walker *reconcile.Walker
}

func New(h server.Host, opts ...Opt) *Service {
	s := &Service{
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	var treeOpts []hashtree.Opt
	if s.cfg.ValueHashing {
		treeOpts = append(treeOpts, hashtree.WithValueHashing())
	}
	s.tree = hashtree.New[string, []byte](treeOpts...)
	hashes, err := lru.New[int, []byte](max(s.cfg.HashCacheSize, 1))
	if err != nil {
		panic(err)
	}
	s.hashes = hashes
	s.server = server.New(h, Protocol, s.handle,
		append([]server.Opt{
			server.WithLog(s.logger),
			server.WithTimeout(s.cfg.Timeout),
			server.WithHardTimeout(s.cfg.HardTimeout),
			server.WithQueueSize(s.cfg.QueueSize),
			server.WithRequestsPerInterval(s.cfg.RequestsPerInterval, s.cfg.Interval),
		}, s.serverOpts...)...,
	)
	walkerOpts := []reconcile.Opt{
		reconcile.WithLogger(s.logger.Named("walker")),
		reconcile.WithFetchTimeout(s.cfg.FetchTimeout),
		reconcile.WithWalkTimeout(s.cfg.WalkTimeout),
		reconcile.WithCompareOptions(cmpopts.EquateEmpty()),
	}
	if s.cfg.TailProbe {
		walkerOpts = append(walkerOpts, reconcile.WithTailProbe())
	}
	s.walker = reconcile.New(walkerOpts...)
	return s
}

// Run serves peer requests until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.server.Run(ctx)
}

// Insert adds a single key to the tree.
func (s *Service) Insert(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Insert(key, value); err != nil {
		return err
	}
	s.hashes.Purge()
	public.Leaves.Set(float64(s.tree.Len()))
	return nil
}

// Load inserts every pair produced by src and returns how many were loaded.
// The tree is locked for writing for the duration of the load.
func (s *Service) Load(ctx context.Context, src Source) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	loaded := 0
	err := src.Iterate(ctx, func(key, value []byte) error {
		if err := s.tree.Insert(string(key), value); err != nil {
			return err
		}
		loaded++
		return nil
	})
	s.hashes.Purge()
	public.Leaves.Set(float64(s.tree.Len()))
	if err != nil {
		return loaded, fmt.Errorf("load tree: %w", err)
	}
	s.logger.Info("tree loaded",
		zap.Int("leaves", loaded),
		zap.String("root", fmt.Sprintf("%016x", s.tree.RootHash())),
		zap.Duration("duration", time.Since(start)),
	)
	return loaded, nil
}

func (s *Service) HashAt(index int) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.HashAt(index)
}

func (s *Service) ValueAt(index int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.ValueAt(index)
}

func (s *Service) Root() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Root()
}

func (s *Service) RootHash() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.RootHash()
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// String renders the tree.
func (s *Service) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.String()
}

// Reconcile walks the local tree against the one served by pid.
// Loads are blocked until the walk completes.
func (s *Service) Reconcile(ctx context.Context, pid peer.ID) (*reconcile.Result[string, []byte], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.tree.Verify(); err != nil {
		return nil, err
	}
	res, err := reconcile.FindDivergence(ctx, s.walker, s.tree, NewClient(s.server, pid))
	if err != nil {
		return nil, fmt.Errorf("reconcile with %s: %w", pid, err)
	}
	logger := s.logger.With(
		zap.Stringer("peer", pid),
		zap.Stringer("status", res.Status()),
		zap.Int("fetches", res.Fetches),
	)
	if d := res.Divergence; d != nil {
		logger.Info("divergence found",
			zap.String("key", d.Key),
			zap.Int("index", d.Index),
			zap.Bool("remote_missing", d.RemoteMissing),
			zap.Bool("confirmed", d.Confirmed),
		)
	} else {
		logger.Info("reconciliation completed", zap.Bool("remote_ahead", res.RemoteAhead))
	}
	return res, nil
}

func (s *Service) handle(ctx context.Context, msg []byte) ([]byte, error) {
	var req Request
	if err := codec.Decode(msg, &req); err != nil {
		served.WithLabelValues("invalid", "error").Inc()
		return nil, fmt.Errorf("decode request: %w", err)
	}
	resp, err := s.serve(&req)
	switch {
	case err == nil:
		served.WithLabelValues(req.Kind.String(), "ok").Inc()
	case errors.Is(err, hashtree.ErrOutOfRange):
		served.WithLabelValues(req.Kind.String(), "missing").Inc()
		return nil, &missingError{cause: err}
	default:
		served.WithLabelValues(req.Kind.String(), "error").Inc()
		pid, _ := server.ContextPeerID(ctx)
		s.logger.Debug("failed to serve request",
			zap.Stringer("peer", pid),
			zap.Object("request", &req),
			zap.Error(err),
		)
	}
	return resp, err
}

func (s *Service) serve(req *Request) ([]byte, error) {
	switch req.Kind {
	case GetHash:
		return s.encodedHash(int(req.Index))
	case GetValue:
		return s.ValueAt(int(req.Index))
	default:
		return nil, fmt.Errorf("unknown request kind %d", req.Kind)
	}
}

func (s *Service) encodedHash(index int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if data, ok := s.hashes.Get(index); ok {
		return data, nil
	}
	h, err := s.tree.HashAt(index)
	if err != nil {
		return nil, err
	}
	data, err := codec.Encode(&HashResponse{Hash: h})
	if err != nil {
		return nil, err
	}
	s.hashes.Add(index, data)
	return data, nil
}
