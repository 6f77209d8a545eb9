package p2p

import (
	"context"
	"errors"
	"fmt"
	"time"

	lp2plog "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	tptu "github.com/libp2p/go-libp2p/p2p/net/upgrader"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/config/util"
	"github.com/spacemeshos/go-antientropy/log"
)

// DefaultConfig config.
func DefaultConfig() Config {
	return Config{
		Listen:             []string{"/ip4/0.0.0.0/tcp/7613"},
		LowPeers:           10,
		HighPeers:          40,
		GracePeersShutdown: 30 * time.Second,
		LogLevel:           "error",
	}
}

// Config for all things related to p2p layer.
type Config struct {
	// DataDir is populated from the base config and is not read from the file.
	DataDir            string        `mapstructure:"-"`
	Listen             []string      `mapstructure:"listen"`
	Bootnodes          []string      `mapstructure:"bootnodes"`
	LowPeers           int           `mapstructure:"low-peers"`
	HighPeers          int           `mapstructure:"high-peers"`
	GracePeersShutdown time.Duration `mapstructure:"grace-peers-shutdown"`
	LogLevel           string        `mapstructure:"log-level"`
	// PrivateKey overrides the identity stored in the data directory.
	PrivateKey util.Base64Enc `mapstructure:"private-key"`
}

// Host wraps libp2p host with bootnode handling.
type Host struct {
	host.Host

	logger    *zap.Logger
	cfg       Config
	bootnodes []peer.AddrInfo
	conns     *connections
}

// New initializes libp2p host. Peers that use a different prologue fail the
// security handshake.
func New(_ context.Context, logger *zap.Logger, cfg Config, prologue []byte) (*Host, error) {
	logger.Info("starting libp2p host", zap.Strings("listen", cfg.Listen), zap.Strings("bootnodes", cfg.Bootnodes))
	key, err := identity(cfg)
	if err != nil {
		return nil, err
	}
	bootnodes, err := parseAddrInfos(cfg.Bootnodes)
	if err != nil {
		return nil, err
	}
	lp2plog.SetPrimaryCore(logger.Core())
	level, err := lp2plog.LevelFromString(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("p2p log level %q: %w", cfg.LogLevel, err)
	}
	lp2plog.SetAllLoggers(level)
	cm, err := connmgr.NewConnManager(cfg.LowPeers, cfg.HighPeers, connmgr.WithGracePeriod(cfg.GracePeersShutdown))
	if err != nil {
		return nil, fmt.Errorf("p2p create conn mgr: %w", err)
	}
	ps, err := pstoremem.NewPeerstore()
	if err != nil {
		return nil, fmt.Errorf("can't create peer store: %w", err)
	}
	streamer := *yamux.DefaultTransport
	h, err := libp2p.New(
		libp2p.Identity(key),
		libp2p.ListenAddrStrings(cfg.Listen...),
		libp2p.UserAgent("go-antientropy"),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Security(noise.ID, func(id protocol.ID, privkey crypto.PrivKey, muxers []tptu.StreamMuxer) (*noise.SessionTransport, error) {
			tp, err := noise.New(id, privkey, muxers)
			if err != nil {
				return nil, err
			}
			return tp.WithSessionOptions(noise.Prologue(prologue))
		}),
		libp2p.Muxer(yamux.ID, &streamer),
		libp2p.ConnectionManager(cm),
		libp2p.Peerstore(ps),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize libp2p host: %w", err)
	}
	logger.Info("local node identity", zap.Stringer("identity", h.ID()))
	return Upgrade(h, logger, cfg, bootnodes), nil
}

// Upgrade wraps an already constructed libp2p host.
func Upgrade(h host.Host, logger *zap.Logger, cfg Config, bootnodes []peer.AddrInfo) *Host {
	fh := &Host{
		Host:      h,
		logger:    logger,
		cfg:       cfg,
		bootnodes: bootnodes,
		conns:     newConnections(),
	}
	h.Network().Notify(fh.conns)
	return fh
}

// Bootstrap connects to every configured bootnode. It fails only if none of
// the bootnodes are reachable.
func (fh *Host) Bootstrap(ctx context.Context) error {
	if len(fh.bootnodes) == 0 {
		return nil
	}
	var errs []error
	for _, info := range fh.bootnodes {
		if err := fh.Host.Connect(ctx, info); err != nil {
			fh.logger.Warn("failed to connect to bootnode",
				log.ZShortStringer("peer", info.ID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		fh.logger.Debug("connected to bootnode", log.ZShortStringer("peer", info.ID))
	}
	if len(errs) == len(fh.bootnodes) {
		return fmt.Errorf("no bootnodes reachable: %w", errors.Join(errs...))
	}
	return nil
}

// Dial parses a full p2p address (with /p2p/<id> component) and connects to it.
func (fh *Host) Dial(ctx context.Context, addr string) (peer.ID, error) {
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return "", fmt.Errorf("parse into peer.AddrInfo %s: %w", addr, err)
	}
	if err := fh.Host.Connect(ctx, *info); err != nil {
		return "", fmt.Errorf("connect %s: %w", info.ID, err)
	}
	return info.ID, nil
}

// ListenAddresses returns addresses that can be passed to Dial by other nodes.
func (fh *Host) ListenAddresses() ([]ma.Multiaddr, error) {
	return peer.AddrInfoToP2pAddrs(&peer.AddrInfo{
		ID:    fh.ID(),
		Addrs: fh.Addrs(),
	})
}

// Stop closes the underlying libp2p host.
func (fh *Host) Stop() error {
	if err := fh.Host.Close(); err != nil {
		return fmt.Errorf("failed to close libp2p host: %w", err)
	}
	return nil
}

func parseAddrInfos(addrs []string) ([]peer.AddrInfo, error) {
	infos := make([]peer.AddrInfo, 0, len(addrs))
	for _, addr := range addrs {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			return nil, fmt.Errorf("parse into peer.AddrInfo %s: %w", addr, err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}
