// Package replica runs a key/value replica that serves its hash tree to peers
// and reconciles against them.
package replica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-antientropy/config"
	"github.com/spacemeshos/go-antientropy/database"
	"github.com/spacemeshos/go-antientropy/filesystem"
	"github.com/spacemeshos/go-antientropy/hashtree"
	"github.com/spacemeshos/go-antientropy/log"
	"github.com/spacemeshos/go-antientropy/metrics"
	"github.com/spacemeshos/go-antientropy/nodeaccess"
	"github.com/spacemeshos/go-antientropy/p2p"
	"github.com/spacemeshos/go-antientropy/p2p/server"
	"github.com/spacemeshos/go-antientropy/reconcile"
)

var (
	// ErrDiverged is returned by diff when the replicas differ.
	ErrDiverged = errors.New("replicas diverged")
	// ErrInconclusive is returned by diff when the walk couldn't complete.
	ErrInconclusive = errors.New("reconciliation inconclusive")
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrDiverged):
		return 2
	case errors.Is(err, ErrInconclusive):
		return 3
	default:
		return 1
	}
}

// Option to modify an App instance.
type Option func(app *App)

// WithConfig overwrites default App config.
func WithConfig(conf *config.Config) Option {
	return func(app *App) {
		app.Config = conf
	}
}

// WithLog enables logger for an App.
func WithLog(logger *zap.Logger) Option {
	return func(app *App) {
		app.log = logger
	}
}

// App wires the storage, the libp2p host and the tree service of a replica.
type App struct {
	Config *config.Config

	log      *zap.Logger
	fileLock *flock.Flock
	db       *database.LDBDatabase
	host     *p2p.Host
	svc      *nodeaccess.Service
}

// New creates an App.
func New(opts ...Option) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config: &defaultConfig,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Lock locks the app for exclusive use. It returns an error if the app is already locked.
func (app *App) Lock() error {
	lockDir := filepath.Dir(app.Config.FileLock)
	if _, err := os.Stat(lockDir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(lockDir, filesystem.OwnerReadWriteExec); err != nil {
			return log.ErrLockDataDir(fmt.Errorf("creating dir %s for lock %s: %w", lockDir, app.Config.FileLock, err))
		}
	}
	fl := flock.New(app.Config.FileLock)
	locked, err := fl.TryLock()
	if err != nil {
		return log.ErrLockDataDir(fmt.Errorf("flock %s: %w", app.Config.FileLock, err))
	} else if !locked {
		return log.ErrLockDataDir(fmt.Errorf("only one replica should be running (locking file %s)", fl.Path()))
	}
	app.fileLock = fl
	return nil
}

// Unlock unlocks the app. It is a no-op if the app is not locked.
func (app *App) Unlock() {
	if app.fileLock == nil {
		return
	}
	if err := app.fileLock.Unlock(); err != nil {
		app.log.Error("failed to unlock file",
			zap.String("path", app.fileLock.Path()),
			zap.Error(err),
		)
	}
}

// Initialize ensures the data directory exists and opens the database.
func (app *App) Initialize() error {
	if err := filesystem.ExistOrCreate(app.Config.DataDir()); err != nil {
		return log.ErrEnsureDataDir(app.Config.DataDir(), err)
	}
	db, err := database.Open(app.Config.DatabasePath(), app.Config.Database, app.log.Named("db"))
	if err != nil {
		return log.ErrOpenDatabase(err)
	}
	app.db = db
	return nil
}

func (app *App) startHost(ctx context.Context) error {
	cfg := app.Config.P2P
	cfg.DataDir = app.Config.DataDir()
	h, err := p2p.New(ctx, app.log.Named("p2p"), cfg, []byte(app.Config.Network))
	if err != nil {
		return log.ErrStartHost(err)
	}
	app.host = h
	app.svc = nodeaccess.New(h,
		nodeaccess.WithLogger(app.log.Named("tree")),
		nodeaccess.WithConfig(app.Config.Tree),
		nodeaccess.WithServerOpts(server.WithMetrics()),
	)
	if _, err := app.svc.Load(ctx, app.db); err != nil {
		return log.ErrLoadTree(err)
	}
	return nil
}

// Serve serves the local tree until ctx is done. Listen addresses are
// written to out.
func (app *App) Serve(ctx context.Context, out io.Writer) error {
	if err := app.startHost(ctx); err != nil {
		return err
	}
	addrs, err := app.host.ListenAddresses()
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		app.log.Info("listening", zap.Stringer("address", addr))
		fmt.Fprintln(out, addr)
	}
	if app.Config.CollectMetrics {
		srv := metrics.StartMetricsServer(app.log.Named("metrics"), app.Config.MetricsAddress)
		defer srv.Close()
	}
	if app.Config.MetricsPush != "" {
		metrics.StartPushingMetrics(ctx, app.log.Named("metrics"),
			app.Config.MetricsPush,
			app.Config.MetricsPushHeader,
			app.Config.MetricsPushPeriod,
			app.host.ID().ShortString(),
		)
	}
	var eg errgroup.Group
	eg.Go(func() error {
		return app.svc.Run(ctx)
	})
	if err := app.host.Bootstrap(ctx); err != nil {
		app.log.Warn("bootstrap failed", zap.Error(err))
	}
	return eg.Wait()
}

// Diff reconciles the local tree against the replica at addr.
func (app *App) Diff(ctx context.Context, addr string) (*reconcile.Result[string, []byte], error) {
	if err := app.startHost(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	var eg errgroup.Group
	eg.Go(func() error {
		return app.svc.Run(ctx)
	})
	defer func() {
		cancel()
		eg.Wait()
	}()
	pid, err := app.host.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return app.svc.Reconcile(ctx, pid)
}

// Put writes pairs into the local database.
func (app *App) Put(pairs map[string][]byte) error {
	return app.db.PutAll(pairs)
}

// Tree builds the hash tree from the local database.
func (app *App) Tree(ctx context.Context) (*hashtree.Tree[string, []byte], error) {
	var opts []hashtree.Opt
	if app.Config.Tree.ValueHashing {
		opts = append(opts, hashtree.WithValueHashing())
	}
	tree := hashtree.New[string, []byte](opts...)
	if _, err := database.LoadTree(ctx, app.db, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Cleanup stops all app services.
func (app *App) Cleanup() {
	if app.host != nil {
		if err := app.host.Stop(); err != nil {
			app.log.Warn("failed to stop host", zap.Error(err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.log.Warn("failed to close database", zap.Error(err))
		}
	}
}
