package replica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/cmd"
	"github.com/spacemeshos/go-antientropy/config"
	"github.com/spacemeshos/go-antientropy/config/presets"
	"github.com/spacemeshos/go-antientropy/log"
	"github.com/spacemeshos/go-antientropy/reconcile"
)

// GetCommand returns the root command of the replica.
func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	c := &cobra.Command{
		Use:           "antientropy",
		Short:         "key/value replica with merkle tree reconciliation",
		SilenceErrors: true,
	}
	configPath := cmd.AddFlags(c.PersistentFlags(), &conf)

	c.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "serve the local tree to peers",
		RunE: func(c *cobra.Command, args []string) error {
			return run(c, *configPath, &conf, func(ctx context.Context, app *App) error {
				return app.Serve(ctx, c.OutOrStdout())
			})
		},
	})

	var peerAddr string
	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "find the first key on which the local replica and a peer differ",
		RunE: func(c *cobra.Command, args []string) error {
			return run(c, *configPath, &conf, func(ctx context.Context, app *App) error {
				res, err := app.Diff(ctx, peerAddr)
				if err != nil {
					return err
				}
				return report(c.OutOrStdout(), res)
			})
		},
	}
	diffCmd.Flags().StringVar(&peerAddr, "peer", "", "full p2p address of the peer (/ip4/.../tcp/.../p2p/<id>)")
	diffCmd.MarkFlagRequired("peer")
	c.AddCommand(diffCmd)

	c.AddCommand(&cobra.Command{
		Use:   "load key=value...",
		Short: "write keys into the local database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			pairs, err := parsePairs(args)
			if err != nil {
				return err
			}
			return run(c, *configPath, &conf, func(_ context.Context, app *App) error {
				if err := app.Put(pairs); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "loaded %d keys\n", len(pairs))
				return nil
			})
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "print the hash tree of the local database",
		RunE: func(c *cobra.Command, args []string) error {
			return run(c, *configPath, &conf, func(ctx context.Context, app *App) error {
				tree, err := app.Tree(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "leaves: %d root: %016x\n", tree.Len(), tree.RootHash())
				fmt.Fprint(c.OutOrStdout(), tree.String())
				return nil
			})
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintf(c.OutOrStdout(), "%s+%s+%s\n", cmd.Version, cmd.Branch, cmd.Commit)
		},
	})
	return c
}

func run(c *cobra.Command, configPath string, conf *config.Config, fn func(context.Context, *App) error) error {
	if err := configure(c, configPath, conf); err != nil {
		return err
	}
	logger, _, err := log.New("replica", conf.Logging)
	if err != nil {
		return log.ErrMalformedConfig(err)
	}
	defer logger.Sync()

	// Don't print usage on error from this point forward
	c.SilenceUsage = true

	app := New(WithConfig(conf), WithLog(logger))
	err = func() error {
		if err := app.Lock(); err != nil {
			return err
		}
		defer app.Unlock()
		if err := app.Initialize(); err != nil {
			return err
		}
		defer app.Cleanup()

		// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
		ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return fn(ctx, app)
	}()
	var fatal *log.FatalError
	switch {
	case err == nil:
	case errors.As(err, &fatal):
		logger.Error("replica failed to start", zap.String("command", c.Name()), zap.Inline(fatal))
	default:
		logger.Debug("command failed", zap.String("command", c.Name()), zap.Error(err))
	}
	return err
}

// configure loads the preset and the config file into conf. Flags set on the
// command line take precedence over both.
func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	changed := cmd.SaveChanged(c.Flags())
	if err := loadConfig(conf, conf.Preset, configPath); err != nil {
		return log.ErrMalformedConfig(err)
	}
	if err := changed.Apply(); err != nil {
		return log.ErrBadFlags(err)
	}
	if err := conf.Tree.Validate(); err != nil {
		return log.ErrBadFlags(err)
	}
	return nil
}

// loadConfig loads config and preset (if provided) into the provided config.
// It first loads the preset and then overrides it with values from the config file.
func loadConfig(cfg *config.Config, preset, path string) error {
	v := viper.New()
	if err := config.LoadConfig(path, v); err != nil {
		return err
	}
	if len(preset) == 0 && v.IsSet("preset") {
		preset = v.GetString("preset")
	}
	if len(preset) > 0 {
		p, err := presets.Get(preset)
		if err != nil {
			return err
		}
		*cfg = p
	}
	if err := v.Unmarshal(cfg, config.DecoderOptions()...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func parsePairs(args []string) (map[string][]byte, error) {
	pairs := make(map[string][]byte, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if _, exist := pairs[key]; exist {
			return nil, fmt.Errorf("key %q given more than once", key)
		}
		pairs[key] = []byte(value)
	}
	return pairs, nil
}

func report(w io.Writer, res *reconcile.Result[string, []byte]) error {
	status := res.Status()
	fmt.Fprintf(w, "status: %s fetches: %d duration: %s\n", status, res.Fetches, res.Duration)
	if d := res.Divergence; d != nil {
		fmt.Fprintf(w, "key: %s\nlocal: %q\n", d.Key, d.Value)
		switch {
		case d.RemoteMissing:
			fmt.Fprintln(w, "remote: missing")
		default:
			fmt.Fprintf(w, "remote: %q\n", d.RemoteValue)
		}
		if !d.Confirmed {
			fmt.Fprintln(w, "unconfirmed: hashes differ but no differing value was found")
		}
	}
	if res.RemoteAhead {
		fmt.Fprintln(w, "remote holds keys past the end of the local tree")
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "failed: %v\n", f)
	}
	switch status {
	case reconcile.StatusDiverged:
		return ErrDiverged
	case reconcile.StatusInconclusive:
		return ErrInconclusive
	}
	return nil
}
