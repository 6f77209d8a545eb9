package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/go-antientropy/config"
	"github.com/spacemeshos/go-antientropy/config/presets"
)

// AddFlags binds command line flags onto cfg and returns the location of the
// config file flag.
func AddFlags(flagSet *pflag.FlagSet, cfg *config.Config) (configPath *string) {
	configPath = flagSet.StringP("config", "c", "", "load configuration from file")
	flagSet.StringVarP(&cfg.Preset, "preset", "p", cfg.Preset,
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== BaseConfig Flags ========================== **/
	flagSet.StringVarP(&cfg.DataDirParent, "data-folder", "d",
		cfg.DataDirParent, "directory for replica data")
	flagSet.StringVar(&cfg.FileLock, "filelock",
		cfg.FileLock, "filesystem lock to prevent running more than one instance on the same data")
	flagSet.StringVar(&cfg.Network, "network",
		cfg.Network, "replicas of different networks refuse to connect to each other")
	flagSet.BoolVar(&cfg.CollectMetrics, "metrics",
		cfg.CollectMetrics, "collect replica metrics")
	flagSet.StringVar(&cfg.MetricsAddress, "metrics-address",
		cfg.MetricsAddress, "address of the metrics server")
	flagSet.StringVar(&cfg.MetricsPush, "metrics-push",
		cfg.MetricsPush, "push metrics to url")
	flagSet.DurationVar(&cfg.MetricsPushPeriod, "metrics-push-period",
		cfg.MetricsPushPeriod, "push period")

	/** ======================== Logging Flags ========================== **/
	flagSet.StringVar(&cfg.Logging.Level, "log-level",
		cfg.Logging.Level, "log level (debug, info, warn, error)")
	flagSet.StringVar(&cfg.Logging.Encoder, "log-encoder",
		cfg.Logging.Encoder, "log encoder (console or json)")

	/** ======================== P2P Flags ========================== **/
	flagSet.StringSliceVar(&cfg.P2P.Listen, "listen",
		cfg.P2P.Listen, "addresses for listening")
	flagSet.StringSliceVar(&cfg.P2P.Bootnodes, "bootnodes",
		cfg.P2P.Bootnodes, "entrypoints into the network")
	flagSet.IntVar(&cfg.P2P.LowPeers, "low-peers",
		cfg.P2P.LowPeers, "low watermark for the number of connections")
	flagSet.IntVar(&cfg.P2P.HighPeers, "high-peers",
		cfg.P2P.HighPeers,
		"high watermark for the number of connections; once reached, connections are pruned until low watermark remains")
	flagSet.StringVar(&cfg.P2P.LogLevel, "p2p-log-level",
		cfg.P2P.LogLevel, "log level of the libp2p subsystems")

	/** ======================== Tree Flags ========================== **/
	flagSet.DurationVar(&cfg.Tree.FetchTimeout, "fetch-timeout",
		cfg.Tree.FetchTimeout, "timeout of a single remote read during reconciliation")
	flagSet.DurationVar(&cfg.Tree.WalkTimeout, "walk-timeout",
		cfg.Tree.WalkTimeout, "timeout of a whole reconciliation walk")
	flagSet.BoolVar(&cfg.Tree.TailProbe, "tail-probe",
		cfg.Tree.TailProbe, "detect keys that the peer holds past the end of the local tree")
	flagSet.BoolVar(&cfg.Tree.ValueHashing, "value-hashing",
		cfg.Tree.ValueHashing, "hash values into the leaves; must match on all replicas")
	flagSet.IntVar(&cfg.Tree.RequestsPerInterval, "requests-per-interval",
		cfg.Tree.RequestsPerInterval, "rate limit of served requests")

	return configPath
}
