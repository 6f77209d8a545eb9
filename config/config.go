// Package config contains the replica configuration definitions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spacemeshos/go-antientropy/database"
	"github.com/spacemeshos/go-antientropy/filesystem"
	"github.com/spacemeshos/go-antientropy/log"
	"github.com/spacemeshos/go-antientropy/nodeaccess"
	"github.com/spacemeshos/go-antientropy/p2p"
)

const (
	defaultConfigFileName = "./config.toml"
	defaultDataDirName    = "antientropy"
	defaultNetwork        = "devnet"
)

var defaultDataDir = filepath.Join(filesystem.GetUserHomeDirectory(), defaultDataDirName)

// Config defines the top level configuration of a replica.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Preset     string            `mapstructure:"preset"`
	P2P        p2p.Config        `mapstructure:"p2p"`
	Tree       nodeaccess.Config `mapstructure:"tree"`
	Database   database.Config   `mapstructure:"database"`
	Logging    log.Config        `mapstructure:"logging"`
}

// BaseConfig defines the options shared by all commands.
type BaseConfig struct {
	DataDirParent string `mapstructure:"data-folder"`
	FileLock      string `mapstructure:"filelock"`
	ConfigFile    string `mapstructure:"config"`

	// Network separates replica sets. Replicas of different networks can't
	// connect to each other.
	Network string `mapstructure:"network"`

	CollectMetrics    bool              `mapstructure:"metrics"`
	MetricsAddress    string            `mapstructure:"metrics-address"`
	MetricsPush       string            `mapstructure:"metrics-push"`
	MetricsPushPeriod time.Duration     `mapstructure:"metrics-push-period"`
	MetricsPushHeader map[string]string `mapstructure:"metrics-push-header"`
}

// DataDir returns the absolute path to use for the replica's data, a
// subfolder of the configured data folder named after the network.
func (cfg *Config) DataDir() string {
	return filepath.Join(filesystem.GetCanonicalPath(cfg.DataDirParent), cfg.Network)
}

// DatabasePath is the location of the leveldb store.
func (cfg *Config) DatabasePath() string {
	return filepath.Join(cfg.DataDir(), "leveldb")
}

// DefaultConfig returns the default configuration of a replica.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		P2P:        p2p.DefaultConfig(),
		Tree:       nodeaccess.DefaultConfig(),
		Database:   database.DefaultConfig(),
		Logging:    log.DefaultConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		DataDirParent:     defaultDataDir,
		FileLock:          filepath.Join(defaultDataDir, "LOCK"),
		ConfigFile:        defaultConfigFileName,
		Network:           defaultNetwork,
		MetricsAddress:    "127.0.0.1:1010",
		MetricsPushPeriod: time.Minute,
	}
}

// LoadConfig reads the config file into vip. A missing default config file is
// not an error.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		fileLocation = defaultConfigFileName
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		if fileLocation == defaultConfigFileName && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %w", err)
	}
	return nil
}

// DecoderOptions are used to unmarshal the config file into Config.
func DecoderOptions() []viper.DecoderConfigOption {
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	return []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		WithZeroFields(),
		WithIgnoreUntagged(),
		WithErrorUnused(),
	}
}

func WithZeroFields() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ZeroFields = true
	}
}

func WithIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func WithErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}
