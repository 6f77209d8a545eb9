// Package log builds the process logger and holds shared logging helpers.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ConsoleEncoder = "console"
	JSONEncoder    = "json"
)

// where logs go by default.
var logWriter io.Writer = os.Stdout

// Config selects the level and the format of the process logger.
type Config struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

// DefaultConfig logs at info level in console format.
func DefaultConfig() Config {
	return Config{
		Level:   zapcore.InfoLevel.String(),
		Encoder: ConsoleEncoder,
	}
}

// New creates a logger from the config. The returned level can be changed
// while the logger is in use.
func New(name string, cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, level, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	var encoder zapcore.Encoder
	switch cfg.Encoder {
	case ConsoleEncoder, "":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case JSONEncoder:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, level, fmt.Errorf("unknown log encoder %q", cfg.Encoder)
	}
	return NewWithLevel(name, level, encoder), level, nil
}

// NewWithLevel creates a logger with a fixed level and with a set of (optional) hooks.
func NewWithLevel(module string,
	level zap.AtomicLevel,
	encoder zapcore.Encoder,
	hooks ...func(zapcore.Entry) error,
) *zap.Logger {
	consoleSyncer := zapcore.AddSync(logWriter)
	core := zapcore.NewCore(encoder, consoleSyncer, level)
	return zap.New(zapcore.RegisterHooks(core, hooks...)).Named(module)
}

// ZShortStringer is a zap field for values whose String is too long to log as
// is, such as peer IDs.
func ZShortStringer(name string, val fmt.Stringer) zap.Field {
	return zap.Stringer(name, shortStringer{val})
}

type shortStringer struct {
	fmt.Stringer
}

func (s shortStringer) String() string {
	str := s.Stringer.String()
	if len(str) <= 10 {
		return str
	}
	return str[:5] + ".." + str[len(str)-3:]
}
