package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureOutput(tb testing.TB) *bytes.Buffer {
	tb.Helper()
	var buf bytes.Buffer
	orig := logWriter
	logWriter = &buf
	tb.Cleanup(func() { logWriter = orig })
	return &buf
}

func TestNew(t *testing.T) {
	buf := captureOutput(t)
	logger, level, err := New("test", Config{Level: "warn", Encoder: JSONEncoder})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", zap.Int("index", 3))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"index":3`)

	level.SetLevel(zapcore.DebugLevel)
	logger.Debug("now shown")
	require.Contains(t, buf.String(), "now shown")
}

func TestNewInvalid(t *testing.T) {
	_, _, err := New("test", Config{Level: "loud"})
	require.Error(t, err)
	_, _, err = New("test", Config{Level: "info", Encoder: "xml"})
	require.ErrorContains(t, err, "unknown log encoder")
}

func TestFatalError(t *testing.T) {
	reason := errors.New("disk full")
	err := ErrOpenDatabase(reason)
	require.ErrorIs(t, err, reason)
	require.Equal(t, "could not open database: disk full", err.Error())

	err = ErrEnsureDataDir("/tmp/x", "denied")
	require.Equal(t, "could not open/create data dir /tmp/x: denied", err.Error())

	buf := captureOutput(t)
	logger, _, lerr := New("test", Config{Level: "info", Encoder: JSONEncoder})
	require.NoError(t, lerr)
	logger.Error("startup failed", zap.Inline(err))
	require.Contains(t, buf.String(), `"code":"ERR_ENSURE_DATA_DIR"`)
}

func TestShortStringer(t *testing.T) {
	f := ZShortStringer("peer", stringer("12D3KooWabcdefghijk"))
	require.Equal(t, "12D3K..ijk", f.Interface.(interface{ String() string }).String())
}

type stringer string

func (s stringer) String() string { return string(s) }
