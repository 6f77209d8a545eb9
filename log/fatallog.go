package log

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Start-up failures. Codes are stable and meant for operators.
var (
	ErrMalformedConfig = fatalWithReason("ERR_MALFORMED_CONFIG", "config file is malformed")
	ErrBadFlags        = fatalWithReason("ERR_BAD_FLAGS", "bad CLI flags")
	ErrEnsureDataDir   = fatalWithArgs("ERR_ENSURE_DATA_DIR", "could not open/create data dir %v: %v")
	ErrLockDataDir     = fatalWithReason("ERR_LOCK_DATA_DIR", "could not lock data dir")
	ErrOpenDatabase    = fatalWithReason("ERR_OPEN_DATABASE", "could not open database")
	ErrStartHost       = fatalWithReason("ERR_START_HOST", "could not start p2p host")
	ErrLoadTree        = fatalWithReason("ERR_LOAD_TREE", "could not load hash tree")
)

// FatalError stops the replica before it starts serving.
type FatalError struct {
	Code   string
	Text   string
	Args   []any
	Reason error
}

func fatalWithArgs(code, text string) func(args ...any) *FatalError {
	return func(args ...any) *FatalError {
		return &FatalError{Code: code, Text: text, Args: args}
	}
}

func fatalWithReason(code, text string) func(reason error) *FatalError {
	return func(reason error) *FatalError {
		return &FatalError{Code: code, Text: text, Reason: reason}
	}
}

func (fe *FatalError) Error() string {
	switch {
	case fe.Reason != nil:
		return fmt.Sprintf("%s: %v", fe.Text, fe.Reason)
	case len(fe.Args) != 0:
		return fmt.Sprintf(fe.Text, fe.Args...)
	default:
		return fe.Text
	}
}

func (fe *FatalError) Unwrap() error {
	return fe.Reason
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (fe *FatalError) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("code", fe.Code)
	encoder.AddString("error", fe.Error())
	if len(fe.Args) == 0 {
		return nil
	}
	return encoder.AddArray("args", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, arg := range fe.Args {
			if err := arr.AppendReflected(arg); err != nil {
				return err
			}
		}
		return nil
	}))
}
