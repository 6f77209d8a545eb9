package nodeaccess

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Protocol serves positional reads of the hash tree.
const Protocol = "/antientropy/tree/1"

// Kind selects what a Request reads.
type Kind uint8

const (
	GetHash Kind = iota + 1
	GetValue
)

func (k Kind) String() string {
	switch k {
	case GetHash:
		return "hash"
	case GetValue:
		return "value"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Request reads a node hash or a leaf value at an arena position.
type Request struct {
	Kind  Kind
	Index uint32
}

func (r *Request) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("kind", r.Kind.String())
	encoder.AddUint32("index", r.Index)
	return nil
}

// HashResponse answers GetHash. GetValue is answered with raw value bytes.
type HashResponse struct {
	Hash uint64
}

// notFound is the response error for a position the peer doesn't hold.
const notFound = "not found"

type missingError struct {
	cause error
}

func (*missingError) Error() string {
	return notFound
}

func (e *missingError) Unwrap() error {
	return e.cause
}
