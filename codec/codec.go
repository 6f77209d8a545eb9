// Package codec encodes wire messages with SCALE.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/spacemeshos/go-scale"
)

// Encodable is implemented by every message sent over the wire.
type Encodable = scale.Encodable

// Decodable is implemented by pointers to every message read from the wire.
type Decodable = scale.Decodable

// EncodeTo encodes value to a writer stream.
func EncodeTo(w io.Writer, value Encodable) (int, error) {
	return value.EncodeScale(scale.NewEncoder(w))
}

// DecodeFrom decodes a value using data from a reader stream.
func DecodeFrom(r io.Reader, value Decodable) (int, error) {
	return value.DecodeScale(scale.NewDecoder(r))
}

var encoderPool = sync.Pool{
	New: func() any {
		b := new(bytes.Buffer)
		b.Grow(64)
		return b
	},
}

func getEncoderBuffer() *bytes.Buffer {
	return encoderPool.Get().(*bytes.Buffer)
}

func putEncoderBuffer(b *bytes.Buffer) {
	b.Reset()
	encoderPool.Put(b)
}

// Encode value to a byte buffer.
func Encode(value Encodable) ([]byte, error) {
	b := getEncoderBuffer()
	defer putEncoderBuffer(b)
	if _, err := EncodeTo(b, value); err != nil {
		return nil, err
	}
	return bytes.Clone(b.Bytes()), nil
}

// MustEncode encodes a value and panics on error.
func MustEncode(value Encodable) []byte {
	buf, err := Encode(value)
	if err != nil {
		panic(err)
	}
	return buf
}

// Decode value from a byte buffer. Trailing bytes are an error.
func Decode(buf []byte, value Decodable) error {
	r := bytes.NewReader(buf)
	if _, err := DecodeFrom(r, value); err != nil {
		return fmt.Errorf("decode from buffer: %w", err)
	}
	if r.Len() != 0 {
		return fmt.Errorf("decode from buffer: %d trailing bytes", r.Len())
	}
	return nil
}
