package hashtree

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/spacemeshos/go-antientropy/hash"
)

// appendEncoded appends a canonical byte encoding of v to buf.
//
// Integers are encoded big endian in 8 bytes, signed ones with the sign bit
// flipped so that the encoding sorts like the value. Floats use their IEEE
// 754 bits, strings and byte slices are used as is. Other values fall back to
// encoding.BinaryMarshaler and then to their Go syntax representation.
func appendEncoded(buf []byte, v any) []byte {
	switch x := v.(type) {
	case []byte:
		return append(buf, x...)
	case string:
		return append(buf, x...)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return binary.BigEndian.AppendUint64(buf, uint64(rv.Int())^(1<<63))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return binary.BigEndian.AppendUint64(buf, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(rv.Float()))
	case reflect.String:
		return append(buf, rv.String()...)
	}
	if m, ok := v.(encoding.BinaryMarshaler); ok {
		if data, err := m.MarshalBinary(); err == nil {
			return append(buf, data...)
		}
	}
	return fmt.Appendf(buf, "%#v", v)
}

// keyHash is the leaf hash when only keys are hashed.
func keyHash[K any](key K) uint64 {
	return hash.Sum64(appendEncoded(nil, key))
}

// keyValueHash is the leaf hash when values are hashed along with keys.
// The key is length prefixed to keep the two fields apart.
func keyValueHash[K, V any](key K, value V) uint64 {
	k := appendEncoded(nil, key)
	buf := binary.AppendUvarint(make([]byte, 0, len(k)+binary.MaxVarintLen64), uint64(len(k)))
	buf = append(buf, k...)
	return hash.Sum64(buf, appendEncoded(nil, value))
}
