// Package hash provides the 64-bit digests used by the hash tree.
package hash

import (
	"encoding/binary"
)

// Size is the size of a digest in bytes.
const Size = 8

// Sum64 returns the blake3 digest of the concatenated chunks, truncated to
// 64 bits (little endian).
func Sum64(chunks ...[]byte) uint64 {
	h := GetHasher()
	defer PutHasher(h)
	for _, chunk := range chunks {
		h.Write(chunk)
	}
	var out [32]byte
	h.Sum(out[:0])
	return binary.LittleEndian.Uint64(out[:Size])
}

// Combine returns the digest of an internal node with the given children
// digests. The order of the arguments matters.
func Combine(left, right uint64) uint64 {
	var buf [2 * Size]byte
	binary.LittleEndian.PutUint64(buf[:Size], left)
	binary.LittleEndian.PutUint64(buf[Size:], right)
	return Sum64(buf[:])
}
