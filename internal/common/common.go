package common

import (
	"unsafe"
)

// MaxVarintLen is the longest uvarint encoding of a uint64.
const MaxVarintLen = 10

// WriteVarUintTo appends varint-encoded x to dst using a small stack scratch.
func WriteVarUintTo(dst []byte, x uint64) []byte {
	var scratch [MaxVarintLen]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(dst, scratch[:i]...)
}

// VarUintLen is the number of bytes WriteVarUintTo emits for x.
func VarUintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// A truncated or overlong encoding reports 0 bytes consumed.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == MaxVarintLen {
			return 0, 0
		}
		if i == MaxVarintLen-1 && c > 1 {
			return 0, 0
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}

// BytesView aliases b as a string without copying. b must not be modified
// while the string is in use.
func BytesView(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringView aliases s as a read-only byte slice without copying.
func StringView(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Splice replaces b[lo:hi] with src in place. b must have room for the
// result within its capacity; the returned slice has the new length.
// src must not overlap b[lo:].
func Splice(b []byte, lo, hi int, src []byte) []byte {
	n := len(b) - (hi - lo) + len(src)
	out := b[:max(n, len(b))]
	copy(out[lo+len(src):], b[hi:])
	copy(out[lo:], src)
	return out[:n]
}
