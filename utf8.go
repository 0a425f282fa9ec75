package sso

import (
	"unicode/utf8"
)

func isCharBoundary(b []byte, i int) bool {
	if i == 0 || i == len(b) {
		return true
	}
	if i < 0 || i > len(b) {
		return false
	}
	return utf8.RuneStart(b[i])
}

// checkBoundary panics unless 0 <= i <= len(b) and i is a char boundary.
func checkBoundary(op string, b []byte, i int) {
	if i < 0 || i > len(b) {
		panic(&IndexError{Op: op, Index: i, Len: len(b), Reason: "out of range"})
	}
	if !isCharBoundary(b, i) {
		panic(&IndexError{Op: op, Index: i, Len: len(b), Reason: "is not a char boundary"})
	}
}

// checkRange panics unless b[lo:hi] is a valid range of whole characters.
func checkRange(op string, b []byte, lo, hi int) {
	if lo > hi {
		panic(&IndexError{Op: op, Index: lo, Len: len(b), Reason: "is after the range end"})
	}
	checkBoundary(op, b, lo)
	checkBoundary(op, b, hi)
}

// validate returns nil when b is valid UTF-8.
func validate(b []byte) *FromUTF8Error {
	if utf8.Valid(b) {
		return nil
	}
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			e := &FromUTF8Error{bytes: b, validUpTo: i, errorLen: 1}
			if !utf8.FullRune(b[i:]) {
				e.errorLen = 0
			}
			return e
		}
		i += size
	}
	return nil
}

// mustValidate panics with *FromUTF8Error on invalid input.
func mustValidate(b []byte) {
	if err := validate(b); err != nil {
		panic(err)
	}
}

func encodeRune(scratch *[utf8.UTFMax]byte, r rune) []byte {
	return utf8.AppendRune(scratch[:0], r)
}
