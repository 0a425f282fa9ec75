package sso

import (
	"iter"
	"unicode/utf8"

	"github.com/rawbytedev/sso/internal/common"
)

// Drain yields the characters of a byte range of a String, one at a time.
// The range is removed from the String once the sequence is exhausted or
// Close is called, whichever comes first. The String must not be used
// while a Drain over it is open.
type Drain struct {
	s      *String
	lo, hi int
	pos    int
	closed bool
}

// Drain starts draining the bytes in [lo, hi). Both bounds must be char
// boundaries.
func (s *String) Drain(lo, hi int) *Drain {
	checkRange("Drain", s.AsBytes(), lo, hi)
	return &Drain{s: s, lo: lo, hi: hi, pos: lo}
}

// Next returns the next character of the range. After the last one it
// removes the range and reports false.
func (d *Drain) Next() (rune, bool) {
	if d.closed {
		return 0, false
	}
	if d.pos >= d.hi {
		d.Close()
		return 0, false
	}
	r, size := utf8.DecodeRune(d.s.AsBytes()[d.pos:d.hi])
	d.pos += size
	return r, true
}

// Remaining is the part of the range not yet yielded.
func (d *Drain) Remaining() Str {
	if d.closed {
		return Str{}
	}
	return Str{b: d.s.AsBytes()[d.pos:d.hi]}
}

// Close removes the whole range, yielded or not. It is idempotent.
func (d *Drain) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.s.setLen(len(common.Splice(d.s.buf(), d.lo, d.hi, nil)))
}

// All returns the remaining characters as a sequence and closes the drain
// when iteration ends, including on early break.
func (d *Drain) All() iter.Seq[rune] {
	return func(yield func(rune) bool) {
		defer d.Close()
		for {
			r, ok := d.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}
