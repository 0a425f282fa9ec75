package sso

import (
	"unicode/utf8"

	"github.com/rawbytedev/sso/internal/common"
)

// Push appends r. Invalid runes are appended as utf8.RuneError.
func (s *String) Push(r rune) {
	var scratch [utf8.UTFMax]byte
	s.pushBytes(encodeRune(&scratch, r))
}

// PushStr appends text. It panics with *FromUTF8Error if text is not
// valid UTF-8.
func (s *String) PushStr(text string) {
	b := common.StringView(text)
	mustValidate(b)
	s.pushBytes(b)
}

// Append appends a borrowed view, which may come from s itself.
func (s *String) Append(o Str) {
	s.pushBytes(o.b)
}

func (s *String) pushBytes(b []byte) {
	if s.c.short() {
		if s.inline().pushBytes(b) {
			return
		}
		b = s.detach(b)
		s.promote(len(b), false)
	}
	s.heap().pushBytes(s.detach(b))
}

// Insert inserts r at byte index i, which must be a char boundary.
func (s *String) Insert(i int, r rune) {
	var scratch [utf8.UTFMax]byte
	s.insertBytes("Insert", i, encodeRune(&scratch, r))
}

// InsertStr inserts text at byte index i, which must be a char boundary.
func (s *String) InsertStr(i int, text string) {
	b := common.StringView(text)
	mustValidate(b)
	s.insertBytes("InsertStr", i, b)
}

func (s *String) insertBytes(op string, i int, b []byte) {
	b = s.detach(b)
	if s.c.short() {
		if s.inline().insertBytes(op, i, b) {
			return
		}
		s.promote(len(b), false)
	}
	s.heap().insertBytes(op, i, b)
}

// Remove deletes and returns the character at byte index i.
func (s *String) Remove(i int) rune { return s.TaggedMut().Remove(i) }

// Pop removes the last character.
func (s *String) Pop() (rune, bool) { return s.TaggedMut().Pop() }

// Truncate shortens s to n bytes. It has no effect when n >= Len and
// never changes the capacity.
func (s *String) Truncate(n int) { s.TaggedMut().Truncate(n) }

// Clear empties s, keeping its capacity.
func (s *String) Clear() { s.TaggedMut().Clear() }

// Retain keeps only the characters for which keep returns true, in order.
func (s *String) Retain(keep func(rune) bool) {
	b := s.buf()
	w := 0
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if keep(r) {
			if w != i {
				copy(b[w:], b[i:i+size])
			}
			w += size
		}
		i += size
	}
	s.setLen(w)
}

// ReplaceRange replaces the bytes in [lo, hi) with text. Both bounds must
// be char boundaries.
func (s *String) ReplaceRange(lo, hi int, text string) {
	b := common.StringView(text)
	mustValidate(b)
	checkRange("ReplaceRange", s.AsBytes(), lo, hi)
	if grow := len(b) - (hi - lo); grow > 0 {
		b = s.detach(b)
		s.Reserve(grow)
	}
	s.setLen(len(common.Splice(s.buf(), lo, hi, s.detach(b))))
}

// ExtendFromWithin appends a copy of the bytes in [lo, hi).
func (s *String) ExtendFromWithin(lo, hi int) {
	checkRange("ExtendFromWithin", s.AsBytes(), lo, hi)
	n := hi - lo
	s.Reserve(n)
	b := s.buf()
	s.setLen(len(append(b, b[lo:hi]...)))
}

// SplitOff returns a new String holding the bytes from at onward and
// truncates s to at. The two values share nothing.
func (s *String) SplitOff(at int) String {
	cur := s.AsBytes()
	checkBoundary("SplitOff", cur, at)
	tail := fromBytes(cur[at:])
	s.setLen(at)
	return String{c: tail.c}
}
