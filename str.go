package sso

import (
	"bytes"
	"iter"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/spaolacci/murmur3"

	"github.com/rawbytedev/sso/internal/common"
)

// Str is a borrowed, read-only view of valid UTF-8 bytes. A Str taken from
// a String is valid until that String is next mutated.
type Str struct {
	b []byte
}

// StrOf views text without copying.
func StrOf(text string) Str {
	b := common.StringView(text)
	mustValidate(b)
	return Str{b: b}
}

// NewStr views b without copying. b must not be modified afterwards.
func NewStr(b []byte) (Str, error) {
	if err := validate(b); err != nil {
		return Str{}, err
	}
	return Str{b: b}, nil
}

func (v Str) Len() int      { return len(v.b) }
func (v Str) IsEmpty() bool { return len(v.b) == 0 }

// Bytes returns the viewed bytes; they must not be modified.
func (v Str) Bytes() []byte { return v.b }

// String copies the view into a Go string.
func (v Str) String() string { return string(v.b) }

// ToOwned copies the view into a new String.
func (v Str) ToOwned() String { return fromBytes(v.b) }

func (v Str) Equal(o Str) bool  { return bytes.Equal(v.b, o.b) }
func (v Str) Compare(o Str) int { return bytes.Compare(v.b, o.b) }
func (v Str) RuneCount() int    { return utf8.RuneCount(v.b) }
func (v Str) Hash64() uint64    { return murmur3.Sum64(v.b) }
func (v Str) Width() int        { return runewidth.StringWidth(common.BytesView(v.b)) }

// Slice views the bytes in [lo, hi); both bounds must be char boundaries.
func (v Str) Slice(lo, hi int) Str {
	checkRange("Slice", v.b, lo, hi)
	return Str{b: v.b[lo:hi:hi]}
}

func (v Str) IsCharBoundary(i int) bool { return isCharBoundary(v.b, i) }

// Chars yields each character in order.
func (v Str) Chars() iter.Seq[rune] {
	return func(yield func(rune) bool) {
		for i := 0; i < len(v.b); {
			r, size := utf8.DecodeRune(v.b[i:])
			if !yield(r) {
				return
			}
			i += size
		}
	}
}

// CharIndices yields each character with its starting byte index.
func (v Str) CharIndices() iter.Seq2[int, rune] {
	return func(yield func(int, rune) bool) {
		for i := 0; i < len(v.b); {
			r, size := utf8.DecodeRune(v.b[i:])
			if !yield(i, r) {
				return
			}
			i += size
		}
	}
}

// Hash64 is the murmur3 hash of the content; equal content hashes equally
// in either state.
func (s *String) Hash64() uint64 { return s.AsStr().Hash64() }

// Width is the number of terminal columns the content occupies.
func (s *String) Width() int { return s.AsStr().Width() }

func (s *String) Chars() iter.Seq[rune]             { return s.AsStr().Chars() }
func (s *String) CharIndices() iter.Seq2[int, rune] { return s.AsStr().CharIndices() }
