package sso

import (
	"unicode/utf8"

	"github.com/rawbytedev/sso/internal/common"
	"github.com/rawbytedev/sso/internal/overlay"
)

// Inline is a view of a Short String. Its capacity is always MaxInline and
// it never allocates: a mutation that would not fit reports false and
// leaves the content as it was.
type Inline struct {
	c *cell
}

func (v Inline) Len() int               { return overlay.Read(v.c, inlineLen) }
func (v Inline) Cap() int               { return MaxInline }
func (v Inline) RemainingCapacity() int { return MaxInline - v.Len() }
func (v Inline) IsEmpty() bool          { return v.Len() == 0 }

// AsBytes returns the content. The slice aliases the String and must not
// be modified.
func (v Inline) AsBytes() []byte {
	n := v.Len()
	return v.c.raw[:n:n]
}

// buf is the content with the rest of the inline array as spare capacity.
func (v Inline) buf() []byte { return v.c.raw[:v.Len():MaxInline] }

func (v Inline) AsStr() Str { return Str{b: v.AsBytes()} }

func (v Inline) setLen(n int) { overlay.Write(v.c, inlineLen, n) }

func (v Inline) Push(r rune) bool {
	var scratch [utf8.UTFMax]byte
	return v.pushBytes(encodeRune(&scratch, r))
}

func (v Inline) PushStr(text string) bool {
	b := common.StringView(text)
	mustValidate(b)
	return v.pushBytes(b)
}

func (v Inline) pushBytes(b []byte) bool {
	n := v.Len()
	if len(b) > MaxInline-n {
		return false
	}
	copy(v.c.raw[n:MaxInline], b)
	v.setLen(n + len(b))
	return true
}

func (v Inline) Insert(i int, r rune) bool {
	var scratch [utf8.UTFMax]byte
	return v.insertBytes("Insert", i, encodeRune(&scratch, r))
}

func (v Inline) InsertStr(i int, text string) bool {
	b := common.StringView(text)
	mustValidate(b)
	return v.insertBytes("InsertStr", i, b)
}

func (v Inline) insertBytes(op string, i int, b []byte) bool {
	cur := v.buf()
	checkBoundary(op, cur, i)
	if len(b) > MaxInline-len(cur) {
		return false
	}
	out := common.Splice(cur, i, i, b)
	v.setLen(len(out))
	return true
}

// Remove deletes and returns the character starting at byte index i.
func (v Inline) Remove(i int) rune {
	cur := v.buf()
	if i >= len(cur) {
		panic(&IndexError{Op: "Remove", Index: i, Len: len(cur), Reason: "out of range"})
	}
	checkBoundary("Remove", cur, i)
	r, size := utf8.DecodeRune(cur[i:])
	v.setLen(len(common.Splice(cur, i, i+size, nil)))
	return r
}

func (v Inline) Pop() (rune, bool) {
	cur := v.AsBytes()
	if len(cur) == 0 {
		return 0, false
	}
	r, size := utf8.DecodeLastRune(cur)
	v.setLen(len(cur) - size)
	return r, true
}

// Truncate shortens the content to n bytes; n past the end is a no-op.
func (v Inline) Truncate(n int) {
	cur := v.AsBytes()
	if n >= len(cur) {
		return
	}
	checkBoundary("Truncate", cur, n)
	v.setLen(n)
}

func (v Inline) Clear() { v.setLen(0) }
