// Package sso implements String, a growable UTF-8 string with small string
// optimization.
//
// A String occupies three machine words, the same as a []byte header.
// Content of up to MaxInline bytes is stored inside those words (the Short
// state); longer content lives in a heap buffer obtained from the package
// allocator (the Long state). Which layout is active is derived from the
// last byte of the value, so no separate discriminant is stored.
//
// The zero String is empty and ready to use. A String owns its buffer: do
// not copy a String value after first use. Use Clone for a deep copy and
// Take to move ownership.
package sso

import (
	"bytes"
	"unicode/utf8"
	"unsafe"

	"github.com/rawbytedev/sso/internal/common"
	"github.com/rawbytedev/sso/internal/overlay"
	"github.com/rawbytedev/sso/pkg/alloc"
)

type String struct {
	_ noCopy
	c cell
}

// noCopy lets go vet's copylocks check flag String values copied after
// first use.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Repr is a read-only view of the active layout: a ShortRef or a LongRef.
type Repr interface {
	Len() int
	Cap() int
	RemainingCapacity() int
	AsStr() Str
}

// ReprMut is a mutable view of the active layout: an Inline or a Heap.
// Operations whose results differ between layouts (Push reports "does not
// fit" on Inline) are reached by a type switch.
type ReprMut interface {
	Repr
	AsBytes() []byte
	Remove(i int) rune
	Pop() (rune, bool)
	Truncate(n int)
	Clear()
}

// ShortRef is the read-only view of a Short String.
type ShortRef struct{ v Inline }

func (r ShortRef) Len() int               { return r.v.Len() }
func (r ShortRef) Cap() int               { return r.v.Cap() }
func (r ShortRef) RemainingCapacity() int { return r.v.RemainingCapacity() }
func (r ShortRef) AsStr() Str             { return r.v.AsStr() }

// LongRef is the read-only view of a Long String.
type LongRef struct{ v Heap }

func (r LongRef) Len() int               { return r.v.Len() }
func (r LongRef) Cap() int               { return r.v.Cap() }
func (r LongRef) RemainingCapacity() int { return r.v.RemainingCapacity() }
func (r LongRef) AsStr() Str             { return r.v.AsStr() }

var (
	_ ReprMut = Inline{}
	_ ReprMut = Heap{}
	_ Repr    = ShortRef{}
	_ Repr    = LongRef{}
)

// New returns an empty Short String.
func New() String { return String{} }

// WithCapacity returns an empty String that can hold n bytes without
// reallocating. n <= MaxInline stays Short.
func WithCapacity(n int) String {
	var s String
	if n > MaxInline {
		s.promote(n, true)
	}
	return String{c: s.c}
}

// From copies text, which must be valid UTF-8, into a new String.
func From(text string) String {
	b := common.StringView(text)
	mustValidate(b)
	return fromBytes(b)
}

// fromBytes copies b without validating it. Long results are sized exactly.
func fromBytes(b []byte) String {
	if len(b) <= MaxInline {
		return String{c: shortCell(b)}
	}
	var s String
	s.promote(len(b), true)
	s.heap().pushBytes(b)
	return String{c: s.c}
}

func (s *String) inline() Inline { return Inline{c: &s.c} }
func (s *String) heap() Heap     { return Heap{c: &s.c} }

func (s *String) IsShort() bool { return s.c.short() }
func (s *String) IsLong() bool  { return !s.c.short() }

// Tagged returns a read-only view of the active layout.
func (s *String) Tagged() Repr {
	if s.c.short() {
		return ShortRef{v: s.inline()}
	}
	return LongRef{v: s.heap()}
}

// TaggedMut returns a mutable view of the active layout, an Inline or a
// Heap. The view is valid until the String changes layout.
func (s *String) TaggedMut() ReprMut {
	if s.c.short() {
		return s.inline()
	}
	return s.heap()
}

func (s *String) Len() int {
	if s.c.short() {
		return s.inline().Len()
	}
	return s.heap().Len()
}

func (s *String) Cap() int {
	if s.c.short() {
		return MaxInline
	}
	return s.heap().Cap()
}

func (s *String) RemainingCapacity() int { return s.Cap() - s.Len() }
func (s *String) IsEmpty() bool          { return s.Len() == 0 }

// AsBytes returns the content. It is valid until the next mutation and
// must not be modified.
func (s *String) AsBytes() []byte { return s.TaggedMut().AsBytes() }

// AsStr borrows the content; the view is valid until the next mutation.
func (s *String) AsStr() Str { return Str{b: s.AsBytes()} }

// String returns a copy of the content.
func (s *String) String() string { return string(s.AsBytes()) }

// buf is the content with the spare capacity of the active layout.
func (s *String) buf() []byte {
	if s.c.short() {
		return s.inline().buf()
	}
	return s.heap().buf()
}

func (s *String) setLen(n int) {
	if s.c.short() {
		s.inline().setLen(n)
		return
	}
	s.heap().setLen(n)
}

// aliases reports whether b points into the storage of s.
func (s *String) aliases(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	full := s.buf()
	full = full[:cap(full)]
	if len(full) == 0 {
		return false
	}
	start := uintptr(unsafe.Pointer(unsafe.SliceData(full)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return p >= start && p < start+uintptr(len(full))
}

// detach copies b when it points into s, so a reallocation or a shift of
// s cannot corrupt it.
func (s *String) detach(b []byte) []byte {
	if s.aliases(b) {
		return bytes.Clone(b)
	}
	return b
}

// promote moves a Short String to a heap buffer with room for additional
// more bytes. The new cell is built completely before it replaces the old.
func (s *String) promote(additional int, exact bool) {
	if err := s.tryPromote(additional, exact); err != nil {
		panic(err)
	}
}

func (s *String) tryPromote(additional int, exact bool) *TryReserveError {
	cur := s.inline().AsBytes()
	if additional < 0 {
		return capacityOverflow("negative reservation %d", additional)
	}
	if additional > alloc.MaxSize-len(cur) {
		return capacityOverflow("%d + %d bytes", len(cur), additional)
	}
	required := len(cur) + additional
	capacity := required
	if !exact {
		capacity = grownCap(MaxInline, required, false)
	}
	l, err := alloc.Bytes(capacity)
	if err != nil {
		return newTryReserveError(err)
	}
	p, err := allocator().Allocate(l)
	if err != nil {
		return newTryReserveError(err)
	}
	copy(unsafe.Slice((*byte)(p), capacity), cur)
	overlay.With(&s.c, longCell(p, len(cur), capacity), nil)
	return nil
}

// demote moves a Long String whose content fits back inline and releases
// its buffer.
func (s *String) demote() {
	old := s.heap()
	p, c := old.ptr(), old.Cap()
	overlay.With(&s.c, shortCell(old.AsBytes()), nil)
	if c > 0 {
		if err := allocator().Deallocate(p, bytesLayout(c)); err != nil {
			panic(err)
		}
	}
}

// Clone returns an independent deep copy. Long content is copied into a
// buffer of exactly Len bytes, or inline when it fits.
func (s *String) Clone() String {
	return fromBytes(s.AsBytes())
}

// CloneWithAdditionalCapacity is Clone with room for n more bytes.
func (s *String) CloneWithAdditionalCapacity(n int) String {
	b := s.AsBytes()
	if n < 0 {
		panic(capacityOverflow("negative reservation %d", n))
	}
	if n <= MaxInline-len(b) {
		return String{c: shortCell(b)}
	}
	var out String
	out.promote(len(b)+n, true)
	out.heap().pushBytes(b)
	return String{c: out.c}
}

// Take moves the content into the returned String and leaves s empty.
func (s *String) Take() String {
	c := s.c
	s.c = cell{}
	return String{c: c}
}

// Free releases the heap buffer, if any, and leaves s empty. Calling it
// again is a no-op.
func (s *String) Free() {
	if !s.c.short() {
		s.heap().release()
	}
	s.c = cell{}
}

func (s *String) Equal(o *String) bool      { return bytes.Equal(s.AsBytes(), o.AsBytes()) }
func (s *String) EqualStr(o Str) bool       { return bytes.Equal(s.AsBytes(), o.b) }
func (s *String) EqualString(o string) bool { return string(s.AsBytes()) == o }

// Compare orders by content bytes, like strings.Compare.
func (s *String) Compare(o *String) int { return bytes.Compare(s.AsBytes(), o.AsBytes()) }

func (s *String) IsCharBoundary(i int) bool { return isCharBoundary(s.AsBytes(), i) }

// Write appends p, which must be valid UTF-8; otherwise nothing is written
// and a *FromUTF8Error is returned.
func (s *String) Write(p []byte) (int, error) {
	if err := validate(p); err != nil {
		return 0, err
	}
	s.pushBytes(p)
	return len(p), nil
}

func (s *String) WriteString(text string) (int, error) {
	return s.Write(common.StringView(text))
}

// WriteRune appends r; invalid runes are written as utf8.RuneError.
func (s *String) WriteRune(r rune) (int, error) {
	var scratch [utf8.UTFMax]byte
	b := encodeRune(&scratch, r)
	s.pushBytes(b)
	return len(b), nil
}
