package sso

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"

	"github.com/rawbytedev/sso/internal/common"
	"github.com/rawbytedev/sso/pkg/alloc"
)

// FromUTF8 copies b into a new String. Invalid input yields a
// *FromUTF8Error holding b unchanged.
func FromUTF8(b []byte) (String, error) {
	if err := validate(b); err != nil {
		return String{}, err
	}
	return fromBytes(b), nil
}

// FromUTF8Lossy copies b, replacing each run of invalid bytes with U+FFFD.
func FromUTF8Lossy(b []byte) String {
	if utf8.Valid(b) {
		return fromBytes(b)
	}
	return fromBytes(bytes.ToValidUTF8(b, []byte(string(utf8.RuneError))))
}

// FromUTF8Unchecked copies b without validation. The caller guarantees b
// is valid UTF-8; every other operation assumes it.
func FromUTF8Unchecked(b []byte) String {
	return fromBytes(b)
}

// Parse builds a String from text, reporting invalid UTF-8 as an error
// rather than panicking like From.
func Parse(text string) (String, error) {
	b := common.StringView(text)
	if err := validate(b); err != nil {
		err.bytes = []byte(text)
		return String{}, err
	}
	return fromBytes(b), nil
}

// FromUTF16 decodes units. An unpaired surrogate yields a *FromUTF16Error
// holding units unchanged.
func FromUTF16(units []uint16) (String, error) {
	var s String
	s.Reserve(len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		switch {
		case !utf16.IsSurrogate(u):
			s.Push(u)
		case u < 0xDC00 && i+1 < len(units):
			r := utf16.DecodeRune(u, rune(units[i+1]))
			if r == utf8.RuneError {
				s.Free()
				return String{}, &FromUTF16Error{Units: units, Index: i}
			}
			s.Push(r)
			i++
		default:
			s.Free()
			return String{}, &FromUTF16Error{Units: units, Index: i}
		}
	}
	return String{c: s.c}, nil
}

// FromUTF16Lossy decodes units, replacing unpaired surrogates with U+FFFD.
func FromUTF16Lossy(units []uint16) String {
	var s String
	s.Reserve(len(units))
	for _, r := range utf16.Decode(units) {
		s.Push(r)
	}
	return String{c: s.c}
}

// FromUTF16Bytes decodes UTF-16 encoded bytes in the given byte order. A
// leading byte order mark overrides the order and is dropped. Malformed
// sequences decode to U+FFFD.
func FromUTF16Bytes(b []byte, bigEndian bool) (String, error) {
	order := xunicode.LittleEndian
	if bigEndian {
		order = xunicode.BigEndian
	}
	out, err := xunicode.UTF16(order, xunicode.UseBOM).NewDecoder().Bytes(b)
	if err != nil {
		return String{}, err
	}
	return fromBytes(out), nil
}

// IntoBoxedStr returns the content as an immutable Go string and leaves s
// empty. With the default allocator a Long buffer is trimmed to Len and
// handed over without copying; other allocators get their buffer back.
func (s *String) IntoBoxedStr() string {
	if s.c.short() {
		out := string(s.AsBytes())
		s.c = cell{}
		return out
	}
	h := s.heap()
	if _, ok := allocator().(alloc.Go); !ok || h.Len() == 0 {
		out := string(h.AsBytes())
		s.Free()
		return out
	}
	h.ShrinkToFit()
	out := unsafe.String((*byte)(h.ptr()), h.Len())
	s.c = cell{}
	return out
}

// Leak gives up ownership of the content and returns a view of it that
// stays valid forever. A Long buffer is never returned to the allocator.
func (s *String) Leak() Str {
	if s.c.short() {
		out := Str{b: bytes.Clone(s.AsBytes())}
		s.c = cell{}
		return out
	}
	out := s.heap().AsStr()
	s.c = cell{}
	return out
}

// NFC rewrites the content in Unicode Normalization Form C.
func (s *String) NFC() {
	cur := s.AsBytes()
	if norm.NFC.IsNormal(cur) {
		return
	}
	out := norm.NFC.Bytes(cur)
	s.Clear()
	s.pushBytes(out)
}
