package sso

import (
	"math"
	"unicode/utf8"
	"unsafe"

	"github.com/rawbytedev/sso/internal/common"
	"github.com/rawbytedev/sso/internal/overlay"
	"github.com/rawbytedev/sso/pkg/alloc"
)

// Heap is a view of a Long String. Its buffer comes from the package
// allocator; capacity 0 is represented by alloc.Dangling.
type Heap struct {
	c *cell
}

func (v Heap) Len() int               { return overlay.Read(v.c, heapLen) }
func (v Heap) Cap() int               { return overlay.Read(v.c, heapCap) }
func (v Heap) RemainingCapacity() int { return v.Cap() - v.Len() }
func (v Heap) IsEmpty() bool          { return v.Len() == 0 }

func (v Heap) ptr() unsafe.Pointer { return overlay.Read(v.c, heapPtr) }

// buf is the content with the rest of the buffer as spare capacity.
func (v Heap) buf() []byte {
	return unsafe.Slice((*byte)(v.ptr()), v.Cap())[:v.Len()]
}

// AsBytes returns the content. The slice aliases the String and must not
// be modified.
func (v Heap) AsBytes() []byte {
	b := v.buf()
	return b[:len(b):len(b)]
}

func (v Heap) AsStr() Str { return Str{b: v.AsBytes()} }

func (v Heap) setLen(n int) { overlay.Write(v.c, heapLen, n) }

// Reserve makes room for at least additional more bytes. When it has to
// grow, capacity at least doubles.
func (v Heap) Reserve(additional int) {
	if err := v.reserve(additional, false); err != nil {
		panic(err)
	}
}

// ReserveExact makes room for exactly additional more bytes.
func (v Heap) ReserveExact(additional int) {
	if err := v.reserve(additional, true); err != nil {
		panic(err)
	}
}

func (v Heap) TryReserve(additional int) error {
	if err := v.reserve(additional, false); err != nil {
		return err
	}
	return nil
}

func (v Heap) TryReserveExact(additional int) error {
	if err := v.reserve(additional, true); err != nil {
		return err
	}
	return nil
}

func (v Heap) reserve(additional int, exact bool) *TryReserveError {
	n, c := v.Len(), v.Cap()
	if additional < 0 {
		return capacityOverflow("negative reservation %d", additional)
	}
	if additional <= c-n {
		return nil
	}
	if additional > alloc.MaxSize-n {
		return capacityOverflow("%d + %d bytes", n, additional)
	}
	return v.resize(grownCap(c, n+additional, exact))
}

// grownCap applies the growth policy: max(2*capacity, required), or exactly
// required for the exact variants.
func grownCap(capacity, required int, exact bool) int {
	if exact {
		return required
	}
	if capacity > math.MaxInt/2 {
		return required
	}
	return max(capacity*2, required)
}

// ShrinkTo lowers the capacity to max(minCapacity, Len()). It never grows.
func (v Heap) ShrinkTo(minCapacity int) {
	target := max(minCapacity, v.Len())
	if target >= v.Cap() {
		return
	}
	if err := v.resize(target); err != nil {
		panic(err)
	}
}

func (v Heap) ShrinkToFit() { v.ShrinkTo(0) }

// resize moves the content to a buffer of exactly capacity bytes and
// installs the new pointer and capacity as one commit.
func (v Heap) resize(capacity int) *TryReserveError {
	old, p := v.Cap(), v.ptr()
	if capacity == old {
		return nil
	}
	a := allocator()
	var (
		np  unsafe.Pointer
		err error
	)
	switch {
	case capacity == 0:
		if err = a.Deallocate(p, bytesLayout(old)); err != nil {
			panic(err)
		}
		np = alloc.Dangling()
	case old == 0:
		l, lerr := alloc.Bytes(capacity)
		if lerr != nil {
			return newTryReserveError(lerr)
		}
		np, err = a.Allocate(l)
	default:
		l, lerr := alloc.Bytes(capacity)
		if lerr != nil {
			return newTryReserveError(lerr)
		}
		np, err = a.Grow(p, bytesLayout(old), l)
	}
	if err != nil {
		return newTryReserveError(err)
	}
	var b overlay.Batch[cell]
	overlay.Stage(&b, heapPtr, np)
	overlay.Stage(&b, heapCap, capacity)
	b.Commit(v.c)
	return nil
}

// release returns the buffer to the allocator. The view is unusable
// afterwards until the cell is replaced.
func (v Heap) release() {
	if c := v.Cap(); c > 0 {
		if err := allocator().Deallocate(v.ptr(), bytesLayout(c)); err != nil {
			panic(err)
		}
	}
}

func (v Heap) Push(r rune) {
	var scratch [utf8.UTFMax]byte
	v.pushBytes(encodeRune(&scratch, r))
}

func (v Heap) PushStr(text string) {
	b := common.StringView(text)
	mustValidate(b)
	v.pushBytes(b)
}

func (v Heap) pushBytes(b []byte) {
	v.Reserve(len(b))
	cur := v.buf()
	v.setLen(len(append(cur, b...)))
}

func (v Heap) Insert(i int, r rune) {
	var scratch [utf8.UTFMax]byte
	v.insertBytes("Insert", i, encodeRune(&scratch, r))
}

func (v Heap) InsertStr(i int, text string) {
	b := common.StringView(text)
	mustValidate(b)
	v.insertBytes("InsertStr", i, b)
}

func (v Heap) insertBytes(op string, i int, b []byte) {
	checkBoundary(op, v.buf(), i)
	v.Reserve(len(b))
	v.setLen(len(common.Splice(v.buf(), i, i, b)))
}

// Remove deletes and returns the character starting at byte index i.
func (v Heap) Remove(i int) rune {
	cur := v.buf()
	if i >= len(cur) {
		panic(&IndexError{Op: "Remove", Index: i, Len: len(cur), Reason: "out of range"})
	}
	checkBoundary("Remove", cur, i)
	r, size := utf8.DecodeRune(cur[i:])
	v.setLen(len(common.Splice(cur, i, i+size, nil)))
	return r
}

func (v Heap) Pop() (rune, bool) {
	cur := v.buf()
	if len(cur) == 0 {
		return 0, false
	}
	r, size := utf8.DecodeLastRune(cur)
	v.setLen(len(cur) - size)
	return r, true
}

// Truncate shortens the content to n bytes; n past the end is a no-op.
// Capacity is unchanged.
func (v Heap) Truncate(n int) {
	cur := v.buf()
	if n >= len(cur) {
		return
	}
	checkBoundary("Truncate", cur, n)
	v.setLen(n)
}

func (v Heap) Clear() { v.setLen(0) }
