package sso

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"fortio.org/safecast"

	"github.com/rawbytedev/sso/internal/overlay"
	"github.com/rawbytedev/sso/pkg/alloc"
)

// wordSize is the pointer size in bytes, as an untyped constant.
const wordSize = 4 << (^uintptr(0) >> 63)

// MaxInline is the number of bytes a String holds without allocating.
// The pointer word is never used for inline bytes so the garbage collector
// can always scan it; the two remaining words hold the content plus one
// length byte.
const MaxInline = 2*wordSize - 1

// longFlag is the top bit of the capacity word. In little-endian order it
// lands in raw[MaxInline], which makes the length byte read as > MaxInline.
const longFlag = uint64(1) << (8*wordSize - 1)

const (
	tagShort overlay.Tag = iota
	tagLong
)

// cell is the storage shared by both layouts:
//
//	Short: ptr nil, raw[:MaxInline] content, raw[MaxInline] length
//	Long:  ptr buffer, raw word 0 length, raw word 1 capacity|longFlag
type cell struct {
	ptr unsafe.Pointer
	raw [2 * wordSize]byte
}

func (c cell) ActiveTag() overlay.Tag {
	if c.raw[MaxInline] <= MaxInline {
		return tagShort
	}
	return tagLong
}

func (c *cell) short() bool { return c.ActiveTag() == tagShort }

func (c *cell) word(i int) uint64 {
	b := c.raw[i*wordSize : (i+1)*wordSize]
	if wordSize == 8 {
		return binary.LittleEndian.Uint64(b)
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

func (c *cell) setWord(i int, v uint64) {
	b := c.raw[i*wordSize : (i+1)*wordSize]
	if wordSize == 8 {
		binary.LittleEndian.PutUint64(b, v)
		return
	}
	binary.LittleEndian.PutUint32(b, safecast.MustConv[uint32](v))
}

var (
	inlineLen = overlay.NewField("inline.len", tagShort,
		func(c *cell) int { return int(c.raw[MaxInline]) },
		func(c *cell, n int) { c.raw[MaxInline] = safecast.MustConv[byte](n) })

	heapPtr = overlay.NewField("heap.ptr", tagLong,
		func(c *cell) unsafe.Pointer { return c.ptr },
		func(c *cell, p unsafe.Pointer) { c.ptr = p })
	heapLen = overlay.NewField("heap.len", tagLong,
		func(c *cell) int { return safecast.MustConv[int](c.word(0)) },
		func(c *cell, n int) { c.setWord(0, safecast.MustConv[uint64](n)) })
	heapCap = overlay.NewField("heap.cap", tagLong,
		func(c *cell) int { return safecast.MustConv[int](c.word(1) &^ longFlag) },
		func(c *cell, n int) { c.setWord(1, safecast.MustConv[uint64](n)|longFlag) })
)

// shortCell builds a Short cell holding a copy of b (len(b) <= MaxInline).
func shortCell(b []byte) cell {
	var c cell
	copy(c.raw[:MaxInline], b)
	c.raw[MaxInline] = byte(len(b))
	return c
}

// longCell builds a Long cell. The capacity word is written last so the
// flag is set on the finished value only.
func longCell(p unsafe.Pointer, length, capacity int) cell {
	c := cell{ptr: p}
	c.setWord(0, safecast.MustConv[uint64](length))
	c.setWord(1, safecast.MustConv[uint64](capacity)|longFlag)
	return c
}

type allocatorHolder struct {
	a alloc.Allocator
}

var current atomic.Pointer[allocatorHolder]

// SetAllocator installs the allocator used for heap buffers of Strings
// created or grown afterwards and returns the previous one. nil restores
// alloc.Go. A buffer is always released through the allocator in effect at
// that time, so switch allocators only while no Long strings are alive.
func SetAllocator(a alloc.Allocator) alloc.Allocator {
	if a == nil {
		a = alloc.Go{}
	}
	prev := current.Swap(&allocatorHolder{a: a})
	if prev == nil {
		return alloc.Go{}
	}
	return prev.a
}

func allocator() alloc.Allocator {
	if h := current.Load(); h != nil {
		return h.a
	}
	return alloc.Go{}
}

func bytesLayout(capacity int) alloc.Layout {
	l, err := alloc.Bytes(capacity)
	if err != nil {
		panic(newTryReserveError(err))
	}
	return l
}
