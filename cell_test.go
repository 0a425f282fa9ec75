package sso

import (
	"math"
	"reflect"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/sso/internal/overlay"
	"github.com/rawbytedev/sso/pkg/alloc"
)

func TestFootprintMatchesSliceHeader(t *testing.T) {
	assert.Equal(t, unsafe.Sizeof([]byte(nil)), unsafe.Sizeof(String{}))
	assert.Equal(t, 3*unsafe.Sizeof(uintptr(0)), unsafe.Sizeof(String{}))
	assert.Equal(t, 2*wordSize-1, MaxInline)
}

func TestStringCarriesNoCopyMarker(t *testing.T) {
	field := reflect.TypeOf(String{}).Field(0)
	assert.Equal(t, reflect.TypeOf(noCopy{}), field.Type)
	assert.Zero(t, field.Type.Size())
	assert.Zero(t, field.Offset)
	locker := reflect.TypeOf((*sync.Locker)(nil)).Elem()
	assert.True(t, reflect.PointerTo(field.Type).Implements(locker), "copylocks only tracks Lock/Unlock types")
}

func TestZeroValueIsEmptyShort(t *testing.T) {
	var s String
	assert.True(t, s.IsShort())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, MaxInline, s.Cap())
	assert.Equal(t, "", s.String())
}

func TestTagForEveryInlineLength(t *testing.T) {
	buf := make([]byte, MaxInline)
	for i := range buf {
		buf[i] = 'a' + byte(i)
	}
	for n := 0; n <= MaxInline; n++ {
		c := shortCell(buf[:n])
		require.Equal(t, tagShort, c.ActiveTag(), "len %d", n)
		assert.Nil(t, c.ptr)
		assert.Equal(t, n, overlay.Read(&c, inlineLen))
	}
}

func TestTagForCapacityBoundaries(t *testing.T) {
	caps := []int{0, 1, MaxInline, MaxInline + 1, 2 * MaxInline, 0x7f, 0x80, 0xff, 0x100, 1 << 20,
		math.MaxInt32, math.MaxInt - 1, math.MaxInt}
	for _, capacity := range caps {
		for _, length := range []int{0, capacity / 2, capacity} {
			c := longCell(nil, length, capacity)
			require.Equal(t, tagLong, c.ActiveTag(), "cap %d", capacity)
			assert.GreaterOrEqual(t, int(c.raw[MaxInline]), 0x80)
			assert.Equal(t, capacity, overlay.Read(&c, heapCap))
			assert.Equal(t, length, overlay.Read(&c, heapLen))
		}
	}
}

func TestWrongLayoutAccessPanics(t *testing.T) {
	s := From("short")
	assert.PanicsWithValue(t, &overlay.MismatchError{Field: "heap.len", Want: tagLong, Active: tagShort}, func() {
		overlay.Read(&s.c, heapLen)
	})
	l := WithCapacity(64)
	assert.Panics(t, func() { overlay.Read(&l.c, inlineLen) })
}

func TestSetAllocator(t *testing.T) {
	tr := newTracking(t)
	assert.Same(t, tr, allocator())
	prev := SetAllocator(nil)
	assert.Same(t, tr, prev)
	assert.Equal(t, alloc.Go{}, allocator())
	SetAllocator(prev)
}
