package alloc

import (
	"math"
	"testing"
	"testing/quick"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutFor(t *testing.T) {
	l, err := LayoutFor(10, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, Layout{Size: 10, Align: 1}, l)

	// element size is padded up to its alignment
	l, err = LayoutFor(3, 6, 4)
	require.NoError(t, err)
	assert.Equal(t, Layout{Size: 24, Align: 4}, l)

	l, err = LayoutOf[uint64](4)
	require.NoError(t, err)
	assert.Equal(t, Layout{Size: 32, Align: 8}, l)

	l, err = LayoutFor(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Size)
}

func TestLayoutForErrors(t *testing.T) {
	_, err := LayoutFor(1, 1, 3)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = LayoutFor(-1, 1, 1)
	require.ErrorIs(t, err, ErrCapacityOverflow)

	_, err = LayoutFor(math.MaxInt, 2, 1)
	require.ErrorIs(t, err, ErrCapacityOverflow)

	_, err = LayoutFor(math.MaxInt, 8, 8)
	require.ErrorIs(t, err, ErrCapacityOverflow)

	_, err = LayoutFor(2, math.MaxInt-1, 8)
	require.ErrorIs(t, err, ErrCapacityOverflow)
}

func TestLayoutForNeverOverflowsSilently(t *testing.T) {
	condition := func(count uint32, size uint16, alignShift uint8) bool {
		align := 1 << (alignShift % 7)
		l, err := LayoutFor(int(count), int(size), align)
		if err != nil {
			return errors.Is(err, ErrCapacityOverflow)
		}
		padded, _ := roundUp(int(size), align)
		return l.Size == int(count)*padded && l.Align == align
	}
	require.NoError(t, quick.Check(condition, nil))
}

func TestDangling(t *testing.T) {
	p := Dangling()
	require.NotNil(t, p)
	assert.Equal(t, p, Dangling())
	assert.True(t, IsDangling(p))
	assert.Zero(t, uintptr(p)%unsafe.Alignof(uint64(0)))
}

func TestGoAllocator(t *testing.T) {
	var a Go
	for _, align := range []int{1, 2, 8, 16, 64} {
		l := Layout{Size: 40, Align: align}
		p, err := a.Allocate(l)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Zero(t, uintptr(p)%uintptr(align), "align %d", align)
		require.NoError(t, a.Deallocate(p, l))
	}

	_, err := a.Allocate(Layout{Size: 0, Align: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGoAllocatorGrowCopies(t *testing.T) {
	var a Go
	from := Layout{Size: 4, Align: 1}
	p, err := a.Allocate(from)
	require.NoError(t, err)
	copy(unsafe.Slice((*byte)(p), 4), "abcd")

	to := Layout{Size: 16, Align: 1}
	np, err := a.Grow(p, from, to)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(unsafe.Slice((*byte)(np), 4)))

	// shrinking keeps the prefix
	small, err := a.Grow(np, to, Layout{Size: 2, Align: 1})
	require.NoError(t, err)
	assert.Equal(t, "ab", string(unsafe.Slice((*byte)(small), 2)))

	_, err = a.Grow(small, Layout{Size: 2, Align: 1}, Layout{Size: 4, Align: 8})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGoAllocatorCeiling(t *testing.T) {
	a := Go{MaxBytes: 100}
	p, err := a.Allocate(Layout{Size: 100, Align: 1})
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = a.Allocate(Layout{Size: 101, Align: 1})
	require.ErrorIs(t, err, ErrAllocationFailed)
	// alignment padding counts against the ceiling
	_, err = a.Allocate(Layout{Size: 90, Align: 16})
	require.ErrorIs(t, err, ErrAllocationFailed)

	_, err = a.Grow(p, Layout{Size: 100, Align: 1}, Layout{Size: 200, Align: 1})
	require.ErrorIs(t, err, ErrAllocationFailed)

	// far beyond any machine, but representable: refused, not fatal
	huge := min(1<<46, math.MaxInt/2)
	_, err = Go{}.Allocate(Layout{Size: huge, Align: 1})
	require.ErrorIs(t, err, ErrAllocationFailed)
}

func TestDeallocateDangling(t *testing.T) {
	var a Go
	err := a.Deallocate(Dangling(), Layout{Size: 1, Align: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	err = a.Deallocate(nil, Layout{Size: 1, Align: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)

	tr := NewTracking(nil)
	err = tr.Deallocate(Dangling(), Layout{Size: 1, Align: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTrackingLifecycle(t *testing.T) {
	tr := NewTracking(Go{})
	l := Layout{Size: 8, Align: 1}
	p, err := tr.Allocate(l)
	require.NoError(t, err)
	assert.Equal(t, Stats{Allocs: 1, Live: 1, LiveBytes: 8, PeakBytes: 8}, tr.Stats())

	big := Layout{Size: 32, Align: 1}
	np, err := tr.Grow(p, l, big)
	require.NoError(t, err)
	st := tr.Stats()
	assert.Equal(t, 1, st.Grows)
	assert.Equal(t, 32, st.LiveBytes)
	assert.Equal(t, []Layout{big}, tr.LiveLayouts())

	// the old pointer is no longer live
	if np != p {
		require.ErrorIs(t, tr.Deallocate(p, l), ErrInvalidArgument)
	}
	require.ErrorIs(t, tr.Deallocate(np, l), ErrInvalidArgument, "layout mismatch")
	require.NoError(t, tr.Deallocate(np, big))
	require.ErrorIs(t, tr.Deallocate(np, big), ErrInvalidArgument, "double free")

	st = tr.Stats()
	assert.Equal(t, 0, st.Live)
	assert.Equal(t, 0, st.LiveBytes)
	assert.Equal(t, 32, st.PeakBytes)
	assert.Equal(t, 0, tr.Report())
}

func TestTrackingLimit(t *testing.T) {
	tr := NewTracking(nil).WithLimit(16)
	l := Layout{Size: 12, Align: 1}
	p, err := tr.Allocate(l)
	require.NoError(t, err)

	_, err = tr.Allocate(Layout{Size: 8, Align: 1})
	require.ErrorIs(t, err, ErrAllocationFailed)

	_, err = tr.Grow(p, l, Layout{Size: 20, Align: 1})
	require.ErrorIs(t, err, ErrAllocationFailed)
	assert.Equal(t, []Layout{l}, tr.LiveLayouts(), "failed grow keeps the old buffer")

	require.NoError(t, tr.Deallocate(p, l))
	_, err = tr.Allocate(Layout{Size: 16, Align: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Report())
}
