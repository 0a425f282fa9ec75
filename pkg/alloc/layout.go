package alloc

import (
	"math"
	"math/bits"
	"unsafe"

	"fortio.org/safecast"
	"github.com/pkg/errors"
)

// MaxSize is the largest byte size any Layout may describe. Sizes are
// further capped so that rounding up to the alignment cannot overflow.
const MaxSize = math.MaxInt

// Layout is the byte size and alignment of a single allocation.
type Layout struct {
	Size  int
	Align int
}

// LayoutFor computes the layout of an array of count elements, each
// elemSize bytes wide and aligned to elemAlign. The element size is padded
// up to its alignment before multiplying, so consecutive elements stay
// aligned.
func LayoutFor(count, elemSize, elemAlign int) (Layout, error) {
	if !isPowerOfTwo(elemAlign) {
		return Layout{}, errors.Wrapf(ErrInvalidArgument, "alignment %d is not a power of two", elemAlign)
	}
	if count < 0 || elemSize < 0 {
		return Layout{}, errors.Wrapf(ErrCapacityOverflow, "negative layout (count=%d, size=%d)", count, elemSize)
	}
	padded, ok := roundUp(elemSize, elemAlign)
	if !ok {
		return Layout{}, errors.Wrapf(ErrCapacityOverflow, "element size %d overflows when aligned to %d", elemSize, elemAlign)
	}
	c, err := safecast.Conv[uint64](count)
	if err != nil {
		return Layout{}, errors.Wrapf(ErrCapacityOverflow, "count %d: %v", count, err)
	}
	p, err := safecast.Conv[uint64](padded)
	if err != nil {
		return Layout{}, errors.Wrapf(ErrCapacityOverflow, "element size %d: %v", padded, err)
	}
	hi, lo := bits.Mul64(c, p)
	if hi != 0 || lo > uint64(maxSizeFor(elemAlign)) {
		return Layout{}, errors.Wrapf(ErrCapacityOverflow, "%d elements of %d bytes", count, padded)
	}
	size, err := safecast.Conv[int](lo)
	if err != nil {
		return Layout{}, errors.Wrapf(ErrCapacityOverflow, "size %d: %v", lo, err)
	}
	return Layout{Size: size, Align: elemAlign}, nil
}

// LayoutOf is LayoutFor for count values of type T.
func LayoutOf[T any](count int) (Layout, error) {
	var zero T
	return LayoutFor(count, int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
}

// Bytes is the layout of a byte buffer of the given capacity.
func Bytes(capacity int) (Layout, error) {
	return LayoutFor(capacity, 1, 1)
}

func (l Layout) validate() error {
	if !isPowerOfTwo(l.Align) {
		return errors.Wrapf(ErrInvalidArgument, "alignment %d is not a power of two", l.Align)
	}
	if l.Size <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "size %d is not allocatable", l.Size)
	}
	if l.Size > maxSizeFor(l.Align) {
		return errors.Wrapf(ErrCapacityOverflow, "size %d exceeds the maximum for alignment %d", l.Size, l.Align)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func maxSizeFor(align int) int {
	return MaxSize - (align - 1)
}

// roundUp returns n rounded up to a multiple of align (a power of two).
func roundUp(n, align int) (int, bool) {
	if n > maxSizeFor(align) {
		return 0, false
	}
	return (n + align - 1) &^ (align - 1), true
}
