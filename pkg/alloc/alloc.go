// Package alloc computes allocation layouts and hands out raw buffers for
// the heap representation of sso strings.
//
// An Allocator deals in unsafe.Pointer plus Layout pairs. Every buffer must
// be released (or grown) with exactly the layout it was obtained with. The
// zero-capacity state never touches the allocator: it uses Dangling, a
// fixed non-nil address that must never be dereferenced or released.
package alloc

import (
	"runtime/debug"
	"unsafe"

	"github.com/pkg/errors"
)

var (
	ErrCapacityOverflow = errors.New("alloc: capacity overflow")
	ErrAllocationFailed = errors.New("alloc: allocation failed")
	ErrInvalidArgument  = errors.New("alloc: invalid argument")
)

// Allocator provides raw byte buffers described by a Layout.
type Allocator interface {
	// Allocate returns a buffer of at least l.Size bytes aligned to l.Align.
	Allocate(l Layout) (unsafe.Pointer, error)
	// Deallocate releases a buffer previously returned with layout l.
	Deallocate(p unsafe.Pointer, l Layout) error
	// Grow moves p to a buffer described by to, copying the smaller of the
	// two sizes. On error p is left untouched and still owned by the caller.
	Grow(p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error)
}

// dangling is zero sized and word aligned; only its address is used.
var dangling struct{ _ [0]uint64 }

// Dangling returns the canonical pointer for zero-capacity buffers.
func Dangling() unsafe.Pointer {
	return unsafe.Pointer(&dangling)
}

// IsDangling reports whether p is the zero-capacity sentinel.
func IsDangling(p unsafe.Pointer) bool {
	return p == Dangling()
}

// DefaultMaxBytes is the largest single buffer Go hands out when MaxBytes
// is zero: 1 TiB on 64-bit targets, 1 GiB on 32-bit ones.
const DefaultMaxBytes = 1 << (30 + 10*(^uint(0)>>63))

// Go allocates from the Go heap. Deallocate only validates its arguments:
// reclaiming the memory is left to the garbage collector.
//
// The runtime aborts the process, rather than panicking, when it cannot
// back a request it considers representable, so Go refuses anything above
// its ceiling up front. The ceiling is MaxBytes, or DefaultMaxBytes lowered
// to the soft memory limit (debug.SetMemoryLimit) when one is set. A request
// below the ceiling that the machine cannot back still aborts.
type Go struct {
	MaxBytes int
}

var _ Allocator = Go{}

// small requests skip the memory limit lookup, which takes the heap lock
const uncheckedBytes = 1 << 20

func (g Go) ceiling(size int) int {
	if g.MaxBytes > 0 {
		return g.MaxBytes
	}
	if size <= uncheckedBytes {
		return DefaultMaxBytes
	}
	limit := debug.SetMemoryLimit(-1)
	if limit > 0 && limit < DefaultMaxBytes {
		return int(limit)
	}
	return DefaultMaxBytes
}

func (g Go) Allocate(l Layout) (p unsafe.Pointer, err error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	if ceil := g.ceiling(l.Size); l.Size > ceil-(l.Align-1) {
		return nil, errors.Wrapf(ErrAllocationFailed, "%d bytes exceeds the %d byte ceiling", l.Size, ceil)
	}
	defer func() {
		// makeslice panics on lengths it cannot represent at all
		if r := recover(); r != nil {
			p, err = nil, errors.Wrapf(ErrAllocationFailed, "%d bytes: %v", l.Size, r)
		}
	}()
	switch {
	case l.Align == 1:
		b := make([]byte, l.Size)
		return unsafe.Pointer(unsafe.SliceData(b)), nil
	case l.Align <= 8:
		w := make([]uint64, (l.Size-1)/8+1)
		return unsafe.Pointer(unsafe.SliceData(w)), nil
	default:
		b := make([]byte, l.Size+l.Align-1)
		base := unsafe.Pointer(unsafe.SliceData(b))
		off := (l.Align - int(uintptr(base)%uintptr(l.Align))) % l.Align
		return unsafe.Add(base, off), nil
	}
}

func (Go) Deallocate(p unsafe.Pointer, l Layout) error {
	if err := checkOwned(p); err != nil {
		return err
	}
	return l.validate()
}

func (g Go) Grow(p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error) {
	if err := checkOwned(p); err != nil {
		return nil, err
	}
	if err := from.validate(); err != nil {
		return nil, err
	}
	if from.Align != to.Align {
		return nil, errors.Wrapf(ErrInvalidArgument, "grow cannot change alignment (%d -> %d)", from.Align, to.Align)
	}
	np, err := g.Allocate(to)
	if err != nil {
		return nil, err
	}
	n := min(from.Size, to.Size)
	copy(unsafe.Slice((*byte)(np), n), unsafe.Slice((*byte)(p), n))
	return np, nil
}

func checkOwned(p unsafe.Pointer) error {
	if p == nil {
		return errors.Wrap(ErrInvalidArgument, "nil pointer")
	}
	if IsDangling(p) {
		return errors.Wrap(ErrInvalidArgument, "dangling pointer has no allocation")
	}
	return nil
}
