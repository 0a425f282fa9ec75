package alloc

import (
	"sort"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"
)

// Stats is a snapshot of a Tracking allocator's counters.
type Stats struct {
	Allocs    int
	Frees     int
	Grows     int
	Live      int
	LiveBytes int
	PeakBytes int
}

type allocation struct {
	id     uint64
	layout Layout
}

// Tracking wraps another Allocator and keeps a table of every live buffer.
// Releasing an unknown pointer, releasing twice, or releasing with the wrong
// layout fails with ErrInvalidArgument. It is safe for concurrent use.
type Tracking struct {
	inner Allocator
	limit int

	mu    sync.Mutex
	next  uint64
	live  map[unsafe.Pointer]allocation
	stats Stats
}

var _ Allocator = (*Tracking)(nil)

// NewTracking wraps inner; a nil inner means Go{}.
func NewTracking(inner Allocator) *Tracking {
	if inner == nil {
		inner = Go{}
	}
	return &Tracking{
		inner: inner,
		next:  1,
		live:  make(map[unsafe.Pointer]allocation, 64),
	}
}

// WithLimit caps the number of live bytes. Requests that would exceed it
// fail with ErrAllocationFailed. A limit of 0 removes the cap.
func (t *Tracking) WithLimit(bytes int) *Tracking {
	t.mu.Lock()
	t.limit = bytes
	t.mu.Unlock()
	return t
}

func (t *Tracking) Allocate(l Layout) (unsafe.Pointer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkBudget(l.Size); err != nil {
		return nil, err
	}
	p, err := t.inner.Allocate(l)
	if err != nil {
		return nil, err
	}
	t.record(p, l)
	t.stats.Allocs++
	return p, nil
}

func (t *Tracking) Deallocate(p unsafe.Pointer, l Layout) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, err := t.lookup(p, l)
	if err != nil {
		return err
	}
	if err := t.inner.Deallocate(p, l); err != nil {
		return err
	}
	t.forget(p, a)
	t.stats.Frees++
	return nil
}

func (t *Tracking) Grow(p unsafe.Pointer, from, to Layout) (unsafe.Pointer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, err := t.lookup(p, from)
	if err != nil {
		return nil, err
	}
	if err := t.checkBudget(to.Size - from.Size); err != nil {
		return nil, err
	}
	np, err := t.inner.Grow(p, from, to)
	if err != nil {
		return nil, err
	}
	t.forget(p, a)
	t.record(np, to)
	t.stats.Grows++
	return np, nil
}

// Stats returns a snapshot of the counters.
func (t *Tracking) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// LiveLayouts lists the layouts of all live buffers in allocation order.
func (t *Tracking) LiveLayouts() []Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make([]allocation, 0, len(t.live))
	for _, a := range t.live {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	out := make([]Layout, len(all))
	for i, a := range all {
		out[i] = a.layout
	}
	return out
}

// Report logs every live buffer and returns how many there are.
func (t *Tracking) Report() int {
	layouts := t.LiveLayouts()
	st := t.Stats()
	for i, l := range layouts {
		logger.Warningf("alloc: live buffer %d: size=%d align=%d", i, l.Size, l.Align)
	}
	logger.Infof("alloc: allocs=%d grows=%d frees=%d live=%d live_bytes=%d peak_bytes=%d",
		st.Allocs, st.Grows, st.Frees, st.Live, st.LiveBytes, st.PeakBytes)
	return len(layouts)
}

func (t *Tracking) checkBudget(extra int) error {
	if t.limit > 0 && extra > 0 && t.stats.LiveBytes+extra > t.limit {
		return errors.Wrapf(ErrAllocationFailed, "budget of %d bytes exceeded (live=%d, requested=%d)",
			t.limit, t.stats.LiveBytes, extra)
	}
	return nil
}

func (t *Tracking) lookup(p unsafe.Pointer, l Layout) (allocation, error) {
	if err := checkOwned(p); err != nil {
		return allocation{}, err
	}
	a, ok := t.live[p]
	if !ok {
		return allocation{}, errors.Wrapf(ErrInvalidArgument, "pointer %p is not a live allocation", p)
	}
	if a.layout != l {
		return allocation{}, errors.Wrapf(ErrInvalidArgument, "layout mismatch for allocation %d: got %+v want %+v",
			a.id, l, a.layout)
	}
	return a, nil
}

func (t *Tracking) record(p unsafe.Pointer, l Layout) {
	t.live[p] = allocation{id: t.next, layout: l}
	t.next++
	t.stats.Live++
	t.stats.LiveBytes += l.Size
	if t.stats.LiveBytes > t.stats.PeakBytes {
		t.stats.PeakBytes = t.stats.LiveBytes
	}
}

func (t *Tracking) forget(p unsafe.Pointer, a allocation) {
	delete(t.live, p)
	t.stats.Live--
	t.stats.LiveBytes -= a.layout.Size
}
