package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	small Tag = iota
	large
)

// pair stores either an inline byte pair (small) or a length with the top
// bit of b set (large).
type pair struct {
	a, b uint8
}

func (p pair) ActiveTag() Tag {
	if p.b&0x80 != 0 {
		return large
	}
	return small
}

var (
	inlineA = NewField("inline.a", small,
		func(p *pair) uint8 { return p.a },
		func(p *pair, v uint8) { p.a = v })
	inlineB = NewField("inline.b", small,
		func(p *pair) uint8 { return p.b },
		func(p *pair, v uint8) { p.b = v })
	largeLen = NewField("large.len", large,
		func(p *pair) uint16 { return uint16(p.a) | uint16(p.b&0x7f)<<8 },
		func(p *pair, v uint16) { p.a, p.b = uint8(v), uint8(v>>8)|0x80 })
)

func TestReadWriteActiveLayout(t *testing.T) {
	var p pair
	Write(&p, inlineA, 7)
	assert.Equal(t, uint8(7), Read(&p, inlineA))
	assert.Equal(t, "inline.a", inlineA.Name())
	assert.Equal(t, small, inlineA.Owner())
}

func TestReadMismatchPanics(t *testing.T) {
	var p pair
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*MismatchError)
		require.True(t, ok)
		assert.Equal(t, "large.len", err.Field)
		assert.Equal(t, large, err.Want)
		assert.Equal(t, small, err.Active)
		assert.Contains(t, err.Error(), "large.len")
	}()
	Read(&p, largeLen)
}

func TestWriteThatFlipsLayoutIsRejected(t *testing.T) {
	p := pair{a: 1, b: 2}
	assert.Panics(t, func() { Write(&p, inlineB, 0x90) })
	assert.Equal(t, pair{a: 1, b: 2}, p, "value unchanged after rejected write")
}

func TestBatchCommitSwitchesLayout(t *testing.T) {
	p := pair{a: 3, b: 4}
	var b Batch[pair]
	Stage(&b, largeLen, 300)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, pair{a: 3, b: 4}, p, "staging does not apply")

	b.Commit(&p)
	assert.Equal(t, large, p.ActiveTag())
	assert.Equal(t, uint16(300), Read(&p, largeLen))
	assert.Zero(t, b.Len())
}

func TestBatchFailedExpectationLeavesValue(t *testing.T) {
	p := pair{a: 3, b: 4}
	var b Batch[pair]
	Stage(&b, inlineA, 9)
	Stage(&b, inlineB, 1)
	b.Expect(large)
	assert.Panics(t, func() { b.Commit(&p) })
	assert.Equal(t, pair{a: 3, b: 4}, p)
}

func TestEmptyBatchIsNoop(t *testing.T) {
	p := pair{a: 1}
	var b Batch[pair]
	b.Commit(&p)
	assert.Equal(t, pair{a: 1}, p)
}

func TestWith(t *testing.T) {
	p := pair{a: 1, b: 1}
	got := With(&p, pair{}, func(n *pair) {
		n.a, n.b = 0x10, 0x81
	})
	assert.Equal(t, got, p)
	assert.Equal(t, large, p.ActiveTag())
	assert.Equal(t, uint16(0x110), Read(&p, largeLen))

	With(&p, pair{a: 5}, nil)
	assert.Equal(t, pair{a: 5}, p)
}
