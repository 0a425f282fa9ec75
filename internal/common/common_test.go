package common

import (
	"encoding/binary"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUintMatchesEncodingBinary(t *testing.T) {
	condition := func(x uint64) bool {
		got := WriteVarUintTo(nil, x)
		want := binary.AppendUvarint(nil, x)
		if string(got) != string(want) || VarUintLen(x) != len(got) {
			return false
		}
		v, n := ReadVarUint(got)
		return v == x && n == len(got)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestReadVarUintRejectsBadInput(t *testing.T) {
	_, n := ReadVarUint(nil)
	assert.Zero(t, n)
	_, n = ReadVarUint([]byte{0x80, 0x80})
	assert.Zero(t, n, "truncated")
	over := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}
	_, n = ReadVarUint(over)
	assert.Zero(t, n, "overflows uint64")
}

func TestViews(t *testing.T) {
	b := []byte("hello")
	s := BytesView(b)
	assert.Equal(t, "hello", s)
	assert.Equal(t, "", BytesView(nil))
	assert.Equal(t, []byte("hi"), StringView("hi"))
	assert.Nil(t, StringView(""))
}

func TestSplice(t *testing.T) {
	buf := make([]byte, 6, 16)
	copy(buf, "abcdef")

	got := Splice(buf, 1, 3, []byte("XYZW"))
	assert.Equal(t, "aXYZWdef", string(got))

	got = Splice(got, 1, 5, nil)
	assert.Equal(t, "adef", string(got))

	got = Splice(got, 4, 4, []byte("!"))
	assert.Equal(t, "adef!", string(got))

	got = Splice(got, 0, 0, []byte(">"))
	assert.Equal(t, ">adef!", string(got))
}
