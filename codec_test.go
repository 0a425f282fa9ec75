package sso

import (
	stdjson "encoding/json"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

type record struct {
	Name  *String `json:"name" yaml:"name" msgpack:"name"`
	Notes *String `json:"notes" yaml:"notes" msgpack:"notes"`
}

func TestBinaryRoundTrip(t *testing.T) {
	condition := func(text string) bool {
		text = strings.ToValidUTF8(text, "")
		s := From(text)
		data, err := s.MarshalBinary()
		require.NoError(t, err)
		var back String
		require.NoError(t, back.UnmarshalBinary(data))
		return back.Equal(&s)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestBinaryErrors(t *testing.T) {
	var s String
	assert.ErrorIs(t, s.UnmarshalBinary(nil), ErrShortBuffer)
	assert.ErrorIs(t, s.UnmarshalBinary([]byte{5, 'a'}), ErrShortBuffer)
	assert.ErrorIs(t, s.UnmarshalBinary([]byte{1, 0xff}), ErrInvalidUTF8)
	assert.ErrorIs(t, s.UnmarshalBinary([]byte{1, 'a', 'b'}), ErrTrailingBytes)

	one := From("one")
	data, err := one.AppendBinary(nil)
	require.NoError(t, err)
	two := From(strings.Repeat("2", 30))
	data, err = two.AppendBinary(data)
	require.NoError(t, err)

	first, n, err := DecodeBinary(data)
	require.NoError(t, err)
	assert.Equal(t, "one", first.String())
	second, m, err := DecodeBinary(data[n:])
	require.NoError(t, err)
	assert.Equal(t, two.String(), second.String())
	assert.Equal(t, len(data), n+m)
}

func TestUnmarshalReusesBuffer(t *testing.T) {
	s := WithCapacity(64)
	require.NoError(t, s.UnmarshalBinary([]byte{3, 'a', 'b', 'c'}))
	assert.Equal(t, "abc", s.String())
	assert.Equal(t, 64, s.Cap())
}

func TestJSON(t *testing.T) {
	s := From(`quote " and ünïcode`)
	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"quote \" and ünïcode"`, string(data))

	var back String
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, back.Equal(&s))

	// through encoding/json, which calls the same methods
	long := From(strings.Repeat("n", 40))
	in := record{Name: &long, Notes: &String{}}
	raw, err := stdjson.Marshal(in)
	require.NoError(t, err)
	var out record
	require.NoError(t, stdjson.Unmarshal(raw, &out))
	require.NotNil(t, out.Name)
	assert.Equal(t, long.String(), out.Name.String())
	assert.True(t, out.Notes.IsEmpty())

	assert.Error(t, back.UnmarshalJSON([]byte(`12`)))
}

func TestYAML(t *testing.T) {
	name := From("yaml value")
	notes := From(strings.Repeat("y", 25))
	raw, err := yaml.Marshal(record{Name: &name, Notes: &notes})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "name: yaml value")

	var out record
	require.NoError(t, yaml.Unmarshal(raw, &out))
	assert.Equal(t, "yaml value", out.Name.String())
	assert.Equal(t, notes.String(), out.Notes.String())
	assert.True(t, out.Notes.IsLong())
}

func TestMsgpack(t *testing.T) {
	name := From("packed")
	notes := From(strings.Repeat("p", 50))
	raw, err := msgpack.Marshal(&record{Name: &name, Notes: &notes})
	require.NoError(t, err)

	var out record
	require.NoError(t, msgpack.Unmarshal(raw, &out))
	assert.Equal(t, "packed", out.Name.String())
	assert.Equal(t, notes.String(), out.Notes.String())

	single, err := msgpack.Marshal(&name)
	require.NoError(t, err)
	var back String
	require.NoError(t, msgpack.Unmarshal(single, &back))
	assert.True(t, back.Equal(&name))
}
