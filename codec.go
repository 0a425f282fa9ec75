package sso

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/sso/internal/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// replace swaps the content for b, reusing the existing buffer when it is
// large enough.
func (s *String) replace(b []byte) error {
	if err := validate(b); err != nil {
		return err
	}
	b = s.detach(b)
	s.Clear()
	s.pushBytes(b)
	return nil
}

// AppendBinary appends the uvarint length followed by the content.
func (s *String) AppendBinary(dst []byte) ([]byte, error) {
	b := s.AsBytes()
	dst = common.WriteVarUintTo(dst, uint64(len(b)))
	return append(dst, b...), nil
}

func (s *String) MarshalBinary() ([]byte, error) {
	b := s.AsBytes()
	return s.AppendBinary(make([]byte, 0, common.VarUintLen(uint64(len(b)))+len(b)))
}

// UnmarshalBinary reads the form written by MarshalBinary. Trailing bytes
// are an error.
func (s *String) UnmarshalBinary(data []byte) error {
	v, read, err := DecodeBinary(data)
	if err != nil {
		return err
	}
	if read != len(data) {
		return errors.Wrapf(ErrTrailingBytes, "%d bytes after a string of %d bytes", len(data)-read, v.Len())
	}
	return s.replace(v.b)
}

// DecodeBinary views one length-prefixed string at the start of data
// without copying and returns it with the number of bytes consumed.
func DecodeBinary(data []byte) (Str, int, error) {
	n, k := common.ReadVarUint(data)
	if k == 0 || n > uint64(len(data)-k) {
		return Str{}, 0, ErrShortBuffer
	}
	end := k + int(n)
	b := data[k:end:end]
	if err := validate(b); err != nil {
		return Str{}, 0, err
	}
	return Str{b: b}, end, nil
}

func (s *String) MarshalJSON() ([]byte, error) {
	return json.Marshal(common.BytesView(s.AsBytes()))
}

func (s *String) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return s.replace(common.StringView(v))
}

func (s *String) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *String) UnmarshalYAML(value *yaml.Node) error {
	var v string
	if err := value.Decode(&v); err != nil {
		return err
	}
	return s.replace(common.StringView(v))
}

func (s *String) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(common.BytesView(s.AsBytes()))
}

func (s *String) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return s.replace(common.StringView(v))
}

var (
	_ msgpack.CustomEncoder = (*String)(nil)
	_ msgpack.CustomDecoder = (*String)(nil)
	_ yaml.Marshaler        = (*String)(nil)
	_ yaml.Unmarshaler      = (*String)(nil)
)
