// Package wire packs many sso strings into one checksummed frame.
//
// Frame layout, little-endian:
//
//	magic   [2]byte  "S5"
//	version byte
//	length  uint32   total frame size, CRC included
//	flags   byte
//	body    count uvarint, [offset table], then count × (len uvarint, bytes)
//	crc     uint32   IEEE CRC32 of every byte after the magic
//
// With FlagIndex the count is followed by one uint32 per string giving the
// start of its entry, relative to the first entry. With FlagZstd the body is
// replaced by its uncompressed size as a uvarint followed by the
// zstd-compressed body.
package wire

import (
	"encoding/binary"
	"hash/crc32"
	"iter"

	"fortio.org/safecast"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/rawbytedev/sso"
	"github.com/rawbytedev/sso/internal/common"
)

const (
	Magic0  = 'S'
	Magic1  = '5'
	Version = 1

	// FlagZstd marks a zstd-compressed body.
	FlagZstd byte = 1 << 0
	// FlagIndex marks a body carrying an offset table.
	FlagIndex byte = 1 << 1

	knownFlags = FlagZstd | FlagIndex

	headerSize  = 2 + 1 + 4 + 1
	crcSize     = 4
	offsetSize  = 4
	maxPrealloc = 1 << 20
)

var (
	ErrFrameMagic     = errors.New("wire: bad frame magic")
	ErrFrameVersion   = errors.New("wire: unsupported frame version")
	ErrFrameTruncated = errors.New("wire: truncated frame")
	ErrFrameLength    = errors.New("wire: length mismatch")
	ErrFrameChecksum  = errors.New("wire: crc mismatch")
	ErrFrameFlags     = errors.New("wire: unknown flags")
	ErrFrameIndex     = errors.New("wire: bad offset table")
)

// Options controls how frames are written.
type Options struct {
	// Compress stores the body zstd-compressed.
	Compress bool
	// Level is the zstd level; zero means zstd.SpeedDefault.
	Level zstd.EncoderLevel
	// Index writes an offset table so a View can reach any string without
	// walking the ones before it.
	Index bool
}

// Header is the fixed part of a frame.
type Header struct {
	Version byte
	Length  uint32
	Flags   byte
}

// Codec encodes and decodes frames. The zstd state is created on first
// use and reused; a Codec is not safe for concurrent use.
type Codec struct {
	opts Options
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func NewCodec(opts Options) *Codec {
	if opts.Level == 0 {
		opts.Level = zstd.SpeedDefault
	}
	return &Codec{opts: opts}
}

// Close releases the zstd state.
func (c *Codec) Close() {
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}

// Encode writes one frame holding strs in order. nil entries encode as
// empty strings.
func (c *Codec) Encode(strs []*sso.String) ([]byte, error) {
	body := make([]byte, 0, c.bodySize(strs))
	body = common.WriteVarUintTo(body, uint64(len(strs)))
	table := len(body)
	if c.opts.Index {
		body = append(body, make([]byte, offsetSize*len(strs))...)
	}
	start := len(body)
	for i, s := range strs {
		if c.opts.Index {
			off, err := safecast.Conv[uint32](len(body) - start)
			if err != nil {
				return nil, errors.Wrapf(err, "wire: string %d starts past the offset range", i)
			}
			binary.LittleEndian.PutUint32(body[table+offsetSize*i:], off)
		}
		if s == nil {
			body = append(body, 0)
			continue
		}
		var err error
		if body, err = s.AppendBinary(body); err != nil {
			return nil, err
		}
	}

	var flags byte
	if c.opts.Index {
		flags |= FlagIndex
	}
	if c.opts.Compress {
		comp, err := c.compress(body)
		if err != nil {
			return nil, err
		}
		flags |= FlagZstd
		body = comp
	}

	out := make([]byte, 0, headerSize+len(body)+crcSize)
	out = append(out, Magic0, Magic1, Version)
	out = binary.LittleEndian.AppendUint32(out, 0) // length placeholder
	out = append(out, flags)
	out = append(out, body...)
	total, err := safecast.Conv[uint32](len(out) + crcSize)
	if err != nil {
		return nil, errors.Wrapf(err, "wire: frame of %d bytes is too large", len(out)+crcSize)
	}
	binary.LittleEndian.PutUint32(out[3:], total)
	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out[2:])), nil
}

func (c *Codec) bodySize(strs []*sso.String) int {
	n := common.VarUintLen(uint64(len(strs)))
	if c.opts.Index {
		n += offsetSize * len(strs)
	}
	for _, s := range strs {
		if s == nil {
			n++
			continue
		}
		n += common.VarUintLen(uint64(s.Len())) + s.Len()
	}
	return n
}

func (c *Codec) compress(body []byte) ([]byte, error) {
	if c.enc == nil {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(c.opts.Level))
		if err != nil {
			return nil, err
		}
		c.enc = enc
	}
	out := common.WriteVarUintTo(nil, uint64(len(body)))
	return c.enc.EncodeAll(body, out), nil
}

func (c *Codec) decompress(payload []byte) ([]byte, error) {
	size, n := common.ReadVarUint(payload)
	if n == 0 {
		return nil, ErrFrameTruncated
	}
	if c.dec == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		c.dec = dec
	}
	body, err := c.dec.DecodeAll(payload[n:], make([]byte, 0, min(size, maxPrealloc)))
	if err != nil {
		return nil, errors.Wrapf(err, "wire: zstd")
	}
	if uint64(len(body)) != size {
		return nil, errors.Wrapf(ErrFrameLength, "body is %d bytes, header says %d", len(body), size)
	}
	return body, nil
}

// ReadHeader validates the magic, version and length of a frame without
// checking its CRC.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize+crcSize {
		return Header{}, ErrFrameTruncated
	}
	if data[0] != Magic0 || data[1] != Magic1 {
		return Header{}, ErrFrameMagic
	}
	h := Header{
		Version: data[2],
		Length:  binary.LittleEndian.Uint32(data[3:]),
		Flags:   data[7],
	}
	if h.Version != Version {
		return h, errors.Wrapf(ErrFrameVersion, "%d", h.Version)
	}
	if uint64(h.Length) != uint64(len(data)) {
		return h, errors.Wrapf(ErrFrameLength, "header says %d, have %d", h.Length, len(data))
	}
	if h.Flags&^knownFlags != 0 {
		return h, errors.Wrapf(ErrFrameFlags, "%#x", h.Flags)
	}
	return h, nil
}

// View reads the strings of a frame in place. Strings returned by At
// borrow the frame's memory (or the decompressed body) and are checked for
// UTF-8 when read.
type View struct {
	entries []byte
	offsets []int
}

// Open checks a frame's header and CRC and locates every string in it.
// Without an offset table this walks the length prefixes once.
func (c *Codec) Open(data []byte) (*View, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	end := len(data) - crcSize
	want := binary.LittleEndian.Uint32(data[end:])
	if crc32.ChecksumIEEE(data[2:end]) != want {
		return nil, ErrFrameChecksum
	}
	body := data[headerSize:end]
	if h.Flags&FlagZstd != 0 {
		if body, err = c.decompress(body); err != nil {
			return nil, err
		}
	}

	count, n := common.ReadVarUint(body)
	if n == 0 {
		return nil, ErrFrameTruncated
	}
	body = body[n:]
	if count > uint64(len(body)) {
		return nil, errors.Wrapf(ErrFrameLength, "%d strings in %d bytes", count, len(body))
	}
	if h.Flags&FlagIndex != 0 {
		return openIndexed(body, int(count))
	}
	return openScan(body, int(count))
}

func openIndexed(body []byte, count int) (*View, error) {
	if count > len(body)/offsetSize {
		return nil, errors.Wrapf(ErrFrameIndex, "table of %d entries in %d bytes", count, len(body))
	}
	entries := body[offsetSize*count:]
	if count == 0 && len(entries) != 0 {
		return nil, errors.Wrapf(ErrFrameLength, "%d trailing body bytes", len(entries))
	}
	v := &View{entries: entries, offsets: make([]int, count)}
	prev := 0
	for i := range count {
		off := int(binary.LittleEndian.Uint32(body[offsetSize*i:]))
		// every entry takes at least its one-byte length prefix
		if off < prev || off >= len(entries) {
			return nil, errors.Wrapf(ErrFrameIndex, "entry %d at %d", i, off)
		}
		if i == 0 && off != 0 {
			return nil, errors.Wrapf(ErrFrameIndex, "first entry at %d", off)
		}
		v.offsets[i] = off
		prev = off + 1
	}
	return v, nil
}

func openScan(entries []byte, count int) (*View, error) {
	v := &View{entries: entries, offsets: make([]int, count)}
	off := 0
	for i := range count {
		v.offsets[i] = off
		size, n := common.ReadVarUint(entries[off:])
		if n == 0 || size > uint64(len(entries)-off-n) {
			return nil, errors.Wrapf(sso.ErrShortBuffer, "wire: string %d", i)
		}
		off += n + int(size)
	}
	if off != len(entries) {
		return nil, errors.Wrapf(ErrFrameLength, "%d trailing body bytes", len(entries)-off)
	}
	return v, nil
}

// Len returns the number of strings in the frame.
func (v *View) Len() int { return len(v.offsets) }

// At returns string i. It fails if the entry is not valid UTF-8 or does not
// end where the next one starts.
func (v *View) At(i int) (sso.Str, error) {
	off := v.offsets[i]
	next := len(v.entries)
	if i+1 < len(v.offsets) {
		next = v.offsets[i+1]
	}
	s, n, err := sso.DecodeBinary(v.entries[off:])
	if err != nil {
		return sso.Str{}, errors.Wrapf(err, "wire: string %d", i)
	}
	if off+n != next {
		return sso.Str{}, errors.Wrapf(ErrFrameIndex, "string %d ends at %d, next starts at %d", i, off+n, next)
	}
	return s, nil
}

// All yields every string in order and stops at the first bad entry,
// which it yields with its error.
func (v *View) All() iter.Seq2[sso.Str, error] {
	return func(yield func(sso.Str, error) bool) {
		for i := range v.offsets {
			s, err := v.At(i)
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Decode parses one frame and returns its strings as new values.
func (c *Codec) Decode(data []byte) ([]sso.String, error) {
	v, err := c.Open(data)
	if err != nil {
		return nil, err
	}
	out := make([]sso.String, 0, v.Len())
	for s, err := range v.All() {
		if err != nil {
			for j := range out {
				out[j].Free()
			}
			return nil, err
		}
		out = append(out, s.ToOwned())
	}
	return out, nil
}

// Encode writes a frame with a throwaway Codec.
func Encode(strs []*sso.String, opts Options) ([]byte, error) {
	c := NewCodec(opts)
	defer c.Close()
	return c.Encode(strs)
}

// Decode reads a frame with a throwaway Codec.
func Decode(data []byte) ([]sso.String, error) {
	c := NewCodec(Options{})
	defer c.Close()
	return c.Decode(data)
}

// Open reads a frame with a throwaway Codec.
func Open(data []byte) (*View, error) {
	c := NewCodec(Options{})
	defer c.Close()
	return c.Open(data)
}
