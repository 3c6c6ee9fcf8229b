package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version byte = 1

	// MaxTagLen is the largest type tag a frame can carry.
	MaxTagLen = 0xFFFF
)

var (
	ErrCorrupt = errors.New("topocache: corrupt entry")
	ErrTag     = errors.New("topocache: invalid type tag")
	magic4     = [...]byte{'T', 'O', 'P', 'O'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Value: magic(4) | ver(1) | tagLen(u16 be) | tag(tagLen) | vlen(u32 be) | payload(vlen)
func EncodeValue(tag string, payload []byte) ([]byte, error) {
	if l := len(tag); l == 0 || l > MaxTagLen {
		return nil, ErrTag
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 2 + len(tag) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint16(u2[:], uint16(len(tag)))
	buf.Write(u2[:])
	buf.WriteString(tag)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeValue returns the tag and a payload slice aliasing b (no copy).
func DecodeValue(b []byte) (tag string, payload []byte, err error) {
	const hdr = 4 + 1 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return "", nil, ErrCorrupt
	}

	off := 5

	// tag
	tlen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if tlen == 0 || tlen > len(b)-off {
		return "", nil, ErrCorrupt
	}
	tag = string(b[off : off+tlen])
	off += tlen

	// vlen
	if off+4 > len(b) {
		return "", nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact framing, no trailing bytes
		return "", nil, ErrCorrupt
	}

	return tag, b[off : off+vlen], nil
}
