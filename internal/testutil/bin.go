// Package testutil provides byte-level fixture builders shared by the
// decoder tests. Fixtures are assembled in code so that every test shows the
// exact layout it exercises.
package testutil

import (
	"encoding/binary"
	"strconv"
)

// Bin is an append-only little-endian byte builder.
type Bin struct {
	buf []byte
}

// NewBin returns an empty builder.
func NewBin() *Bin { return &Bin{} }

// Bytes returns the assembled buffer.
func (b *Bin) Bytes() []byte { return b.buf }

// Len returns the current length.
func (b *Bin) Len() int { return len(b.buf) }

// U8 appends one byte.
func (b *Bin) U8(v uint8) *Bin {
	b.buf = append(b.buf, v)
	return b
}

// U16 appends a little-endian uint16.
func (b *Bin) U16(v uint16) *Bin {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

// U32 appends a little-endian uint32.
func (b *Bin) U32(v uint32) *Bin {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

// U64 appends a little-endian uint64.
func (b *Bin) U64(v uint64) *Bin {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

// Raw appends raw bytes.
func (b *Bin) Raw(p ...byte) *Bin {
	b.buf = append(b.buf, p...)
	return b
}

// Repeat appends n copies of v.
func (b *Bin) Repeat(v byte, n int) *Bin {
	for i := 0; i < n; i++ {
		b.buf = append(b.buf, v)
	}
	return b
}

// Str16 appends a u16-length-prefixed string.
func (b *Bin) Str16(s string) *Bin {
	b.U16(uint16(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

// Hash returns a 16-byte hash filled with v.
func Hash(v byte) []byte {
	h := make([]byte, 16)
	for i := range h {
		h[i] = v
	}
	return h
}

// Tag type codes, duplicated here so fixtures do not depend on the package
// under test.
const (
	TypeHash    = 0x01
	TypeString  = 0x02
	TypeUint32  = 0x03
	TypeFloat32 = 0x04
	TypeBool    = 0x05
	TypeBoolArr = 0x06
	TypeBlob    = 0x07
	TypeUint16  = 0x08
	TypeUint8   = 0x09
	TypeBsob    = 0x0A
	TypeUint64  = 0x0B
	TypeStr1    = 0x11
)

// IDTag appends a compact (high bit) id tag with a pre-encoded value.
func (b *Bin) IDTag(typ, id uint8, value ...byte) *Bin {
	return b.U8(0x80 | typ).U8(id).Raw(value...)
}

// LongIDTag appends an id tag in the length-prefixed form (L == 1).
func (b *Bin) LongIDTag(typ, id uint8, value ...byte) *Bin {
	return b.U8(typ).U16(1).U8(id).Raw(value...)
}

// NamedTag appends a tag identified by name.
func (b *Bin) NamedTag(typ uint8, name []byte, value ...byte) *Bin {
	return b.U8(typ).U16(uint16(len(name))).Raw(name...).Raw(value...)
}

// U32Tag appends a compact UINT32 tag.
func (b *Bin) U32Tag(id uint8, v uint32) *Bin {
	return b.IDTag(TypeUint32, id, le32(v)...)
}

// U64Tag appends a compact UINT64 tag.
func (b *Bin) U64Tag(id uint8, v uint64) *Bin {
	return b.IDTag(TypeUint64, id, le64(v)...)
}

// StringTag appends a compact STRING tag.
func (b *Bin) StringTag(id uint8, s string) *Bin {
	b.IDTag(TypeString, id)
	return b.Str16(s)
}

// GapTag appends a named UINT32 gap boundary tag. marker is 0x09 for a start
// and 0x0A for an end; index is rendered in decimal after the marker.
func (b *Bin) GapTag(marker byte, index int, v uint32) *Bin {
	name := append([]byte{marker}, strconv.Itoa(index)...)
	return b.NamedTag(TypeUint32, name, le32(v)...)
}

func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

func le64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

// LE32 encodes v little-endian.
func LE32(v uint32) []byte { return le32(v) }

// LE16 encodes v little-endian.
func LE16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
