// Package bytesource provides the positioned little-endian cursor every
// decoder reads through.
package bytesource

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aretw0/strata/pkg/core"
)

// Reader is a random-access cursor over a core.ByteSource.
// It is not safe for concurrent use.
type Reader struct {
	src  io.ReaderAt
	size int64
	pos  int64
}

// New creates a Reader positioned at offset 0.
func New(src core.ByteSource) *Reader {
	return &Reader{src: src, size: src.Size()}
}

// FromBytes creates a Reader over an in-memory buffer.
func FromBytes(b []byte) *Reader {
	return &Reader{src: bytes.NewReader(b), size: int64(len(b))}
}

// Size returns the total length of the source.
func (r *Reader) Size() int64 { return r.size }

// Tell returns the current offset.
func (r *Reader) Tell() int64 { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int64 { return r.size - r.pos }

// EOF reports whether the cursor sits at the end of the source.
func (r *Reader) EOF() bool { return r.pos >= r.size }

// Seek moves the cursor to an absolute offset. Seeking to Size is allowed.
func (r *Reader) Seek(offset int64) error {
	if offset < 0 || offset > r.size {
		return core.TruncatedInput.New("seek to %d outside [0, %d]", offset, r.size)
	}
	r.pos = offset
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int64) error {
	if n < 0 || n > r.Remaining() {
		return core.TruncatedInput.New("skip %d at offset %d, %d remaining", n, r.pos, r.Remaining())
	}
	r.pos += n
	return nil
}

// Peek returns the next n bytes without consuming them.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.Remaining() {
		return nil, core.TruncatedInput.New("peek %d at offset %d, %d remaining", n, r.pos, r.Remaining())
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := r.src.ReadAt(buf, r.pos); err != nil && !(errors.Is(err, io.EOF) && int64(n) == r.Remaining()) {
		return nil, core.IOError.Wrap(err)
	}
	return buf, nil
}

// Read consumes the next n bytes.
func (r *Reader) Read(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadU8 consumes one byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 consumes a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 consumes a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 consumes a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadHash16 consumes a 16-byte MD4 hash.
func (r *Reader) ReadHash16() ([]byte, error) {
	return r.Read(16)
}

// ReadString16 consumes a u16-length-prefixed string.
func (r *Reader) ReadString16() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := r.Read(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadAll consumes everything up to the end of the source.
func (r *Reader) ReadAll() ([]byte, error) {
	return r.Read(int(r.Remaining()))
}

// Hex renders raw bytes as uppercase hexadecimal.
func Hex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// Buffer adapts an in-memory buffer to core.ByteSource.
type Buffer struct {
	*bytes.Reader
}

// NewBuffer wraps b.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{Reader: bytes.NewReader(b)}
}

// Close implements io.Closer.
func (b *Buffer) Close() error { return nil }

// File adapts an *os.File to core.ByteSource.
type File struct {
	*os.File
	size int64
}

// OpenFile opens path for random access.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.IOError.Wrap(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, core.IOError.Wrap(err)
	}
	return &File{File: f, size: info.Size()}, nil
}

// Size implements core.ByteSource.
func (f *File) Size() int64 { return f.size }

var _ core.ByteSource = (*Buffer)(nil)
var _ core.ByteSource = (*File)(nil)
