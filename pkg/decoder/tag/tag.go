// Package tag decodes the self-describing (id-or-name, type, value) fields
// used by MET containers and the Kademlia index files.
//
// Wire layout of one tag:
//
//	type byte with the high bit set:   type = b & 0x7f, then a 1-byte id
//	type byte without the high bit:    u16-LE name length L
//	                                     L == 1: 1-byte id
//	                                     else:   L raw name bytes
//	value, laid out according to type
package tag

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

// Policy selects how unsupported value types are handled.
type Policy uint8

const (
	// Compat matches legacy readers: the value is left null, no value bytes
	// are consumed and decoding goes on with the next tag.
	Compat Policy = iota
	// Strict fails the enclosing record with core.UnsupportedTagType.
	Strict
)

// Options configure tag decoding.
type Options struct {
	Policy Policy

	// LegacyBoolArray skips L/8+1 bytes for BOOLARRAY values instead of
	// (L+7)/8, matching the older writers.
	LegacyBoolArray bool

	// Logger receives warnings about unsupported types. Nil discards them.
	Logger *slog.Logger
}

// Log returns the configured logger or a discarding one.
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Tag is one decoded field. Exactly one of ID and Name is meaningful: Name
// is nil for id tags.
type Tag struct {
	ID    uint8
	Name  []byte
	Type  Type
	Value core.Value

	// Raw holds the value bytes as stored, without length prefixes.
	Raw []byte
}

// Named reports whether the tag is identified by name rather than id.
func (t Tag) Named() bool { return t.Name != nil }

// Key renders the tag identity for logs.
func (t Tag) Key() string {
	if t.Named() {
		return fmt.Sprintf("%q", t.Name)
	}
	return fmt.Sprintf("0x%02X", t.ID)
}

// Decode reads one tag at the cursor.
func Decode(r *bytesource.Reader, opts Options) (Tag, error) {
	offset := r.Tell()

	b, err := r.ReadU8()
	if err != nil {
		return Tag{}, err
	}

	var t Tag
	if b&0x80 != 0 {
		t.Type = Type(b & 0x7f)
		if t.ID, err = r.ReadU8(); err != nil {
			return Tag{}, err
		}
	} else {
		t.Type = Type(b)
		length, err := r.ReadU16()
		if err != nil {
			return Tag{}, err
		}
		if length == 1 {
			if t.ID, err = r.ReadU8(); err != nil {
				return Tag{}, err
			}
		} else {
			if t.Name, err = r.Read(int(length)); err != nil {
				return Tag{}, err
			}
		}
	}

	if err := decodeValue(r, &t, opts); err != nil {
		return Tag{}, err
	}
	if t.Type == TypeFloat32 || t.Type == TypeBsob || !t.known() {
		opts.Log().Warn("unsupported tag type, value skipped",
			"type", t.Type.String(),
			"tag", t.Key(),
			"offset", offset,
		)
	}
	return t, nil
}

// DecodeList reads count consecutive tags.
func DecodeList(r *bytesource.Reader, count int, opts Options) ([]Tag, error) {
	if int64(count) > r.Remaining() {
		return nil, core.TruncatedInput.New("%d tags cannot fit in %d bytes", count, r.Remaining())
	}
	tags := make([]Tag, 0, count)
	for i := 0; i < count; i++ {
		t, err := Decode(r, opts)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (t Tag) known() bool {
	switch t.Type {
	case TypeHash, TypeString, TypeUint32, TypeFloat32, TypeBool, TypeBoolArray,
		TypeBlob, TypeUint16, TypeUint8, TypeBsob, TypeUint64:
		return true
	}
	return t.Type.IsInlineString()
}

func decodeValue(r *bytesource.Reader, t *Tag, opts Options) error {
	var err error

	switch {
	case t.Type == TypeHash:
		if t.Raw, err = r.ReadHash16(); err != nil {
			return err
		}
		t.Value = core.String(bytesource.Hex(t.Raw))

	case t.Type == TypeString:
		n, err := r.ReadU16()
		if err != nil {
			return err
		}
		if t.Raw, err = r.Read(int(n)); err != nil {
			return err
		}
		t.Value = core.String(string(t.Raw))

	case t.Type == TypeUint32:
		if t.Raw, err = r.Read(4); err != nil {
			return err
		}
		t.Value = uint32Value(t, leUint(t.Raw))

	case t.Type == TypeBool:
		if t.Raw, err = r.Read(1); err != nil {
			return err
		}
		t.Value = core.Bool(t.Raw[0] == 1)

	case t.Type == TypeBoolArray:
		bits, err := r.ReadU16()
		if err != nil {
			return err
		}
		n := (int(bits) + 7) / 8
		if opts.LegacyBoolArray {
			n = int(bits)/8 + 1
		}
		if t.Raw, err = r.Read(n); err != nil {
			return err
		}
		t.Value = core.Bytes(t.Raw)

	case t.Type == TypeBlob:
		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		if int64(n) > r.Remaining() {
			return core.TruncatedInput.New("blob of %d bytes at offset %d", n, r.Tell())
		}
		if t.Raw, err = r.Read(int(n)); err != nil {
			return err
		}
		t.Value = core.Bytes(t.Raw)

	case t.Type == TypeUint16:
		if t.Raw, err = r.Read(2); err != nil {
			return err
		}
		t.Value = core.Int(int64(leUint(t.Raw)))

	case t.Type == TypeUint8:
		if t.Raw, err = r.Read(1); err != nil {
			return err
		}
		t.Value = core.Int(int64(t.Raw[0]))

	case t.Type == TypeUint64:
		if t.Raw, err = r.Read(8); err != nil {
			return err
		}
		t.Value = core.Uint(leUint(t.Raw))

	case t.Type.IsInlineString():
		if t.Raw, err = r.Read(t.Type.InlineLength()); err != nil {
			return err
		}
		t.Type = TypeString
		t.Value = core.String(string(t.Raw))

	default:
		// FLOAT32, BSOB and unknown codes: nothing is consumed, so whatever
		// follows in the record is read from a misaligned offset.
		if opts.Policy == Strict {
			return core.UnsupportedTagType.New("%s in tag %s at offset %d", t.Type, t.Key(), r.Tell())
		}
		t.Value = core.Null()
	}
	return nil
}

func uint32Value(t *Tag, v uint64) core.Value {
	if t.Named() {
		return core.Int(int64(v))
	}
	switch {
	case datetimeIDs[t.ID]:
		return core.Unix(int64(v))
	case durationIDs[t.ID]:
		return core.String(FormatDuration(v))
	}
	return core.Int(int64(v))
}

// FormatDuration renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(seconds uint64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
