package met

import (
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// KnownEntry is one file the client has hashed, shared or downloaded.
type KnownEntry struct {
	Date       time.Time
	Hash       []byte
	PartHashes [][]byte
	Tags       []tag.Tag
}

// Known is a decoded known.met.
type Known struct {
	Header  uint8
	Entries []KnownEntry
}

// DecodeKnown decodes a known.met container.
func DecodeKnown(r *bytesource.Reader, opts tag.Options) (*Known, bool, error) {
	var out Known
	ok, err := decode(r, opts, FormatKnown, func() error {
		if r.Size() < 5 {
			return core.TruncatedInput.New("%d bytes", r.Size())
		}
		var err error
		if out.Header, err = r.ReadU8(); err != nil {
			return err
		}
		if out.Header != HeaderLegacy && out.Header != HeaderExtended {
			return core.FormatMismatch.New("header 0x%02X", out.Header)
		}

		count, err := r.ReadU32()
		if err != nil {
			return err
		}
		// date + hash + part hash count + tag count
		if err := decoder.Fits(r, uint64(count), 4+16+2+4); err != nil {
			return err
		}
		out.Entries = make([]KnownEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			var e KnownEntry
			if e.Date, err = readDate(r); err != nil {
				return err
			}
			if e.Hash, e.PartHashes, err = readHashSet(r); err != nil {
				return err
			}
			n, err := r.ReadU32()
			if err != nil {
				return err
			}
			if err := decoder.Fits(r, uint64(n), 2); err != nil {
				return err
			}
			if e.Tags, err = tag.DecodeList(r, int(n), opts); err != nil {
				return err
			}
			out.Entries = append(out.Entries, e)
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsKnown reports whether r holds a known.met container.
func IsKnown(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodeKnown(r, opts)
	return ok
}
