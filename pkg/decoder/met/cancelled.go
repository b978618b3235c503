package met

import (
	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// CancelledEntry is one download the user cancelled.
type CancelledEntry struct {
	Hash []byte
	Tags []tag.Tag
}

// Cancelled is a decoded cancelled.met.
type Cancelled struct {
	Header  uint8
	Version uint8
	Seed    uint32
	Entries []CancelledEntry
}

// Extended reports whether the file carries a version and seed.
func (c *Cancelled) Extended() bool { return c.Header == HeaderExtended }

// DecodeCancelled decodes a cancelled.met container.
func DecodeCancelled(r *bytesource.Reader, opts tag.Options) (*Cancelled, bool, error) {
	var out Cancelled
	ok, err := decode(r, opts, FormatCancelled, func() error {
		if r.Size() < 5 {
			return core.TruncatedInput.New("%d bytes", r.Size())
		}
		var err error
		if out.Header, err = r.ReadU8(); err != nil {
			return err
		}
		switch out.Header {
		case HeaderLegacy:
		case HeaderExtended:
			if out.Version, err = r.ReadU8(); err != nil {
				return err
			}
			if out.Seed, err = r.ReadU32(); err != nil {
				return err
			}
		default:
			return core.FormatMismatch.New("header 0x%02X", out.Header)
		}

		count, err := r.ReadU32()
		if err != nil {
			return err
		}
		if err := decoder.Fits(r, uint64(count), 17); err != nil {
			return err
		}
		out.Entries = make([]CancelledEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			var e CancelledEntry
			if e.Hash, err = r.ReadHash16(); err != nil {
				return err
			}
			n, err := r.ReadU8()
			if err != nil {
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

// IsCancelled reports whether r holds a cancelled.met container.
func IsCancelled(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodeCancelled(r, opts)
	return ok
}
