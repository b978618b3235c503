package met

import (
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// eDonkey writers leave this value at offset 24 of a 0xE0 file whose body
// uses the new-style layout.
const (
	newStyleOffset = 24
	newStyleMagic  = 0x01020000
)

// Part is a decoded part.met: the state of one unfinished download.
type Part struct {
	Header     uint8
	NewStyle   bool
	Date       time.Time
	Hash       []byte
	PartHashes [][]byte

	// Tags excludes the gap boundary tags, which are folded into Gaps.
	Tags         []tag.Tag
	Gaps         []tag.Gap
	TotalGapSize uint64
}

// DecodePart decodes a part.met container.
func DecodePart(r *bytesource.Reader, opts tag.Options) (*Part, bool, error) {
	var out Part
	ok, err := decode(r, opts, FormatPart, func() error {
		if r.Size() < 26 {
			return core.TruncatedInput.New("%d bytes", r.Size())
		}
		var err error
		if out.Header, err = r.ReadU8(); err != nil {
			return err
		}
		switch out.Header {
		case HeaderPart:
			if out.NewStyle, err = probeNewStyle(r); err != nil {
				return err
			}
		case HeaderPartSplit:
			out.NewStyle = true
		case HeaderPartLarge:
		default:
			return core.FormatMismatch.New("header 0x%02X", out.Header)
		}

		if out.NewStyle {
			err = out.readNewStyleBody(r)
		} else {
			if out.Date, err = readDate(r); err == nil {
				out.Hash, out.PartHashes, err = readHashSet(r)
			}
		}
		if err != nil {
			return err
		}

		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		if err := decoder.Fits(r, uint64(n), 2); err != nil {
			return err
		}
		tags, err := tag.DecodeList(r, int(n), opts)
		if err != nil {
			return err
		}

		var gaps tag.Gaps
		for _, t := range tags {
			if !gaps.Feed(t) {
				out.Tags = append(out.Tags, t)
			}
		}
		if gaps.Pending() > 0 {
			opts.Log().Debug("unterminated gaps", "format", FormatPart, "pending", gaps.Pending())
		}
		out.Gaps = gaps.Sorted()
		out.TotalGapSize = gaps.Total()
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// probeNewStyle peeks at the fixed offset for the eDonkey magic and leaves
// the cursor right after the header byte.
func probeNewStyle(r *bytesource.Reader) (bool, error) {
	if r.Size() < newStyleOffset+4 {
		return false, nil
	}
	if err := r.Seek(newStyleOffset); err != nil {
		return false, err
	}
	v, err := r.ReadU32()
	if err != nil {
		return false, err
	}
	if err := r.Seek(1); err != nil {
		return false, err
	}
	return v == newStyleMagic, nil
}

func (p *Part) readNewStyleBody(r *bytesource.Reader) error {
	lead, err := r.ReadU32()
	if err != nil {
		return err
	}
	if lead == 0 {
		p.Hash, p.PartHashes, err = readHashSet(r)
		return err
	}
	if err := r.Seek(2); err != nil {
		return err
	}
	if p.Date, err = readDate(r); err != nil {
		return err
	}
	p.Hash, err = r.ReadHash16()
	return err
}

// IsPart reports whether r holds a part.met container.
func IsPart(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodePart(r, opts)
	return ok
}
