package kad

import (
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// SrcIndexVersion is the newest src_index.dat layout understood.
const SrcIndexVersion = 2

// SrcIndex is a decoded src_index.dat: file → source → published entries.
type SrcIndex struct {
	Version  uint32
	SaveTime time.Time
	Keys     []SrcKey
}

// SrcKey is one indexed file hash.
type SrcKey struct {
	ID      []byte
	Sources []SrcSource
}

// SrcSource is one peer offering the file.
type SrcSource struct {
	ID    []byte
	Names []SrcName
}

// SrcName is one publication by a source. Its tags carry the peer address.
type SrcName struct {
	Lifetime time.Time
	Tags     []tag.Tag
}

// DecodeSrcIndex decodes a src_index.dat file.
func DecodeSrcIndex(r *bytesource.Reader, opts tag.Options) (*SrcIndex, bool, error) {
	var out SrcIndex
	ok, err := decoder.Run(r, opts.Log(), FormatSrcIndex, true, func() error {
		if r.Size() < 8 {
			return core.TruncatedInput.New("%d bytes", r.Size())
		}
		h, err := readHeader(r)
		if err != nil {
			return err
		}
		out.Version, out.SaveTime = h.Version, h.SaveTime
		if h.Version == 0 {
			return nil
		}
		if h.Version > SrcIndexVersion {
			opts.Log().Warn("decoding newer layout best effort",
				"format", FormatSrcIndex,
				"error", core.VersionNewerThanKnown.New("version %d, known %d", h.Version, SrcIndexVersion),
			)
		}

		keys, err := r.ReadU32()
		if err != nil {
			return err
		}
		if err := decoder.Fits(r, uint64(keys), 16+4); err != nil {
			return err
		}
		for i := uint32(0); i < keys; i++ {
			var k SrcKey
			if k.ID, err = readID(r); err != nil {
				return err
			}
			sources, err := r.ReadU32()
			if err != nil {
				return err
			}
			if err := decoder.Fits(r, uint64(sources), 16+4); err != nil {
				return err
			}
			for j := uint32(0); j < sources; j++ {
				var s SrcSource
				if s.ID, err = readID(r); err != nil {
					return err
				}
				names, err := r.ReadU32()
				if err != nil {
					return err
				}
				if err := decoder.Fits(r, uint64(names), 4+1); err != nil {
					return err
				}
				for n := uint32(0); n < names; n++ {
					var name SrcName
					lifetime, err := r.ReadU32()
					if err != nil {
						return err
					}
					name.Lifetime = core.Unix(int64(lifetime)).AsTime()
					count, err := r.ReadU8()
					if err != nil {
						return err
					}
					if name.Tags, err = tag.DecodeList(r, int(count), opts); err != nil {
						return err
					}
					s.Names = append(s.Names, name)
				}
				k.Sources = append(k.Sources, s)
			}
			out.Keys = append(out.Keys, k)
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsSrcIndex reports whether r holds a src_index.dat file.
func IsSrcIndex(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodeSrcIndex(r, opts)
	return ok
}
