// Package met decodes the tagged-binary containers written by eMule-family
// clients: cancelled.met, known.met, part.met and preferences.dat.
//
// Every decoder is all-or-nothing. It reads from offset 0, must consume the
// input exactly up to its end, and reports "not an instance" instead of an
// error for any structural mismatch.
package met

import (
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// Container header bytes.
const (
	HeaderLegacy   uint8 = 0x0E
	HeaderExtended uint8 = 0x0F

	HeaderPart      uint8 = 0xE0
	HeaderPartSplit uint8 = 0xE1
	HeaderPartLarge uint8 = 0xE2
)

// Format names, as used in logs and the scan index.
const (
	FormatCancelled   = "cancelled.met"
	FormatKnown       = "known.met"
	FormatPart        = "part.met"
	FormatPreferences = "preferences.dat"
)

func decode(r *bytesource.Reader, opts tag.Options, format string, fn func() error) (bool, error) {
	return decoder.Run(r, opts.Log(), format, true, fn)
}

func readDate(r *bytesource.Reader) (time.Time, error) {
	v, err := r.ReadU32()
	if err != nil {
		return time.Time{}, err
	}
	return core.Unix(int64(v)).AsTime(), nil
}

// readHashSet reads a file hash followed by a u16-counted list of part hashes.
func readHashSet(r *bytesource.Reader) ([]byte, [][]byte, error) {
	hash, err := r.ReadHash16()
	if err != nil {
		return nil, nil, err
	}
	n, err := r.ReadU16()
	if err != nil {
		return nil, nil, err
	}
	if err := decoder.Fits(r, uint64(n), 16); err != nil {
		return nil, nil, err
	}
	var parts [][]byte
	for i := 0; i < int(n); i++ {
		h, err := r.ReadHash16()
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, h)
	}
	return hash, parts, nil
}
