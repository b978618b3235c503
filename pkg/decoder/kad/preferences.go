package kad

import (
	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// Preferences is a decoded preferencesKad.dat.
type Preferences struct {
	IP       uint32
	ClientID []byte

	// Trailer is the optional last byte, nil when absent.
	Trailer *uint8
}

// Addr renders the last known external IP.
func (p *Preferences) Addr() string { return FormatIP(p.IP) }

// DecodePreferences decodes a preferencesKad.dat file.
func DecodePreferences(r *bytesource.Reader, opts tag.Options) (*Preferences, bool, error) {
	var out Preferences
	ok, err := decoder.Run(r, opts.Log(), FormatPreferences, true, func() error {
		if r.Size() != 22 && r.Size() != 23 {
			return core.FormatMismatch.New("size %d", r.Size())
		}
		all, err := r.Peek(int(r.Size()))
		if err != nil {
			return err
		}
		if printable(all) {
			return core.FormatMismatch.New("printable text")
		}
		if out.IP, err = r.ReadU32(); err != nil {
			return err
		}
		if err := r.Skip(2); err != nil {
			return err
		}
		if out.ClientID, err = readID(r); err != nil {
			return err
		}
		if !r.EOF() {
			b, err := r.ReadU8()
			if err != nil {
				return err
			}
			out.Trailer = &b
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// printable reports whether b is plain ASCII text. A random 16-byte client
// id practically never is, while short text and bencoded files always are.
func printable(b []byte) bool {
	for _, c := range b {
		if (c < 0x20 || c > 0x7E) && c != '\t' && c != '\r' && c != '\n' {
			return false
		}
	}
	return true
}

// IsPreferences reports whether r holds a preferencesKad.dat file.
func IsPreferences(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodePreferences(r, opts)
	return ok
}
