package met

import (
	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

const (
	preferencesVersion  uint8 = 0x14
	preferencesSize           = 17
	preferencesFullSize       = preferencesSize + 44
)

// Placement is the main window geometry saved after the user hash.
type Placement struct {
	Length  uint32
	Flags   uint32
	ShowCmd uint32
	Min     [2]int32
	Max     [2]int32
	Normal  [4]int32
}

// Preferences is a decoded preferences.dat.
type Preferences struct {
	Version   uint8
	UserHash  []byte
	Placement *Placement
}

// DecodePreferences decodes a preferences.dat file.
func DecodePreferences(r *bytesource.Reader, opts tag.Options) (*Preferences, bool, error) {
	var out Preferences
	ok, err := decode(r, opts, FormatPreferences, func() error {
		if r.Size() != preferencesSize && r.Size() != preferencesFullSize {
			return core.FormatMismatch.New("size %d", r.Size())
		}
		var err error
		if out.Version, err = r.ReadU8(); err != nil {
			return err
		}
		if out.Version != preferencesVersion {
			return core.FormatMismatch.New("version 0x%02X", out.Version)
		}
		if out.UserHash, err = r.ReadHash16(); err != nil {
			return err
		}
		if r.EOF() {
			return nil
		}
		out.Placement, err = readPlacement(r)
		return err
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

func readPlacement(r *bytesource.Reader) (*Placement, error) {
	var words [11]uint32
	for i := range words {
		v, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		words[i] = v
	}
	return &Placement{
		Length:  words[0],
		Flags:   words[1],
		ShowCmd: words[2],
		Min:     [2]int32{int32(words[3]), int32(words[4])},
		Max:     [2]int32{int32(words[5]), int32(words[6])},
		Normal:  [4]int32{int32(words[7]), int32(words[8]), int32(words[9]), int32(words[10])},
	}, nil
}

// IsPreferences reports whether r holds a preferences.dat file.
func IsPreferences(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodePreferences(r, opts)
	return ok
}
