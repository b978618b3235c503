package kad

import (
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// KeyIndexVersion is the newest key_index.dat layout understood.
const KeyIndexVersion = 4

// KeyIndex is a decoded key_index.dat: keyword → source → published names.
type KeyIndex struct {
	Version  uint32
	SaveTime time.Time
	ID       []byte
	Keys     []Key
}

// Key is one indexed keyword hash.
type Key struct {
	ID      []byte
	Sources []KeySource
}

// KeySource is one file published under a keyword.
type KeySource struct {
	ID    []byte
	Names []KeyName
}

// KeyName is one publication of a file under a keyword.
type KeyName struct {
	Lifetime   time.Time
	AICHHashes [][]byte
	FileNames  []FileName
	IPs        []Publisher
	Tags       []tag.Tag
}

// FileName is a file name with the number of publishers that used it.
type FileName struct {
	Name       string
	Popularity uint32
}

// Publisher is a node that published the name.
type Publisher struct {
	IP          uint32
	LastPublish time.Time
	AICHIndex   uint8
}

// Addr renders the publisher IP.
func (p Publisher) Addr() string { return FormatIP(p.IP) }

// DecodeKeyIndex decodes a key_index.dat file. Versions newer than
// KeyIndexVersion are decoded best effort with the newest known layout.
func DecodeKeyIndex(r *bytesource.Reader, opts tag.Options) (*KeyIndex, bool, error) {
	var out KeyIndex
	ok, err := decoder.Run(r, opts.Log(), FormatKeyIndex, true, func() error {
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
		if h.Version > KeyIndexVersion {
			opts.Log().Warn("decoding newer layout best effort",
				"format", FormatKeyIndex,
				"error", core.VersionNewerThanKnown.New("version %d, known %d", h.Version, KeyIndexVersion),
			)
		}

		if out.ID, err = readID(r); err != nil {
			return err
		}
		keys, err := r.ReadU32()
		if err != nil {
			return err
		}
		if err := decoder.Fits(r, uint64(keys), 16+4); err != nil {
			return err
		}
		out.Keys = make([]Key, 0, keys)
		for i := uint32(0); i < keys; i++ {
			k, err := readKey(r, h.Version, opts)
			if err != nil {
				return err
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

func readKey(r *bytesource.Reader, version uint32, opts tag.Options) (Key, error) {
	var k Key
	var err error
	if k.ID, err = readID(r); err != nil {
		return k, err
	}
	sources, err := r.ReadU32()
	if err != nil {
		return k, err
	}
	if err := decoder.Fits(r, uint64(sources), 16+4); err != nil {
		return k, err
	}
	for i := uint32(0); i < sources; i++ {
		var s KeySource
		if s.ID, err = readID(r); err != nil {
			return k, err
		}
		names, err := r.ReadU32()
		if err != nil {
			return k, err
		}
		if err := decoder.Fits(r, uint64(names), 4+1); err != nil {
			return k, err
		}
		for j := uint32(0); j < names; j++ {
			n, err := readKeyName(r, version, opts)
			if err != nil {
				return k, err
			}
			s.Names = append(s.Names, n)
		}
		k.Sources = append(k.Sources, s)
	}
	return k, nil
}

func readKeyName(r *bytesource.Reader, version uint32, opts tag.Options) (KeyName, error) {
	var n KeyName
	lifetime, err := r.ReadU32()
	if err != nil {
		return n, err
	}
	n.Lifetime = core.Unix(int64(lifetime)).AsTime()

	if version >= 4 {
		count, err := r.ReadU16()
		if err != nil {
			return n, err
		}
		if err := decoder.Fits(r, uint64(count), 20); err != nil {
			return n, err
		}
		for i := 0; i < int(count); i++ {
			h, err := r.Read(20)
			if err != nil {
				return n, err
			}
			n.AICHHashes = append(n.AICHHashes, h)
		}
	}

	if version >= 3 {
		count, err := r.ReadU32()
		if err != nil {
			return n, err
		}
		if err := decoder.Fits(r, uint64(count), 2+4); err != nil {
			return n, err
		}
		for i := uint32(0); i < count; i++ {
			name, err := r.ReadString16()
			if err != nil {
				return n, err
			}
			pop, err := r.ReadU32()
			if err != nil {
				return n, err
			}
			n.FileNames = append(n.FileNames, FileName{Name: name, Popularity: pop})
		}

		count, err = r.ReadU32()
		if err != nil {
			return n, err
		}
		if err := decoder.Fits(r, uint64(count), 8); err != nil {
			return n, err
		}
		for i := uint32(0); i < count; i++ {
			var p Publisher
			if p.IP, err = r.ReadU32(); err != nil {
				return n, err
			}
			t, err := r.ReadU32()
			if err != nil {
				return n, err
			}
			p.LastPublish = core.Unix(int64(t)).AsTime()
			if version >= 4 {
				if p.AICHIndex, err = r.ReadU8(); err != nil {
					return n, err
				}
			}
			n.IPs = append(n.IPs, p)
		}
	}

	tags, err := r.ReadU8()
	if err != nil {
		return n, err
	}
	n.Tags, err = tag.DecodeList(r, int(tags), opts)
	return n, err
}

// IsKeyIndex reports whether r holds a key_index.dat file.
func IsKeyIndex(r *bytesource.Reader, opts tag.Options) bool {
	_, ok, _ := DecodeKeyIndex(r, opts)
	return ok
}
