// Package kad decodes the local index files of the Kademlia node embedded in
// eMule: key_index.dat, src_index.dat and preferencesKad.dat.
package kad

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

// Format names, as used in logs and the scan index.
const (
	FormatKeyIndex    = "key_index.dat"
	FormatSrcIndex    = "src_index.dat"
	FormatPreferences = "preferencesKad.dat"
)

// FormatID renders a 128-bit Kad id the way the client displays it: four
// little-endian 32-bit words, each as eight uppercase hex digits.
func FormatID(id []byte) string {
	if len(id) != 16 {
		return bytesource.Hex(id)
	}
	var sb strings.Builder
	for i := 0; i < 16; i += 4 {
		fmt.Fprintf(&sb, "%08X", binary.LittleEndian.Uint32(id[i:i+4]))
	}
	return sb.String()
}

// FormatIP renders an IPv4 address stored as a host-order uint32.
func FormatIP(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

type header struct {
	Version  uint32
	SaveTime time.Time
}

func readHeader(r *bytesource.Reader) (header, error) {
	var h header
	var err error
	if h.Version, err = r.ReadU32(); err != nil {
		return h, err
	}
	t, err := r.ReadU32()
	if err != nil {
		return h, err
	}
	h.SaveTime = core.Unix(int64(t)).AsTime()
	return h, nil
}

func readID(r *bytesource.Reader) ([]byte, error) {
	return r.ReadHash16()
}
