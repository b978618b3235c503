package bencode

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
)

// FormatFastResume names single-torrent libtorrent resume files.
const FormatFastResume = "fastresume"

const torrentSuffix = ".torrent"

// Resume is a decoded uTorrent resume.dat.
type Resume struct {
	Torrents []Torrent
}

// parseDict reads the whole source as a bencoded dictionary.
func parseDict(r *bytesource.Reader) (*Document, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] != 'd' {
		return nil, core.FormatMismatch.New("root is not a dictionary")
	}
	data, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func hasTorrentKeys(m map[string]core.Value) bool {
	for k := range m {
		if strings.HasSuffix(k, torrentSuffix) {
			return true
		}
	}
	return false
}

// DecodeResume decodes a resume.dat file: a dictionary whose per-torrent
// entries are keyed by a name ending in ".torrent".
func DecodeResume(r *bytesource.Reader, log *slog.Logger) (*Resume, bool, error) {
	var out Resume
	ok, err := decoder.Run(r, decoder.Logger(log), FormatResume, true, func() error {
		doc, err := parseDict(r)
		if err != nil {
			return err
		}
		m := doc.Root.AsMap()
		keys := make([]string, 0, len(m))
		for k, v := range m {
			if strings.HasSuffix(k, torrentSuffix) && v.Kind() == core.KindMap {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return core.FormatMismatch.New("no torrent entries")
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.Torrents = append(out.Torrents, NewTorrent(k, m[k]))
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsResume reports whether r holds a resume.dat file.
func IsResume(r *bytesource.Reader, log *slog.Logger) bool {
	_, ok, _ := DecodeResume(r, log)
	return ok
}

// DecodeFastResume decodes a libtorrent .fastresume file, which holds the
// state of a single torrent.
func DecodeFastResume(r *bytesource.Reader, log *slog.Logger) (*Torrent, bool, error) {
	var out Torrent
	ok, err := decoder.Run(r, decoder.Logger(log), FormatFastResume, true, func() error {
		doc, err := parseDict(r)
		if err != nil {
			return err
		}
		format, _ := doc.Root.Get("file-format")
		if format.AsString() != "libtorrent resume file" {
			return core.FormatMismatch.New("file-format %q", format.AsString())
		}
		out = NewTorrent("", doc.Root)
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}
