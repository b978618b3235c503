package bencode

import (
	"crypto/sha1"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
)

// File is one file of a multi-file torrent.
type File struct {
	Path   string
	Length int64
}

// Metainfo is a decoded .torrent file.
type Metainfo struct {
	InfoHash     string
	Name         string
	Length       int64
	Files        []File
	Announce     []string
	Comment      string
	CreatedBy    string
	CreationDate time.Time
	Private      bool
}

// Metadata flattens the metainfo.
func (mi *Metainfo) Metadata() core.Metadata {
	md := core.Metadata{
		"name":      core.String(mi.Name),
		"info_hash": core.String(mi.InfoHash),
		"size":      core.Int(mi.Length),
		"private":   core.Bool(mi.Private),
	}
	md.SetIfPresent("comment", core.String(mi.Comment))
	md.SetIfPresent("created_by", core.String(mi.CreatedBy))
	md.SetIfPresent("creation_date", core.Time(mi.CreationDate))
	if len(mi.Announce) > 0 {
		items := make([]core.Value, len(mi.Announce))
		for i, a := range mi.Announce {
			items[i] = core.String(a)
		}
		md["trackers"] = core.List(items...)
	}
	return md
}

// DecodeMetainfo decodes a .torrent file. The info hash is the SHA-1 of the
// encoded info dictionary exactly as stored.
func DecodeMetainfo(r *bytesource.Reader, log *slog.Logger) (*Metainfo, bool, error) {
	var out Metainfo
	ok, err := decoder.Run(r, decoder.Logger(log), FormatTorrent, true, func() error {
		doc, err := parseDict(r)
		if err != nil {
			return err
		}
		info, ok := doc.Root.Get("info")
		if !ok || info.Kind() != core.KindMap {
			return core.FormatMismatch.New("no info dictionary")
		}
		sum := sha1.Sum(doc.Raw["info"])
		out.InfoHash = bytesource.Hex(sum[:])

		im := info.AsMap()
		out.Name = im["name"].AsString()
		out.Private = im["private"].AsInt() == 1
		if length, ok := im["length"]; ok {
			out.Length = length.AsInt()
		}
		for _, f := range im["files"].AsList() {
			fm := f.AsMap()
			var parts []string
			for _, p := range fm["path"].AsList() {
				parts = append(parts, p.AsString())
			}
			file := File{Path: strings.Join(parts, "/"), Length: fm["length"].AsInt()}
			out.Files = append(out.Files, file)
			out.Length += file.Length
		}

		root := doc.Root.AsMap()
		out.Announce = trackers(map[string]core.Value{
			"trackers": core.List(root["announce"], root["announce-list"]),
		})
		out.Comment = root["comment"].AsString()
		out.CreatedBy = root["created by"].AsString()
		out.CreationDate = root["creation date"].AsTime()
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsMetainfo reports whether r holds a .torrent file.
func IsMetainfo(r *bytesource.Reader, log *slog.Logger) bool {
	_, ok, _ := DecodeMetainfo(r, log)
	return ok
}
