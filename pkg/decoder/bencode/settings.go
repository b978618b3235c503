package bencode

import (
	"log/slog"
	"time"
	"unicode"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder"
)

// Settings is a decoded uTorrent settings.dat.
type Settings struct {
	ClientID     string
	BornOn       time.Time
	Username     string
	DownloadDir  string
	CompletedDir string
	Fields       core.Value
}

// Metadata flattens the account-relevant settings.
func (s *Settings) Metadata() core.Metadata {
	md := core.Metadata{"client_id": core.String(s.ClientID)}
	md.SetIfPresent("born_on", core.Time(s.BornOn))
	md.SetIfPresent("username", core.String(s.Username))
	md.SetIfPresent("download_dir", core.String(s.DownloadDir))
	md.SetIfPresent("completed_dir", core.String(s.CompletedDir))
	return md
}

// DecodeSettings decodes a settings.dat file: a dictionary without torrent
// entries that carries a client id or an install date.
func DecodeSettings(r *bytesource.Reader, log *slog.Logger) (*Settings, bool, error) {
	var out Settings
	ok, err := decoder.Run(r, decoder.Logger(log), FormatSettings, true, func() error {
		doc, err := parseDict(r)
		if err != nil {
			return err
		}
		m := doc.Root.AsMap()
		if hasTorrentKeys(m) {
			return core.FormatMismatch.New("torrent entries present")
		}
		cid, hasCID := m["cid"]
		born, hasBorn := m["born_on"]
		if !hasCID && !hasBorn {
			return core.FormatMismatch.New("no cid or born_on")
		}
		out = Settings{
			ClientID:     clientID(cid),
			BornOn:       born.AsTime(),
			Username:     m["webui.username"].AsString(),
			DownloadDir:  m["dir_active_download"].AsString(),
			CompletedDir: m["dir_completed_download"].AsString(),
			Fields:       doc.Root,
		}
		if out.ClientID == "" && !out.BornOn.IsZero() {
			out.ClientID = out.BornOn.Format("20060102150405")
		}
		return nil
	})
	if !ok {
		return nil, false, err
	}
	return &out, true, nil
}

// IsSettings reports whether r holds a settings.dat file.
func IsSettings(r *bytesource.Reader, log *slog.Logger) bool {
	_, ok, _ := DecodeSettings(r, log)
	return ok
}

// clientID renders printable ids as text and binary ones as hex.
func clientID(v core.Value) string {
	if v.Kind() == core.KindBytes {
		return v.AsHex()
	}
	s := v.AsString()
	for _, c := range s {
		if !unicode.IsPrint(c) {
			return v.AsHex()
		}
	}
	return s
}
