package bencode

import (
	"path"
	"strings"
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

// Legacy clients store the same fact under different names. Within each list
// the first non-zero entry wins, so the encoding order of the dictionary
// never matters.
var (
	aliasName       = []string{"caption", "name", "qBt-name"}
	aliasPath       = []string{"path", "save_path", "qBt-savePath"}
	aliasInfoHash   = []string{"info", "info-hash", "info_hash"}
	aliasAdded      = []string{"added_on", "added_time"}
	aliasCompleted  = []string{"completed_on", "completed_time"}
	aliasLastSeen   = []string{"last_seen_complete"}
	aliasDownloaded = []string{"downloaded", "total_downloaded"}
	aliasUploaded   = []string{"uploaded", "total_uploaded"}
	aliasSeedTime   = []string{"seedtime", "seeding_time"}
	aliasRuntime    = []string{"runtime", "active_time"}
)

// Torrent is the client-side state of one torrent, with aliased fields
// merged.
type Torrent struct {
	// Key identifies the record inside its container: the resume.dat key or
	// the torrents.db id.
	Key string

	Name             string
	Path             string
	InfoHash         string
	Added            time.Time
	Completed        time.Time
	LastSeenComplete time.Time
	Downloaded       int64
	Uploaded         int64
	SeedTime         int64
	Runtime          int64
	Trackers         []string

	// Fields is the undecorated dictionary.
	Fields core.Value
}

// NewTorrent merges the aliased fields of a state dictionary.
func NewTorrent(key string, dict core.Value) Torrent {
	m := dict.AsMap()
	t := Torrent{
		Key:              key,
		Name:             firstNonZero(m, aliasName).AsString(),
		Path:             firstNonZero(m, aliasPath).AsString(),
		InfoHash:         infoHash(firstNonZero(m, aliasInfoHash)),
		Added:            firstNonZero(m, aliasAdded).AsTime(),
		Completed:        firstNonZero(m, aliasCompleted).AsTime(),
		LastSeenComplete: firstNonZero(m, aliasLastSeen).AsTime(),
		Downloaded:       firstNonZero(m, aliasDownloaded).AsInt(),
		Uploaded:         firstNonZero(m, aliasUploaded).AsInt(),
		SeedTime:         firstNonZero(m, aliasSeedTime).AsInt(),
		Runtime:          firstNonZero(m, aliasRuntime).AsInt(),
		Trackers:         trackers(m),
		Fields:           dict,
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(path.Base(strings.ReplaceAll(key, `\`, "/")), ".torrent")
	}
	return t
}

// Metadata flattens the merged fields.
func (t Torrent) Metadata() core.Metadata {
	md := core.Metadata{
		"name":       core.String(t.Name),
		"downloaded": core.Int(t.Downloaded),
		"uploaded":   core.Int(t.Uploaded),
		"seed_time":  core.Int(t.SeedTime),
		"runtime":    core.Int(t.Runtime),
	}
	md.SetIfPresent("path", core.String(t.Path))
	md.SetIfPresent("info_hash", core.String(t.InfoHash))
	md.SetIfPresent("added", core.Time(t.Added))
	md.SetIfPresent("completed", core.Time(t.Completed))
	md.SetIfPresent("last_seen_complete", core.Time(t.LastSeenComplete))
	if len(t.Trackers) > 0 {
		items := make([]core.Value, len(t.Trackers))
		for i, tr := range t.Trackers {
			items[i] = core.String(tr)
		}
		md["trackers"] = core.List(items...)
	}
	return md
}

func firstNonZero(m map[string]core.Value, keys []string) core.Value {
	for _, k := range keys {
		if v, ok := m[k]; ok && !v.IsZero() {
			return v
		}
	}
	return core.Null()
}

// infoHash renders a 20-byte binary hash or a textual one as uppercase hex.
func infoHash(v core.Value) string {
	if b := v.AsBytes(); len(b) == 20 {
		return bytesource.Hex(b)
	}
	return strings.ToUpper(v.AsString())
}

func trackers(m map[string]core.Value) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(v core.Value)
	walk = func(v core.Value) {
		if v.Kind() == core.KindList {
			for _, item := range v.AsList() {
				walk(item)
			}
			return
		}
		if s := v.AsString(); s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	walk(m["trackers"])
	return out
}
