package scan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/consolidate"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/correlate"
	"github.com/aretw0/strata/pkg/decoder/autocomplete"
	"github.com/aretw0/strata/pkg/decoder/bencode"
	"github.com/aretw0/strata/pkg/decoder/ini"
	"github.com/aretw0/strata/pkg/decoder/kad"
	"github.com/aretw0/strata/pkg/decoder/met"
	"github.com/aretw0/strata/pkg/decoder/tag"
	"github.com/aretw0/strata/pkg/decoder/txtsrc"
	"github.com/aretw0/strata/pkg/projector"
)

// Client names recorded on profiles.
const (
	AppEMule       = "eMule"
	AppUTorrent    = "uTorrent"
	AppQBittorrent = "qBittorrent"
)

// Account networks.
const (
	NetworkED2K     = "ed2k"
	NetworkKad      = "kad"
	NetworkUTorrent = "utorrent"
)

// decodeFunc decodes r into a typed record. Errors are byte source
// failures only.
type decodeFunc func(r *bytesource.Reader, tags tag.Options, log *slog.Logger) (any, bool, error)

// emitFunc feeds a decoded record to the partition.
type emitFunc func(p *partition, rec any, src core.Source)

type format struct {
	name   string
	decode decodeFunc
	emit   emitFunc
}

func tagged[T any](fn func(*bytesource.Reader, tag.Options) (*T, bool, error)) decodeFunc {
	return func(r *bytesource.Reader, tags tag.Options, _ *slog.Logger) (any, bool, error) {
		rec, ok, err := fn(r, tags)
		if !ok {
			return nil, false, err
		}
		return rec, true, nil
	}
}

func logged[T any](fn func(*bytesource.Reader, *slog.Logger) (*T, bool, error)) decodeFunc {
	return func(r *bytesource.Reader, _ tag.Options, log *slog.Logger) (any, bool, error) {
		rec, ok, err := fn(r, log)
		if !ok {
			return nil, false, err
		}
		return rec, true, nil
	}
}

func emit[T any](fn func(*partition, *T, core.Source)) emitFunc {
	return func(p *partition, rec any, src core.Source) {
		fn(p, rec.(*T), src)
	}
}

// formats lists every decoder in the order they are tried. More specific
// signatures come first.
var formats = []format{
	{met.FormatPart, tagged(met.DecodePart), emit(emitPart)},
	{met.FormatKnown, tagged(met.DecodeKnown), emit(emitKnown)},
	{met.FormatCancelled, tagged(met.DecodeCancelled), emit(emitCancelled)},
	{kad.FormatKeyIndex, tagged(kad.DecodeKeyIndex), emit(emitKeyIndex)},
	{kad.FormatSrcIndex, tagged(kad.DecodeSrcIndex), emit(emitSrcIndex)},
	{met.FormatPreferences, tagged(met.DecodePreferences), emit(emitPreferences)},
	{txtsrc.Format, tagged(txtsrc.Decode), emit(emitTxtsrc)},
	{ini.Format, logged(ini.Decode), emit(emitIni)},
	{autocomplete.Format, logged(autocomplete.Decode), emit(emitAutocomplete)},
	{bencode.FormatDatabase, logged(bencode.DecodeDatabase), emit(emitDatabase)},
	{bencode.FormatResume, logged(bencode.DecodeResume), emit(emitResume)},
	{bencode.FormatSettings, logged(bencode.DecodeSettings), emit(emitSettings)},
	{bencode.FormatFastResume, logged(bencode.DecodeFastResume), emit(emitFastResume)},
	{bencode.FormatTorrent, logged(bencode.DecodeMetainfo), emit(emitTorrent)},
	// Its only signature is the file size, so it is tried last.
	{kad.FormatPreferences, tagged(kad.DecodePreferences), emit(emitKadPreferences)},
}

// Formats returns the names of all decoders in priority order.
func Formats() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.name
	}
	return names
}

func selectFormats(names []string) ([]format, error) {
	if len(names) == 0 {
		return formats, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []format
	for _, f := range formats {
		if want[f.name] {
			out = append(out, f)
			delete(want, f.name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("unknown format %q", n)
	}
	return out, nil
}

func emitPart(p *partition, rec *met.Part, src core.Source) {
	proj := projector.Project(rec.Tags, p.log)
	md := proj.Metadata
	md[projector.KeyTotalGapSize] = core.Uint(rec.TotalGapSize)
	if len(rec.Gaps) > 0 {
		md[projector.KeyGaps] = projector.GapList(rec.Gaps)
	}
	hash := bytesource.Hex(rec.Hash)
	md["hash"] = core.String(hash)
	md.SetIfPresent("date", core.Time(rec.Date))
	md["part_hashes"] = core.Int(int64(len(rec.PartHashes)))
	md["status"] = core.String("incomplete")
	md["artifact"] = core.String(met.FormatPart)

	name := md.String("name")
	if name == "" {
		name = strings.TrimSuffix(src.Base(), ".met")
	}
	p.observe(consolidate.LocalFile(p.dir, name, md, src))
	p.observe(p.corr.AddPrimary(correlate.Primary{Source: src, Name: name, Hash: hash, Attributes: md})...)
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule}, src)
}

func emitCancelled(p *partition, rec *met.Cancelled, src core.Source) {
	for _, e := range rec.Entries {
		md := projector.Project(e.Tags, p.log).Metadata
		hash := bytesource.Hex(e.Hash)
		md["hash"] = core.String(hash)
		md["status"] = core.String("cancelled")
		md["artifact"] = core.String(met.FormatCancelled)
		name := md.String("name")
		if name == "" {
			name = hash
		}
		p.observe(consolidate.LocalFile(p.dir, name, md, src))
	}
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule}, src)
}

func emitKnown(p *partition, rec *met.Known, src core.Source) {
	for _, e := range rec.Entries {
		md := projector.Project(e.Tags, p.log).Metadata
		hash := bytesource.Hex(e.Hash)
		md["hash"] = core.String(hash)
		md.SetIfPresent("date", core.Time(e.Date))
		md["part_hashes"] = core.Int(int64(len(e.PartHashes)))
		md["status"] = core.String("known")
		md["artifact"] = core.String(met.FormatKnown)
		name := md.String("name")
		if name == "" {
			name = hash
		}
		p.observe(consolidate.LocalFile(p.dir, name, md, src))
	}
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule}, src)
}

func emitKeyIndex(p *partition, rec *kad.KeyIndex, src core.Source) {
	for _, k := range rec.Keys {
		keyword := kad.FormatID(k.ID)
		for _, s := range k.Sources {
			hash := kad.FormatID(s.ID)
			for _, n := range s.Names {
				md := projector.Project(n.Tags, p.log).Metadata
				md["keyword"] = core.String(keyword)
				md["hash"] = core.String(hash)
				md.SetIfPresent("lifetime", core.Time(n.Lifetime))
				md["artifact"] = core.String(kad.FormatKeyIndex)
				if len(n.FileNames) > 0 {
					names := make([]core.Value, len(n.FileNames))
					for i, fn := range n.FileNames {
						names[i] = core.String(fn.Name)
					}
					md["file_names"] = core.List(names...)
				}
				if len(n.AICHHashes) > 0 {
					md["aich_hash"] = core.String(bytesource.Hex(n.AICHHashes[0]))
				}

				name := md.String("name")
				if name == "" && len(n.FileNames) > 0 {
					name = n.FileNames[0].Name
				}
				if len(n.IPs) == 0 {
					p.observe(consolidate.RemoteFile(p.dir, hash, "", name, md, src))
					continue
				}
				for _, ip := range n.IPs {
					peer := md.Clone()
					peer["peer_ip"] = core.String(ip.Addr())
					peer.SetIfPresent("last_publish", core.Time(ip.LastPublish))
					p.observe(consolidate.RemoteFile(p.dir, hash, ip.Addr(), name, peer, src))
				}
			}
		}
	}
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule}, src)
}

func emitSrcIndex(p *partition, rec *kad.SrcIndex, src core.Source) {
	for _, k := range rec.Keys {
		hash := kad.FormatID(k.ID)
		for _, s := range k.Sources {
			for _, n := range s.Names {
				md := projector.Project(n.Tags, p.log).Metadata
				md["hash"] = core.String(hash)
				md["source_id"] = core.String(kad.FormatID(s.ID))
				md.SetIfPresent("lifetime", core.Time(n.Lifetime))
				md["artifact"] = core.String(kad.FormatSrcIndex)

				endpoint := ""
				if ipv, ok := md["source_ip"]; ok {
					ip := kad.FormatIP(uint32(ipv.AsUint()))
					md["peer_ip"] = core.String(ip)
					endpoint = correlate.Endpoint(ip, uint16(md.Int("source_port")))
					md["peer_endpoint"] = core.String(endpoint)
				}
				p.observe(consolidate.RemoteFile(p.dir, hash, endpoint, md.String("name"), md, src))
			}
		}
	}
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule}, src)
}

func emitKadPreferences(p *partition, rec *kad.Preferences, src core.Source) {
	id := kad.FormatID(rec.ClientID)
	md := core.Metadata{
		"kad_id":      core.String(id),
		"external_ip": core.String(rec.Addr()),
		"artifact":    core.String(kad.FormatPreferences),
	}
	p.observe(consolidate.Account(p.dir, NetworkKad, id, md, src))
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule, KadID: id}, src)
}

func emitPreferences(p *partition, rec *met.Preferences, src core.Source) {
	hash := bytesource.Hex(rec.UserHash)
	md := core.Metadata{
		"user_hash": core.String(hash),
		"artifact":  core.String(met.FormatPreferences),
	}
	p.observe(consolidate.Account(p.dir, NetworkED2K, hash, md, src))
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule, UserHash: hash}, src)
}

func emitTxtsrc(p *partition, rec *txtsrc.List, src core.Source) {
	p.observe(p.corr.AddCompanion(correlate.Companion{Source: src, Peers: rec.Sources})...)
}

func emitIni(p *partition, rec *ini.Preferences, src core.Source) {
	p.cons.ObserveProfile(p.dir, consolidate.Profile{
		App:         AppEMule,
		AppVersion:  rec.AppVersion,
		Username:    rec.Nick,
		IncomingDir: rec.IncomingDir,
		TempDirs:    rec.TempDirs,
	}, src)
}

func emitAutocomplete(p *partition, rec *autocomplete.List, src core.Source) {
	for i, entry := range rec.Entries {
		md := core.Metadata{
			"field":    core.String("search"),
			"value":    core.String(entry),
			"position": core.Int(int64(i)),
			"artifact": core.String(autocomplete.Format),
		}
		p.observe(consolidate.Autofill(p.dir, "search", entry, md, src))
	}
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppEMule}, src)
}

func observeTorrents(p *partition, src core.Source, artifact string, torrents []bencode.Torrent) {
	for _, t := range torrents {
		md := t.Metadata()
		md["artifact"] = core.String(artifact)
		p.observe(consolidate.LocalFile(p.dir, t.Name, md, src))
	}
}

func emitDatabase(p *partition, rec *bencode.Database, src core.Source) {
	observeTorrents(p, src, bencode.FormatDatabase, rec.Torrents)
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppQBittorrent}, src)
}

func emitResume(p *partition, rec *bencode.Resume, src core.Source) {
	observeTorrents(p, src, bencode.FormatResume, rec.Torrents)
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppUTorrent}, src)
}

func emitFastResume(p *partition, rec *bencode.Torrent, src core.Source) {
	t := *rec
	if t.Name == "" {
		t.Name = strings.TrimSuffix(src.Base(), ".fastresume")
	}
	observeTorrents(p, src, bencode.FormatFastResume, []bencode.Torrent{t})
	p.cons.ObserveProfile(p.dir, consolidate.Profile{App: AppQBittorrent}, src)
}

func emitSettings(p *partition, rec *bencode.Settings, src core.Source) {
	md := rec.Metadata()
	md["artifact"] = core.String(bencode.FormatSettings)
	if rec.ClientID != "" {
		p.observe(consolidate.Account(p.dir, NetworkUTorrent, rec.ClientID, md, src))
	}
	p.cons.ObserveProfile(p.dir, consolidate.Profile{
		App:      AppUTorrent,
		ClientID: rec.ClientID,
		Username: rec.Username,
	}, src)
}

func emitTorrent(p *partition, rec *bencode.Metainfo, src core.Source) {
	md := rec.Metadata()
	md["artifact"] = core.String(bencode.FormatTorrent)
	name := rec.Name
	if name == "" {
		name = strings.TrimSuffix(src.Base(), ".torrent")
	}
	p.observe(consolidate.LocalFile(p.dir, name, md, src))
}
