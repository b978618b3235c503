// Package projector flattens decoded tag lists into semantic metadata maps.
package projector

import (
	"log/slog"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// Keys always present in a projection.
const (
	KeyTotalGapSize = "total_gap_size"
	KeySize         = "size"
	KeyUploaded     = "uploaded"
	KeyGaps         = "gaps"
	KeyFlags        = "flags"
)

var names = map[uint8]string{
	tag.IDFileName:           "name",
	tag.IDFileType:           "type",
	tag.IDFileFormat:         "format",
	tag.IDLastSeenComplete:   "last_seen_complete",
	tag.IDTransferred:        "transferred",
	tag.IDPartFileName:       "part_name",
	tag.IDOldDLPriority:      "download_priority_legacy",
	tag.IDStatus:             "status",
	tag.IDSources:            "sources",
	tag.IDPermissions:        "permissions",
	tag.IDOldULPriority:      "upload_priority_legacy",
	tag.IDDLPriority:         "download_priority",
	tag.IDULPriority:         "upload_priority",
	tag.IDCompression:        "compression_gain",
	tag.IDCorrupted:          "corruption_loss",
	tag.IDKadLastPublishKey:  "kad_last_publish_key",
	tag.IDKadLastPublishSrc:  "kad_last_publish_source",
	tag.IDDLActiveTime:       "download_active_time",
	tag.IDCorruptedParts:     "corrupted_parts",
	tag.IDDLPreview:          "download_preview",
	tag.IDKadLastPublishNote: "kad_last_publish_notes",
	tag.IDAICHHash:           "aich_hash",
	tag.IDFileHash:           "hash",
	tag.IDCompleteSources:    "complete_sources",
	tag.IDCollectionAuthor:   "collection_author",
	tag.IDCollectionAuthKey:  "collection_author_key",
	tag.IDPublishInfo:        "publish_info",
	tag.IDLastShared:         "last_shared",
	tag.IDAllTimeRequested:   "requests",
	tag.IDAllTimeAccepted:    "accepted_requests",
	tag.IDCategory:           "category",
	tag.IDMaxSources:         "max_sources",
	tag.IDMediaArtist:        "artist",
	tag.IDMediaAlbum:         "album",
	tag.IDMediaTitle:         "title",
	tag.IDMediaLength:        "length",
	tag.IDMediaBitrate:       "bitrate",
	tag.IDMediaCodec:         "codec",
	tag.IDEncryption:         "encryption",
	tag.IDFileComment:        "comment",
	tag.IDFileRating:         "rating",
	tag.IDSourceUDPPort:      "source_udp_port",
	tag.IDSourcePort:         "source_port",
	tag.IDSourceIP:           "source_ip",
	tag.IDSourceType:         "source_type",
}

// Projection is the flat view of one record.
type Projection struct {
	Metadata core.Metadata
	Gaps     []tag.Gap
}

// counter is a 64-bit value stored as independent low and high halves.
type counter struct{ lo, hi uint64 }

func (c counter) value() uint64 { return c.lo | c.hi<<32 }

// Project maps tags to semantic keys. Gap markers are paired, split counters
// are combined, and unrecognized ids are dropped.
func Project(tags []tag.Tag, log *slog.Logger) Projection {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	md := core.Metadata{}
	var gaps tag.Gaps
	var size, uploaded counter

	for _, t := range tags {
		if gaps.Feed(t) {
			continue
		}
		if t.Named() {
			log.Debug("dropping named tag", "tag", t.Key())
			continue
		}
		switch t.ID {
		case tag.IDFileSize:
			size.lo = t.Value.AsUint()
		case tag.IDFileSizeHi:
			size.hi = t.Value.AsUint()
		case tag.IDAllTimeTransferred:
			uploaded.lo = t.Value.AsUint()
		case tag.IDAllTimeTransHi:
			uploaded.hi = t.Value.AsUint()
		case tag.IDFlags:
			md[KeyFlags] = core.Bool(len(t.Raw) > 0)
		case tag.IDAICHHashSet:
		default:
			name, ok := names[t.ID]
			if !ok {
				log.Debug("dropping unrecognized tag", "tag", t.Key(), "type", t.Type.String())
				continue
			}
			md[name] = t.Value
		}
	}

	sorted := gaps.Sorted()
	md[KeyTotalGapSize] = core.Uint(gaps.Total())
	md[KeySize] = core.Uint(size.value())
	md[KeyUploaded] = core.Uint(uploaded.value())
	if len(sorted) > 0 {
		md[KeyGaps] = GapList(sorted)
	}
	return Projection{Metadata: md, Gaps: sorted}
}

// GapList renders gaps as a list of {start, end} maps.
func GapList(gaps []tag.Gap) core.Value {
	items := make([]core.Value, len(gaps))
	for i, g := range gaps {
		items[i] = core.Map(map[string]core.Value{
			"start": core.Uint(g.Start),
			"end":   core.Uint(g.End),
		})
	}
	return core.List(items...)
}
