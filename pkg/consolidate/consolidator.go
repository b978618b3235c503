// Package consolidate merges per-file observations of the same logical
// entity into one evidence record.
//
// Precedence is deletion aware: the first observation becomes the winning
// source, and a later one takes over only when the winner came from a
// deleted file and it did not. The winner's attributes are kept whole, and
// every contributing source is kept as provenance.
package consolidate

import (
	"encoding/hex"
	"log/slog"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/aretw0/strata/pkg/core"
)

// provenance tracks the winning source and every contributing one.
type provenance struct {
	hasWinner     bool
	winnerDeleted bool
	winner        int
	sources       []core.Source
	seen          map[core.Source]int
}

// admit records sources and reports whether their data may overwrite the
// current fields. The first of sources becomes the winner on overwrite.
func (p *provenance) admit(deleted bool, sources []core.Source) bool {
	overwrite := !p.hasWinner || (p.winnerDeleted && !deleted)
	if p.seen == nil {
		p.seen = make(map[core.Source]int)
	}
	for i, s := range sources {
		at, ok := p.seen[s]
		if !ok {
			at = len(p.sources)
			p.seen[s] = at
			p.sources = append(p.sources, s)
		}
		if overwrite && i == 0 {
			p.winner = at
		}
	}
	if overwrite {
		p.hasWinner = true
		p.winnerDeleted = deleted
	}
	return overwrite
}

type entity struct {
	kind   core.EvidenceKind
	folder string
	key    string
	attrs  core.Metadata
	provenance
}

// Consolidator accumulates observations for one scan partition. It is not
// safe for concurrent use; parallel scans give each folder its own.
type Consolidator struct {
	log      *slog.Logger
	entities map[string]*entity
	profiles map[string]*profileEntity
}

// New creates an empty Consolidator.
func New(log *slog.Logger) *Consolidator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Consolidator{
		log:      log,
		entities: make(map[string]*entity),
		profiles: make(map[string]*profileEntity),
	}
}

// Observe merges one observation into its entity.
func (c *Consolidator) Observe(o Observation) {
	key := o.key()
	e, ok := c.entities[key]
	if !ok {
		e = &entity{kind: o.Kind, folder: o.Folder, key: key, attrs: core.Metadata{}}
		c.entities[key] = e
	}
	overwrite := e.admit(o.Deleted(), o.Sources)
	e.attrs = PickMetadata(overwrite, e.attrs, o.Attributes)
}

// ObserveProfile merges profile settings found in folder.
func (c *Consolidator) ObserveProfile(folder string, p Profile, sources ...core.Source) {
	e, ok := c.profiles[folder]
	if !ok {
		e = &profileEntity{}
		c.profiles[folder] = e
	}
	deleted := false
	for _, s := range sources {
		deleted = deleted || s.Deleted
	}
	e.admit(deleted, sources)
	e.merge(deleted, p)
}

// Profile returns the merged profile of folder.
func (c *Consolidator) Profile(folder string) (Profile, bool) {
	e, ok := c.profiles[folder]
	if !ok {
		return Profile{}, false
	}
	return e.Profile, true
}

// Len returns the number of entities observed so far, profiles excluded.
func (c *Consolidator) Len() int { return len(c.entities) }

// Finalize emits one evidence record per entity, ordered by kind and id.
// Profile attributes are added where the entity does not carry its own.
func (c *Consolidator) Finalize() []core.Evidence {
	out := make([]core.Evidence, 0, len(c.entities))
	for _, e := range c.entities {
		attrs := e.attrs.Clone()
		attrs["profile_path"] = core.String(e.folder)
		if p, ok := c.profiles[e.folder]; ok {
			for k, v := range p.Metadata() {
				if _, exists := attrs[k]; !exists {
					attrs[k] = v
				}
			}
		}
		sources := make([]core.Source, len(e.sources))
		copy(sources, e.sources)
		out = append(out, core.Evidence{
			ID:         EvidenceID(e.key),
			Kind:       e.kind,
			Attributes: attrs,
			Sources:    sources,
			Winner:     e.winner,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	c.log.Debug("finalized evidence", "records", len(out), "profiles", len(c.profiles))
	return out
}

// EvidenceID derives a stable id from an entity key.
func EvidenceID(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
