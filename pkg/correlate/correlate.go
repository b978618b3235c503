// Package correlate joins primary records to their same-named companion
// files, such as a part.met and the peer list saved next to it.
package correlate

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/aretw0/strata/pkg/consolidate"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/txtsrc"
)

// Primary is a decoded and projected record that peers may be attached to.
type Primary struct {
	Source     core.Source
	Name       string
	Hash       string
	Attributes core.Metadata
}

// Companion is a decoded peer list.
type Companion struct {
	Source core.Source
	Peers  []txtsrc.Source
}

// Correlator pairs primaries and companions by path. Either side may arrive
// first. It is not safe for concurrent use.
type Correlator struct {
	log        *slog.Logger
	primaries  map[string]Primary
	companions map[string]Companion
}

// New creates an empty Correlator.
func New(log *slog.Logger) *Correlator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Correlator{
		log:        log,
		primaries:  make(map[string]Primary),
		companions: make(map[string]Companion),
	}
}

// AddPrimary registers a primary record and returns the remote file
// observations produced when its companion was already seen.
func (c *Correlator) AddPrimary(p Primary) []consolidate.Observation {
	c.primaries[p.Source.Path] = p
	comp, ok := c.companions[p.Source.Path]
	if !ok {
		return nil
	}
	delete(c.companions, p.Source.Path)
	return fanOut(p, comp)
}

// AddCompanion registers a peer list and returns the remote file
// observations produced when its primary was already seen.
func (c *Correlator) AddCompanion(comp Companion) []consolidate.Observation {
	primary, ok := txtsrc.PrimaryName(comp.Source.Path)
	if !ok {
		c.log.Warn("companion without primary name", "path", comp.Source.Path)
		return nil
	}
	if p, ok := c.primaries[primary]; ok {
		return fanOut(p, comp)
	}
	c.companions[primary] = comp
	return nil
}

// Flush logs and drops the companions whose primary never appeared.
func (c *Correlator) Flush() {
	paths := make([]string, 0, len(c.companions))
	for p := range c.companions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		c.log.Warn("unmatched companion dropped", "path", c.companions[p].Source.Path, "peers", len(c.companions[p].Peers))
	}
	c.companions = make(map[string]Companion)
	c.primaries = make(map[string]Primary)
}

// fanOut clones the primary onto one observation per peer endpoint.
func fanOut(p Primary, comp Companion) []consolidate.Observation {
	folder := p.Source.Dir()
	out := make([]consolidate.Observation, 0, len(comp.Peers))
	for _, peer := range comp.Peers {
		attrs := p.Attributes.Clone()
		if attrs == nil {
			attrs = core.Metadata{}
		}
		attrs["peer_ip"] = core.String(peer.IP)
		attrs["peer_port"] = core.Int(int64(peer.Port))
		attrs["peer_endpoint"] = core.String(peer.Endpoint())
		attrs.SetIfPresent("peer_expires", core.Time(peer.Expires))
		attrs.SetIfPresent("hash", core.String(p.Hash))
		out = append(out, consolidate.RemoteFile(folder, p.Hash, peer.Endpoint(), p.Name, attrs, p.Source, comp.Source))
	}
	return out
}

// Endpoint renders ip:port.
func Endpoint(ip string, port uint16) string {
	return ip + ":" + strconv.Itoa(int(port))
}
