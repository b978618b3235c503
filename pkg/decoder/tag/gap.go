package tag

import "sort"

// Marker bytes opening the name of a gap boundary tag.
const (
	GapStartMarker byte = 0x09
	GapEndMarker   byte = 0x0A
)

// Gap is an unreceived byte range [Start, End) of a partial download.
type Gap struct {
	Start uint64 `json:"start" yaml:"start"`
	End   uint64 `json:"end" yaml:"end"`
}

// Size returns End - Start.
func (g Gap) Size() uint64 { return g.End - g.Start }

// IsGapStart reports whether t is a structural "gap start" marker.
func (t Tag) IsGapStart() bool {
	return t.ID == 0 && len(t.Name) > 0 && t.Name[0] == GapStartMarker
}

// IsGapEnd reports whether t is a structural "gap end" marker.
func (t Tag) IsGapEnd() bool {
	return t.ID == 0 && len(t.Name) > 0 && t.Name[0] == GapEndMarker
}

// Gaps accumulates gap boundaries as they appear in a tag stream.
// Each end closes the most recently opened start.
type Gaps struct {
	pending []uint64
	list    []Gap
	seen    map[Gap]bool
	total   uint64
}

// Open records a pending gap start.
func (g *Gaps) Open(start uint64) {
	g.pending = append(g.pending, start)
}

// Close pairs end with the most recent pending start. It reports false when
// there was no pending start or the pair is empty or inverted; such pairs
// are dropped.
func (g *Gaps) Close(end uint64) bool {
	if len(g.pending) == 0 {
		return false
	}
	start := g.pending[len(g.pending)-1]
	g.pending = g.pending[:len(g.pending)-1]
	if end <= start {
		return false
	}

	gap := Gap{Start: start, End: end}
	if g.seen == nil {
		g.seen = make(map[Gap]bool)
	}
	if g.seen[gap] {
		return true
	}
	g.seen[gap] = true
	g.list = append(g.list, gap)
	g.total += gap.Size()
	return true
}

// Feed routes t to Open or Close when it is a gap marker and reports whether
// it was consumed.
func (g *Gaps) Feed(t Tag) bool {
	switch {
	case t.IsGapStart():
		g.Open(t.Value.AsUint())
		return true
	case t.IsGapEnd():
		g.Close(t.Value.AsUint())
		return true
	}
	return false
}

// Pending returns the number of starts never closed.
func (g *Gaps) Pending() int { return len(g.pending) }

// Total returns the summed size of the distinct gaps.
func (g *Gaps) Total() uint64 { return g.total }

// Sorted returns the distinct gaps in ascending order.
func (g *Gaps) Sorted() []Gap {
	out := make([]Gap, len(g.list))
	copy(out, g.list)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}
