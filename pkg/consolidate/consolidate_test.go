package consolidate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
)

func TestPick(t *testing.T) {
	assert.Equal(t, "new", Pick(true, "old", "new"))
	assert.Equal(t, "old", Pick(false, "old", "new"))
	assert.Equal(t, "", Pick(false, "", "new"), "a loser never fills empty fields")
	assert.Equal(t, 0, Pick(false, 0, 7))

	assert.Equal(t, []int{3}, PickSlice(true, []int{1, 2}, []int{3}))
	assert.Equal(t, []int{1, 2}, PickSlice(false, []int{1, 2}, []int{3}))
	assert.Nil(t, PickSlice(false, nil, []int{3}))

	current := core.Metadata{"size": core.Int(0)}
	incoming := core.Metadata{"size": core.Int(9), "rating": core.Int(5)}
	assert.Equal(t, current, PickMetadata(false, current, incoming))
	assert.Equal(t, incoming, PickMetadata(true, current, incoming))
	assert.Equal(t, core.Metadata{}, PickMetadata(true, current, nil))
}

func src(path string, deleted bool) core.Source {
	return core.Source{Path: path, Deleted: deleted}
}

func TestConsolidator_DeletionPrecedenceIsOrderIndependent(t *testing.T) {
	live := src("profile/known.met", false)
	deleted := src("profile/known.met.bak", true)
	a := LocalFile("profile", "movie.avi", core.Metadata{
		"size":    core.Int(0),
		"comment": core.String(""),
	}, live)
	b := LocalFile("profile", "movie.avi", core.Metadata{
		"size":    core.Int(999),
		"comment": core.String("from deleted"),
		"rating":  core.Int(5),
	}, deleted)

	run := func(obs ...Observation) core.Evidence {
		c := New(nil)
		for _, o := range obs {
			c.Observe(o)
		}
		out := c.Finalize()
		require.Len(t, out, 1)
		return out[0]
	}

	ab := run(a, b)
	ba := run(b, a)

	for _, e := range []core.Evidence{ab, ba} {
		assert.Equal(t, int64(0), e.Attributes.Int("size"))
		assert.Equal(t, "", e.Attributes.String("comment"))
		assert.NotContains(t, e.Attributes, "rating")

		winner, ok := e.WinningSource()
		require.True(t, ok)
		assert.Equal(t, live, winner)
		assert.Len(t, e.Sources, 2)
	}
	if diff := cmp.Diff(ab.Attributes.Native(), ba.Attributes.Native()); diff != "" {
		t.Errorf("merge depends on order (-ab +ba):\n%s", diff)
	}
	assert.Equal(t, ab.ID, ba.ID)
	assert.ElementsMatch(t, ab.Sources, ba.Sources)
	assert.Equal(t, 0, ab.Winner)
	assert.Equal(t, 1, ba.Winner)
}

func TestConsolidator_FirstWinsOnEqualDeletion(t *testing.T) {
	for _, deleted := range []bool{false, true} {
		c := New(nil)
		c.Observe(LocalFile("p", "f", core.Metadata{"size": core.Int(1)}, src("p/a", deleted)))
		c.Observe(LocalFile("p", "f", core.Metadata{"size": core.Int(2)}, src("p/b", deleted)))
		c.Observe(LocalFile("p", "f", core.Metadata{"size": core.Int(3)}, src("p/a", deleted)))

		out := c.Finalize()
		require.Len(t, out, 1)
		assert.Equal(t, int64(1), out[0].Attributes.Int("size"))
		assert.Equal(t, []core.Source{src("p/a", deleted), src("p/b", deleted)}, out[0].Sources)
		assert.Equal(t, 0, out[0].Winner)
	}
}

func TestConsolidator_CollectionsReplacedWholesale(t *testing.T) {
	c := New(nil)
	c.Observe(LocalFile("p", "f", core.Metadata{
		"trackers": core.List(core.String("udp://a")),
	}, src("p/old", true)))
	c.Observe(LocalFile("p", "f", core.Metadata{
		"trackers": core.List(core.String("udp://b"), core.String("udp://c")),
	}, src("p/new", false)))

	out := c.Finalize()
	require.Len(t, out, 1)
	assert.Equal(t, []any{"udp://b", "udp://c"}, out[0].Attributes["trackers"].Native())
}

func TestConsolidator_WinnerOfCorrelatedObservation(t *testing.T) {
	c := New(nil)
	part := src("p/001.part.met", true)
	companion := src("p/001.part.met.txtsrc", false)
	c.Observe(RemoteFile("p", "AB", "10.0.0.1:4662", "x.bin", core.Metadata{"size": core.Int(1)}, part, companion))
	recovered := src("p/recovered/001.part.met", false)
	c.Observe(RemoteFile("p", "AB", "10.0.0.1:4662", "x.bin", core.Metadata{"size": core.Int(2)}, recovered, companion))

	out := c.Finalize()
	require.Len(t, out, 1)
	assert.Equal(t, []core.Source{part, companion, recovered}, out[0].Sources)
	assert.Equal(t, 2, out[0].Winner)
	assert.Equal(t, int64(2), out[0].Attributes.Int("size"))
}

func TestConsolidator_ProfileFieldsHaveTheirOwnPrecedence(t *testing.T) {
	run := func(order ...int) Profile {
		observations := []struct {
			p   Profile
			src core.Source
		}{
			{Profile{App: "eMule", Username: "bob"}, src("p/preferences.ini", false)},
			{Profile{AppVersion: "0.50a", UserHash: "AA"}, src("p/preferences.dat", false)},
			{Profile{Username: "ghost", AppVersion: "0.49"}, src("p/preferences.ini.bak", true)},
		}
		c := New(nil)
		for _, i := range order {
			c.ObserveProfile("p", observations[i].p, observations[i].src)
		}
		p, ok := c.Profile("p")
		require.True(t, ok)
		return p
	}

	want := Profile{App: "eMule", AppVersion: "0.50a", Username: "bob", UserHash: "AA"}
	assert.Equal(t, want, run(0, 1, 2))
	assert.Equal(t, want, run(2, 1, 0))
	assert.Equal(t, want, run(1, 2, 0))
}

func TestConsolidator_IdentityAndEnrichment(t *testing.T) {
	c := New(nil)
	c.ObserveProfile("p1", Profile{App: "eMule", Username: "bob"}, src("p1/preferences.ini", false))
	c.ObserveProfile("p1", Profile{App: "eMule", AppVersion: "0.50a", UserHash: "AA"}, src("p1/preferences.dat", false))

	c.Observe(RemoteFile("p1", "abcd", "10.0.0.1:4662", "x.bin", nil, src("p1/001.part.met", false)))
	c.Observe(RemoteFile("p1", "ABCD", "10.0.0.2:4662", "x.bin", nil, src("p1/001.part.met", false)))
	c.Observe(RemoteFile("p1", "ABCD", "10.0.0.1:4662", "x.bin", nil, src("p1/001.part.met.txtsrc", false)))
	c.Observe(Account("p1", "ed2k", "AA", core.Metadata{"username": core.String("override")}, src("p1/preferences.dat", false)))
	c.Observe(Autofill("p2", "search", "ubuntu", nil, src("p2/AC_SearchStrings.dat", false)))
	assert.Equal(t, 4, c.Len())

	p, ok := c.Profile("p1")
	require.True(t, ok)
	assert.Equal(t, "0.50a", p.AppVersion)

	out := c.Finalize()
	require.Len(t, out, 4)

	byKind := map[core.EvidenceKind][]core.Evidence{}
	for _, e := range out {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}
	require.Len(t, byKind[core.KindRemoteFile], 2)
	for _, e := range byKind[core.KindRemoteFile] {
		assert.Equal(t, "p1", e.Attributes.String("profile_path"))
		assert.Equal(t, "eMule", e.Attributes.String("app"))
		assert.Equal(t, "bob", e.Attributes.String("username"))
	}

	account := byKind[core.KindAccount][0]
	assert.Equal(t, "override", account.Attributes.String("username"))

	autofill := byKind[core.KindAutofill][0]
	assert.Equal(t, "p2", autofill.Attributes.String("profile_path"))
	assert.NotContains(t, autofill.Attributes, "app")
}

func TestFinalize_DeterministicOrderAndIDs(t *testing.T) {
	build := func(names ...string) []core.Evidence {
		c := New(nil)
		for _, n := range names {
			c.Observe(LocalFile("p", n, nil, src("p/"+n, false)))
		}
		return c.Finalize()
	}
	first := build("a", "b", "c")
	second := build("c", "a", "b")
	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Len(t, first[i].ID, 32)
	}
	assert.NotEqual(t, EvidenceID("local-file\x00p\x00a"), EvidenceID("local-file\x00p\x00b"))
}
