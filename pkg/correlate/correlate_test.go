package correlate

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/txtsrc"
)

func primary() Primary {
	return Primary{
		Source:     core.Source{Path: "Temp/001.part.met"},
		Name:       "movie.avi",
		Hash:       "0A0B",
		Attributes: core.Metadata{"size": core.Int(700)},
	}
}

func companion() Companion {
	return Companion{
		Source: core.Source{Path: "Temp/001.part.met.txtsrc", Deleted: true},
		Peers: []txtsrc.Source{
			{IP: "10.0.0.1", Port: 4662},
			{IP: "10.0.0.2", Port: 4672},
		},
	}
}

func TestCorrelator_OrderIndependent(t *testing.T) {
	c := New(nil)
	assert.Empty(t, c.AddPrimary(primary()))
	a := c.AddCompanion(companion())

	c = New(nil)
	assert.Empty(t, c.AddCompanion(companion()))
	b := c.AddPrimary(primary())

	require.Len(t, a, 2)
	assert.Equal(t, a, b)

	obs := a[1]
	assert.Equal(t, core.KindRemoteFile, obs.Kind)
	assert.Equal(t, "Temp", obs.Folder)
	assert.Equal(t, []string{"0A0B", "10.0.0.2:4672", "movie.avi"}, obs.Identity)
	assert.Equal(t, int64(700), obs.Attributes.Int("size"))
	assert.Equal(t, "10.0.0.2:4672", obs.Attributes.String("peer_endpoint"))
	assert.Len(t, obs.Sources, 2)
	assert.True(t, obs.Deleted(), "deleted companion marks the observation")
}

func TestCorrelator_ClonesMetadata(t *testing.T) {
	p := primary()
	c := New(nil)
	c.AddPrimary(p)
	out := c.AddCompanion(companion())
	out[0].Attributes["size"] = core.Int(1)

	assert.Equal(t, int64(700), p.Attributes.Int("size"))
	assert.Equal(t, int64(700), out[1].Attributes.Int("size"))
}

func TestCorrelator_FlushDropsUnmatched(t *testing.T) {
	var buf bytes.Buffer
	c := New(slog.New(slog.NewTextHandler(&buf, nil)))
	c.AddCompanion(companion())
	c.Flush()
	assert.Contains(t, buf.String(), "unmatched companion dropped")

	assert.Empty(t, c.AddPrimary(primary()))
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "1.2.3.4:80", Endpoint("1.2.3.4", 80))
}
