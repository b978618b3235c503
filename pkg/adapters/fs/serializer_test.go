package fs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/strata/pkg/core"
)

func sampleEvidence() core.Evidence {
	return core.Evidence{
		ID:   "0f1e2d3c4b5a69788796a5b4c3d2e1f0",
		Kind: core.KindLocalFile,
		Attributes: core.Metadata{
			"name":       core.String("ubuntu.iso"),
			"size":       core.Int(1 << 32),
			"hash":       core.String("00112233445566778899AABBCCDDEEFF"),
			"last_seen":  core.Time(time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)),
			"gaps":       core.List(core.Map(map[string]core.Value{"start": core.Int(100), "end": core.Int(300)})),
			"incomplete": core.Bool(true),
		},
		Sources: []core.Source{
			{Path: "emule/config/known.met.bak", Size: 60, Deleted: true},
			{Path: "emule/config/known.met", Size: 64},
		},
		Winner: 1,
	}
}

func TestSerializers(t *testing.T) {
	e := sampleEvidence()
	serializers := DefaultSerializers()
	assert.Equal(t, []string{".cbor", ".json", ".yaml", ".yml"}, Extensions(serializers))

	decoders := map[string]func([]byte, any) error{
		".json": json.Unmarshal,
		".yaml": yaml.Unmarshal,
		".cbor": cborDec.Unmarshal,
	}

	for ext, unmarshal := range decoders {
		t.Run(ext, func(t *testing.T) {
			data, err := serializers[ext].Serialize(e)
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, unmarshal(data, &got))
			assert.Equal(t, e.ID, got["id"])
			assert.Equal(t, string(core.KindLocalFile), got["kind"])

			attrs, ok := got["attributes"].(map[string]any)
			require.True(t, ok, "attributes: %T", got["attributes"])
			assert.Equal(t, "ubuntu.iso", attrs["name"])
			assert.Equal(t, true, attrs["incomplete"])
			assert.EqualValues(t, int64(1)<<32, toInt64(attrs["size"]))

			sources, ok := got["sources"].([]any)
			require.True(t, ok)
			require.Len(t, sources, 2)
			assert.EqualValues(t, 1, toInt64(got["winner"]))
		})
	}
}

func TestCBORSerializer_Deterministic(t *testing.T) {
	s := NewCBORSerializer()
	first, err := s.Serialize(sampleEvidence())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Serialize(sampleEvidence())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return -1
}
