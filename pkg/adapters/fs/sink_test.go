package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
)

func TestSink_Write(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "out")

	sink, err := NewSink(SinkConfig{Root: root})
	require.NoError(t, err)
	require.NoError(t, sink.Initialize(ctx))

	e := sampleEvidence()
	require.NoError(t, sink.Write(ctx, []core.Evidence{e}))

	name := filepath.Join(root, string(core.KindLocalFile), e.ID+".json")
	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, e.ID, doc["id"])

	t.Run("replaces existing records", func(t *testing.T) {
		e.Attributes = core.Metadata{"name": core.String("renamed.iso")}
		require.NoError(t, sink.Write(ctx, []core.Evidence{e}))

		data, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.Contains(t, string(data), "renamed.iso")
	})

	t.Run("reports state", func(t *testing.T) {
		state, ok := sink.State().(SinkState)
		require.True(t, ok)
		assert.Equal(t, 2, state.Written)
		assert.Equal(t, ".json", state.Format)
		assert.NotNil(t, state.LastWrite)
		assert.Equal(t, "fs-sink", sink.ComponentType())
	})
}

func TestSink_Formats(t *testing.T) {
	for _, ext := range []string{".yaml", ".cbor"} {
		t.Run(ext, func(t *testing.T) {
			root := t.TempDir()
			sink, err := NewSink(SinkConfig{Root: root, Format: ext})
			require.NoError(t, err)

			e := sampleEvidence()
			require.NoError(t, sink.Write(context.Background(), []core.Evidence{e}))
			_, err = os.Stat(filepath.Join(root, string(e.Kind), e.ID+ext))
			assert.NoError(t, err)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewSink(SinkConfig{Root: t.TempDir(), Format: ".csv"})
		assert.Error(t, err)
	})
}

func TestSink_ReadOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects writes", func(t *testing.T) {
		sink, err := NewSink(SinkConfig{Root: t.TempDir(), ReadOnly: true})
		require.NoError(t, err)
		require.NoError(t, sink.Initialize(ctx))

		err = sink.Write(ctx, []core.Evidence{sampleEvidence()})
		assert.ErrorIs(t, err, core.ErrReadOnly)
	})

	t.Run("requires existing directory", func(t *testing.T) {
		sink, err := NewSink(SinkConfig{Root: filepath.Join(t.TempDir(), "missing"), ReadOnly: true})
		require.NoError(t, err)
		assert.Error(t, sink.Initialize(ctx))
	})
}

func TestSink_RejectsIncompleteEvidence(t *testing.T) {
	sink, err := NewSink(SinkConfig{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Error(t, sink.Write(context.Background(), []core.Evidence{{Kind: core.KindAccount}}))
}
