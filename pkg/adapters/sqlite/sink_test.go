package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
)

func openSink(t *testing.T, path string) *Sink {
	t.Helper()
	s, err := Open(Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestSink_Write(t *testing.T) {
	ctx := context.Background()
	s := openSink(t, filepath.Join(t.TempDir(), "case", "evidence.db"))

	mod := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	evidence := []core.Evidence{
		{
			ID:   "a1",
			Kind: core.KindLocalFile,
			Attributes: core.Metadata{
				"name": core.String("ubuntu.iso"),
				"size": core.Int(1024),
			},
			Sources: []core.Source{
				{Path: "emule/config/known.met", Size: 80, ModTime: mod},
				{Path: "emule/Temp/001.part.met", Size: 90, Deleted: true},
			},
			Winner: 1,
		},
		{
			ID:         "b2",
			Kind:       core.KindAccount,
			Attributes: core.Metadata{"user_hash": core.String("EE")},
			Sources:    []core.Source{{Path: "emule/config/preferences.dat", Size: 17}},
		},
	}
	require.NoError(t, s.Write(ctx, evidence))

	total, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	accounts, err := s.Count(ctx, core.KindAccount)
	require.NoError(t, err)
	assert.Equal(t, 1, accounts)

	sources, err := s.Sources(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, evidence[0].Sources, sources)

	winner, err := s.Winner(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, winner)

	attrs, err := s.Attributes(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "ubuntu.iso", attrs["name"])
	assert.EqualValues(t, 1024, attrs["size"])

	t.Run("replaces existing records", func(t *testing.T) {
		replaced := evidence[0]
		replaced.Attributes = core.Metadata{"name": core.String("renamed.iso")}
		replaced.Sources = replaced.Sources[:1]
		replaced.Winner = 0
		require.NoError(t, s.Write(ctx, []core.Evidence{replaced}))

		total, err := s.Count(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		sources, err := s.Sources(ctx, "a1")
		require.NoError(t, err)
		assert.Len(t, sources, 1)

		attrs, err := s.Attributes(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "renamed.iso", attrs["name"])

		winner, err := s.Winner(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 0, winner)
	})

	t.Run("reports state", func(t *testing.T) {
		state, ok := s.State().(SinkState)
		require.True(t, ok)
		assert.Equal(t, 3, state.Written)
		assert.Equal(t, "sqlite-sink", s.ComponentType())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Attributes(ctx, "missing")
		assert.Error(t, err)
	})
}

func TestSink_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "evidence.db")

	first, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, first.Write(ctx, []core.Evidence{{ID: "x", Kind: core.KindAutofill, Attributes: core.Metadata{}}}))
	require.NoError(t, first.Close())

	ro, err := Open(Config{Path: path, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()
	require.NoError(t, ro.Initialize(ctx))

	n, err := ro.Count(ctx, core.KindAutofill)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = ro.Write(ctx, []core.Evidence{{ID: "y", Kind: core.KindAutofill}})
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)

	_, err = Open(Config{Path: filepath.Join(t.TempDir(), "missing.db"), ReadOnly: true})
	assert.Error(t, err)
}
