package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
)

func testSource(path string) core.Source {
	return core.Source{
		Path:    path,
		Size:    42,
		ModTime: time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC),
	}
}

func TestIndex_Load(t *testing.T) {
	t.Run("starts empty if file missing", func(t *testing.T) {
		idx := NewIndex(t.TempDir(), "", nil)
		require.NoError(t, idx.Load())
		assert.Zero(t, idx.Len())
	})

	t.Run("resets on corrupted file", func(t *testing.T) {
		root := t.TempDir()
		idx := NewIndex(root, ".cache", nil)
		require.NoError(t, os.MkdirAll(filepath.Dir(idx.Path), 0755))
		require.NoError(t, os.WriteFile(idx.Path, []byte{0xFF, 0x00, 0x13}, 0644))

		require.NoError(t, idx.Load())
		assert.Zero(t, idx.Len())
	})
}

func TestIndex_Save(t *testing.T) {
	t.Run("does not save if not dirty", func(t *testing.T) {
		idx := NewIndex(t.TempDir(), "", nil)
		require.NoError(t, idx.Save())

		_, err := os.Stat(idx.Path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("round trips through disk", func(t *testing.T) {
		root := t.TempDir()
		src := testSource("emule/config/known.met")

		idx := NewIndex(root, "", nil)
		idx.Record(src, "known.met")
		require.NoError(t, idx.Save())
		assert.Equal(t, filepath.Join(root, DefaultSystemDir, "index.cbor"), idx.Path)

		reloaded := NewIndex(root, "", nil)
		require.NoError(t, reloaded.Load())
		format, hit := reloaded.Lookup(src)
		assert.True(t, hit)
		assert.Equal(t, "known.met", format)
	})
}

func TestIndex_Lookup(t *testing.T) {
	idx := NewIndex(t.TempDir(), "", nil)
	src := testSource("junk/readme.txt")
	idx.Record(src, "")

	t.Run("hit with unchanged file", func(t *testing.T) {
		format, hit := idx.Lookup(src)
		assert.True(t, hit)
		assert.Empty(t, format)
	})

	t.Run("miss with different mtime", func(t *testing.T) {
		changed := src
		changed.ModTime = changed.ModTime.Add(time.Nanosecond)
		_, hit := idx.Lookup(changed)
		assert.False(t, hit)
	})

	t.Run("miss with different size", func(t *testing.T) {
		changed := src
		changed.Size++
		_, hit := idx.Lookup(changed)
		assert.False(t, hit)
	})

	t.Run("miss with different deletion mark", func(t *testing.T) {
		changed := src
		changed.Deleted = true
		_, hit := idx.Lookup(changed)
		assert.False(t, hit)
	})

	t.Run("miss with unknown path", func(t *testing.T) {
		_, hit := idx.Lookup(testSource("ghost"))
		assert.False(t, hit)
	})
}

func TestIndex_RecordUnchangedKeepsClean(t *testing.T) {
	idx := NewIndex(t.TempDir(), "", nil)
	src := testSource("a")
	idx.Record(src, "txtsrc")
	require.NoError(t, idx.Save())

	idx.Record(src, "txtsrc")
	assert.False(t, idx.dirty)

	idx.Record(src, "torrent")
	assert.True(t, idx.dirty)
}

func TestIndex_Prune(t *testing.T) {
	idx := NewIndex(t.TempDir(), "", nil)
	idx.Record(testSource("keep"), "torrent")
	idx.Record(testSource("drop"), "torrent")
	idx.dirty = false

	idx.Prune(map[string]bool{"keep": true})

	assert.Equal(t, 1, idx.Len())
	_, hit := idx.Lookup(testSource("drop"))
	assert.False(t, hit)
	assert.True(t, idx.dirty)
}

func TestIndex_Bind(t *testing.T) {
	t.Run("drops entries of another configuration", func(t *testing.T) {
		idx := NewIndex(t.TempDir(), "", nil)
		idx.Bind("formats=known.met")
		idx.Record(testSource("utorrent/resume.dat"), "")

		idx.Bind("formats=known.met")
		assert.Equal(t, 1, idx.Len())

		idx.Bind("formats=all")
		assert.Zero(t, idx.Len())
	})

	t.Run("discards a saved index of another configuration", func(t *testing.T) {
		root := t.TempDir()
		src := testSource("utorrent/resume.dat")

		idx := NewIndex(root, "", nil)
		idx.Bind("policy=strict")
		idx.Record(src, "")
		require.NoError(t, idx.Save())

		same := NewIndex(root, "", nil)
		same.Bind("policy=strict")
		require.NoError(t, same.Load())
		_, hit := same.Lookup(src)
		assert.True(t, hit)

		other := NewIndex(root, "", nil)
		other.Bind("policy=compat")
		require.NoError(t, other.Load())
		_, hit = other.Lookup(src)
		assert.False(t, hit)
		assert.True(t, other.dirty)
	})
}
