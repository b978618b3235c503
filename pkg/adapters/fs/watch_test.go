package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "emule", "Temp"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, DefaultSystemDir), 0755))

	batches := make(chan []string, 8)
	w := NewWatcher(WatchConfig{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Ignore:   []string{"**/*.tmp"},
	}, func(ctx context.Context, paths []string) {
		batches <- paths
	})
	require.NoError(t, w.Start(ctx))
	waitFor(t, w.Active)

	write := func(rel string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte("x"), 0644))
	}
	write(DefaultSystemDir + "/index.cbor")
	write("emule/Temp/scratch.tmp")
	write("emule/Temp/001.part.met")

	select {
	case paths := <-batches:
		assert.Equal(t, []string{"emule/Temp/001.part.met"}, paths)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change batch")
	}

	t.Run("watches directories created later", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "utorrent"), 0755))
		time.Sleep(50 * time.Millisecond)
		write("utorrent/resume.dat")

		deadline := time.After(2 * time.Second)
		for {
			select {
			case paths := <-batches:
				if contains(paths, "utorrent/resume.dat") {
					return
				}
			case <-deadline:
				t.Fatal("timeout waiting for nested change")
			}
		}
	})

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
	waitFor(t, func() bool { return !w.Active() })
	assert.GreaterOrEqual(t, w.Batches(), 2)
}

func TestWatcher_RejectsDoubleStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(WatchConfig{Root: t.TempDir()}, func(context.Context, []string) {})
	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := NewWatcher(WatchConfig{Root: filepath.Join(t.TempDir(), "missing")}, func(context.Context, []string) {})
	assert.Error(t, w.Start(context.Background()))
}

func TestDebouncer_Coalesces(t *testing.T) {
	var mu sync.Mutex
	var got [][]string
	d := newDebouncer(20*time.Millisecond, func(paths []string) {
		mu.Lock()
		got = append(got, paths)
		mu.Unlock()
	})

	d.add("b")
	d.add("a")
	d.add("b")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
	mu.Lock()
	assert.Equal(t, []string{"a", "b"}, got[0])
	mu.Unlock()

	d.stopAndWait(time.Second)
	d.add("c")
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for condition")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
