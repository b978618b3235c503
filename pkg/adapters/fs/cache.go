package fs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/scan"
)

const (
	// DefaultSystemDir holds the index cache under the output root.
	DefaultSystemDir = ".strata"

	indexFileName = "index.cbor"
	indexVersion  = 1
)

// indexEntry is what the index remembers about one scanned file.
type indexEntry struct {
	Size    int64  `cbor:"size"`
	ModTime int64  `cbor:"mtime"`
	Deleted bool   `cbor:"deleted,omitempty"`
	Format  string `cbor:"format,omitempty"`
}

// indexFile is the persisted form of the index.
type indexFile struct {
	Version     int                   `cbor:"version"`
	Fingerprint string                `cbor:"fingerprint"`
	Entries     map[string]indexEntry `cbor:"entries"`
}

// Index is a persistent scan.Index keyed by source path. An entry is fresh
// while the file keeps its size, modification time and deletion mark, and
// the index is bound to the decoder configuration that recorded it.
type Index struct {
	Path string

	mu          sync.RWMutex
	fingerprint string
	entries     map[string]indexEntry
	dirty       bool
	log         *slog.Logger
}

// NewIndex creates an empty index stored at {root}/{systemDir}/index.cbor.
func NewIndex(root, systemDir string, logger *slog.Logger) *Index {
	if systemDir == "" {
		systemDir = DefaultSystemDir
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{
		Path:    filepath.Join(root, systemDir, indexFileName),
		entries: make(map[string]indexEntry),
		log:     logger,
	}
}

// Load reads the index from disk. A missing file starts empty. A corrupt or
// outdated one is discarded and rebuilt on the next save.
func (i *Index) Load() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	data, err := os.ReadFile(i.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	var f indexFile
	if err := cborDec.Unmarshal(data, &f); err != nil || f.Version != indexVersion {
		i.log.Warn("discarding scan index", "path", i.Path, "version", f.Version, "error", err)
		i.entries = make(map[string]indexEntry)
		i.dirty = true
		return nil
	}
	if f.Fingerprint != i.fingerprint {
		i.log.Info("discarding scan index recorded with other decoders", "path", i.Path,
			"recorded", f.Fingerprint, "current", i.fingerprint)
		i.entries = make(map[string]indexEntry)
		i.dirty = true
		return nil
	}
	if f.Entries == nil {
		f.Entries = make(map[string]indexEntry)
	}
	i.entries = f.Entries
	i.dirty = false
	return nil
}

// Save persists the index if it changed since the last Load or Save.
func (i *Index) Save() error {
	i.mu.RLock()
	if !i.dirty {
		i.mu.RUnlock()
		return nil
	}
	data, err := cborEnc.Marshal(indexFile{
		Version:     indexVersion,
		Fingerprint: i.fingerprint,
		Entries:     i.entries,
	})
	i.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(i.Path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(i.Path, data, 0644); err != nil {
		return err
	}

	i.mu.Lock()
	i.dirty = false
	i.mu.Unlock()
	return nil
}

// Bind implements scan.Index. Entries recorded under another fingerprint
// are dropped.
func (i *Index) Bind(fingerprint string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if fingerprint == i.fingerprint {
		return
	}
	i.fingerprint = fingerprint
	if len(i.entries) > 0 {
		i.entries = make(map[string]indexEntry)
	}
	i.dirty = true
}

// Lookup implements scan.Index.
func (i *Index) Lookup(src core.Source) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.entries[src.Path]
	if !ok || e.Size != src.Size || e.ModTime != src.ModTime.UnixNano() || e.Deleted != src.Deleted {
		return "", false
	}
	return e.Format, true
}

// Record implements scan.Index.
func (i *Index) Record(src core.Source, format string) {
	e := indexEntry{
		Size:    src.Size,
		ModTime: src.ModTime.UnixNano(),
		Deleted: src.Deleted,
		Format:  format,
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if old, ok := i.entries[src.Path]; ok && old == e {
		return
	}
	i.entries[src.Path] = e
	i.dirty = true
}

// Prune drops the entries whose path is not in keep.
func (i *Index) Prune(keep map[string]bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for p := range i.entries {
		if !keep[p] {
			delete(i.entries, p)
			i.dirty = true
		}
	}
}

// Len returns the number of entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

var _ scan.Index = (*Index)(nil)
