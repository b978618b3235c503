package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

// MemFolder is an in-memory core.Folder. Files are walked in path order.
type MemFolder struct {
	files   map[string][]byte
	deleted map[string]bool
	ModTime time.Time
}

// NewMemFolder returns an empty folder.
func NewMemFolder() *MemFolder {
	return &MemFolder{
		files:   make(map[string][]byte),
		deleted: make(map[string]bool),
		ModTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Add stores a file under a slash separated path.
func (m *MemFolder) Add(path string, data []byte) *MemFolder {
	m.files[path] = data
	return m
}

// AddDeleted stores a file marked as deleted.
func (m *MemFolder) AddDeleted(path string, data []byte) *MemFolder {
	m.deleted[path] = true
	return m.Add(path, data)
}

// Walk implements core.Folder.
func (m *MemFolder) Walk(ctx context.Context, fn func(core.File) error) error {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := m.files[p]
		f := core.File{
			Source: core.Source{Path: p, Deleted: m.deleted[p], Size: int64(len(data)), ModTime: m.ModTime},
			Open: func() (core.ByteSource, error) {
				return bytesource.NewBuffer(data), nil
			},
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// WriteDir writes every file below dir and stamps it with ModTime.
func (m *MemFolder) WriteDir(dir string) error {
	for p, data := range m.files {
		name := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			return err
		}
		if err := os.Chtimes(name, m.ModTime, m.ModTime); err != nil {
			return err
		}
	}
	return nil
}

var _ core.Folder = (*MemFolder)(nil)
