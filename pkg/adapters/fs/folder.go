package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/core"
)

// FolderConfig holds the configuration for a filesystem folder.
type FolderConfig struct {
	Root string
	// Includes restricts the walk to files matching at least one pattern.
	// Empty means every file.
	Includes []string
	// Excludes drops matching files. A directory matching a pattern is
	// not descended into.
	Excludes []string
	// Deleted marks matching files as deleted, for trees exported by
	// carving tools that keep recovered files next to live ones.
	Deleted []string
	// SystemDir is never walked. Defaults to DefaultSystemDir.
	SystemDir string
	Logger    *slog.Logger
}

// Folder walks a directory tree on disk. Patterns are doublestar globs
// matched against slash separated paths relative to Root.
type Folder struct {
	config FolderConfig
	log    *slog.Logger
}

// NewFolder validates the patterns and returns a Folder.
func NewFolder(config FolderConfig) (*Folder, error) {
	if config.Root == "" {
		return nil, errors.New("folder root cannot be empty")
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	for _, group := range [][]string{config.Includes, config.Excludes, config.Deleted} {
		for _, p := range group {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("invalid pattern %q", p)
			}
		}
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Folder{config: config, log: log}, nil
}

// Root returns the walked directory.
func (f *Folder) Root() string { return f.config.Root }

// Walk implements core.Folder. Entries are visited depth-first in lexical
// order. Unreadable subdirectories are logged and skipped.
func (f *Folder) Walk(ctx context.Context, fn func(core.File) error) error {
	info, err := os.Stat(f.config.Root)
	if err != nil {
		return core.IOError.Wrap(err)
	}
	if !info.IsDir() {
		return core.IOError.New("%s is not a directory", f.config.Root)
	}

	return iofs.WalkDir(os.DirFS(f.config.Root), ".", func(p string, d iofs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == "." {
				return core.IOError.Wrap(err)
			}
			f.log.Warn("skipping unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return iofs.SkipDir
			}
			return nil
		}
		if p == "." {
			return nil
		}

		if d.IsDir() {
			if p == f.config.SystemDir || matchAny(f.config.Excludes, p) || matchAny(f.config.Excludes, p+"/") {
				return iofs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), TempFilePrefix) {
			return nil
		}
		if matchAny(f.config.Excludes, p) {
			return nil
		}
		if len(f.config.Includes) > 0 && !matchAny(f.config.Includes, p) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			f.log.Warn("skipping unreadable file", "path", p, "error", err)
			return nil
		}

		abs := filepath.Join(f.config.Root, filepath.FromSlash(p))
		return fn(core.File{
			Source: core.Source{
				Path:    p,
				Deleted: matchAny(f.config.Deleted, p),
				Size:    fi.Size(),
				ModTime: fi.ModTime(),
			},
			Open: func() (core.ByteSource, error) {
				bs, err := bytesource.OpenFile(abs)
				if err != nil {
					return nil, err
				}
				return bs, nil
			},
		})
	})
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

var _ core.Folder = (*Folder)(nil)
