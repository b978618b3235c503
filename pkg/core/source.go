package core

import (
	"context"
	"io"
	"path"
	"time"
)

// Source identifies one byte source that contributed to a record.
// Path is slash separated and relative to the scanned folder.
type Source struct {
	Path    string    `json:"path" yaml:"path"`
	Deleted bool      `json:"deleted" yaml:"deleted"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
}

// Dir returns the containing folder of the source.
func (s Source) Dir() string { return path.Dir(s.Path) }

// Base returns the file name of the source.
func (s Source) Base() string { return path.Base(s.Path) }

// ByteSource is a random-access byte stream owned by the VFS layer.
type ByteSource interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// File is one candidate artifact yielded by a Folder walk.
type File struct {
	Source Source
	Open   func() (ByteSource, error)
}

// Folder walks a tree of candidate files depth-first.
// Returning a non-nil error from fn stops the walk with that error.
type Folder interface {
	Walk(ctx context.Context, fn func(File) error) error
}
