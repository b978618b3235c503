package platform

import (
	"log/slog"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// Sink adapter names accepted by WithSinkAdapter.
const (
	SinkFS     = "fs"
	SinkSQLite = "sqlite"
	SinkNone   = "none"
)

// options holds the internal configuration for a strata engine.
type options struct {
	logger      *slog.Logger
	folder      core.Folder
	sink        core.Sink
	sinkAdapter string
	output      string
	format      string
	decoders    []string
	parallel    int
	tagPolicy   tag.Policy
	legacyBool  bool
	includes    []string
	excludes    []string
	deleted     []string
	index       bool
	readOnly    bool
	systemDir   string
}

// Option defines a functional option for configuring strata.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		sinkAdapter: SinkFS,
		format:      ".json",
		index:       true,
		tagPolicy:   tag.Compat,
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFolder injects a custom input folder (e.g. an image mounted in
// memory). The input path and the pattern options are then ignored.
func WithFolder(folder core.Folder) Option {
	return func(o *options) {
		o.folder = folder
	}
}

// WithSink injects a custom evidence sink. WithSinkAdapter and WithOutput
// are then ignored.
func WithSink(sink core.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithSinkAdapter selects the built-in sink by name: "fs" (default),
// "sqlite" or "none".
func WithSinkAdapter(name string) Option {
	return func(o *options) {
		o.sinkAdapter = name
	}
}

// WithOutput sets the sink location: a directory for "fs", a database
// file for "sqlite".
func WithOutput(path string) Option {
	return func(o *options) {
		o.output = path
	}
}

// WithFormat sets the file extension the fs sink writes (".json", ".yaml",
// ".yml" or ".cbor").
func WithFormat(ext string) Option {
	return func(o *options) {
		o.format = ext
	}
}

// WithDecoders restricts scanning to the named artifact formats.
func WithDecoders(names ...string) Option {
	return func(o *options) {
		o.decoders = append(o.decoders, names...)
	}
}

// WithParallel decodes up to n folders at once. Values below 2 scan
// sequentially.
func WithParallel(n int) Option {
	return func(o *options) {
		o.parallel = n
	}
}

// WithTagPolicy selects how tags of unsupported types are handled.
func WithTagPolicy(p tag.Policy) Option {
	return func(o *options) {
		o.tagPolicy = p
	}
}

// WithLegacyBoolArray skips L/8+1 bytes for BOOLARRAY tags, as older
// writers did.
func WithLegacyBoolArray(enabled bool) Option {
	return func(o *options) {
		o.legacyBool = enabled
	}
}

// WithIncludes restricts the walk to paths matching the doublestar patterns.
func WithIncludes(patterns ...string) Option {
	return func(o *options) {
		o.includes = append(o.includes, patterns...)
	}
}

// WithExcludes drops paths matching the doublestar patterns.
func WithExcludes(patterns ...string) Option {
	return func(o *options) {
		o.excludes = append(o.excludes, patterns...)
	}
}

// WithDeletedPatterns marks files matching the doublestar patterns as
// deleted, e.g. "**/$Recycle.Bin/**".
func WithDeletedPatterns(patterns ...string) Option {
	return func(o *options) {
		o.deleted = append(o.deleted, patterns...)
	}
}

// WithIndex enables or disables the persistent scan index. It is enabled
// by default and needs an output location.
func WithIndex(enabled bool) Option {
	return func(o *options) {
		o.index = enabled
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Sink writes return core.ErrReadOnly.
// 2. The output location must already exist.
// 3. The scan index is read but never saved.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithSystemDir sets the directory under the output that holds the scan
// index. Defaults to ".strata".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}
