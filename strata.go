package strata

import (
	"log/slog"

	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/tag"
	"github.com/aretw0/strata/pkg/scan"
)

// --- Types ---

// Engine is a wired scanner, folder, sink and index.
type Engine = platform.Engine

// Evidence is one consolidated record.
type Evidence = core.Evidence

// TagPolicy selects how tags of unsupported types are handled.
type TagPolicy = tag.Policy

// Tag policies.
const (
	TagPolicyCompat = tag.Compat
	TagPolicyStrict = tag.Strict
)

// Sink adapter names.
const (
	SinkFS     = platform.SinkFS
	SinkSQLite = platform.SinkSQLite
	SinkNone   = platform.SinkNone
)

// --- Configuration ---

// Option defines a functional option for configuring strata.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithFolder injects a custom input folder.
func WithFolder(folder core.Folder) Option {
	return platform.WithFolder(folder)
}

// WithSink injects a custom evidence sink.
func WithSink(sink core.Sink) Option {
	return platform.WithSink(sink)
}

// WithSinkAdapter selects the built-in sink by name.
func WithSinkAdapter(name string) Option {
	return platform.WithSinkAdapter(name)
}

// WithOutput sets the sink location.
func WithOutput(path string) Option {
	return platform.WithOutput(path)
}

// WithFormat sets the file extension the fs sink writes.
func WithFormat(ext string) Option {
	return platform.WithFormat(ext)
}

// WithDecoders restricts scanning to the named artifact formats.
func WithDecoders(names ...string) Option {
	return platform.WithDecoders(names...)
}

// WithParallel decodes up to n folders at once.
func WithParallel(n int) Option {
	return platform.WithParallel(n)
}

// WithTagPolicy selects how tags of unsupported types are handled.
func WithTagPolicy(p TagPolicy) Option {
	return platform.WithTagPolicy(p)
}

// WithLegacyBoolArray selects the older BOOLARRAY skip length.
func WithLegacyBoolArray(enabled bool) Option {
	return platform.WithLegacyBoolArray(enabled)
}

// WithIncludes restricts the walk to paths matching the patterns.
func WithIncludes(patterns ...string) Option {
	return platform.WithIncludes(patterns...)
}

// WithExcludes drops paths matching the patterns.
func WithExcludes(patterns ...string) Option {
	return platform.WithExcludes(patterns...)
}

// WithDeletedPatterns marks files matching the patterns as deleted.
func WithDeletedPatterns(patterns ...string) Option {
	return platform.WithDeletedPatterns(patterns...)
}

// WithIndex enables or disables the persistent scan index.
func WithIndex(enabled bool) Option {
	return platform.WithIndex(enabled)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithSystemDir sets the directory under the output that holds the index.
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// --- Factory ---

// New wires an engine over the artifacts found under input.
func New(input string, opts ...Option) (*Engine, error) {
	return platform.New(input, opts...)
}

// Formats returns the names of the supported artifact formats in the order
// they are tried.
func Formats() []string {
	return scan.Formats()
}
