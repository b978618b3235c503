package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/zeebo/errs"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/adapters/sqlite"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/decoder/tag"
	"github.com/aretw0/strata/pkg/scan"
)

// Engine is a wired scanner, folder, sink and index.
type Engine struct {
	Service *core.Service
	Scanner *scan.Scanner
	Folder  core.Folder
	Sink    core.Sink
	Index   *fs.Index

	// Input and Output are the paths the engine was built with.
	Input  string
	Output string

	log      *slog.Logger
	readOnly bool
}

// New wires an engine over the artifacts found under input.
//
//	eng, err := strata.New("./evidence/export", strata.WithOutput("./case"))
func New(input string, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if o.systemDir == "" {
		o.systemDir = fs.DefaultSystemDir
	}

	folder := o.folder
	if folder == nil {
		if input == "" {
			return nil, errors.New("input path cannot be empty")
		}
		f, err := fs.NewFolder(fs.FolderConfig{
			Root:      input,
			Includes:  o.includes,
			Excludes:  o.excludes,
			Deleted:   o.deleted,
			SystemDir: o.systemDir,
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}
		folder = f
	}

	sink, indexRoot, err := newSink(o, log)
	if err != nil {
		return nil, err
	}

	var index *fs.Index
	if o.index && indexRoot != "" {
		index = fs.NewIndex(indexRoot, o.systemDir, log)
	}

	cfg := scan.Config{
		Logger:   log,
		Tags:     tag.Options{Policy: o.tagPolicy, LegacyBoolArray: o.legacyBool},
		Parallel: o.parallel,
		Formats:  o.decoders,
	}
	if index != nil {
		cfg.Index = index
	}
	scanner, err := scan.New(cfg)
	if err != nil {
		return nil, errs.Combine(err, closeSink(sink))
	}

	return &Engine{
		Service:  core.NewService(scanner, sink),
		Scanner:  scanner,
		Folder:   folder,
		Sink:     sink,
		Index:    index,
		Input:    input,
		Output:   o.output,
		log:      log,
		readOnly: o.readOnly,
	}, nil
}

// newSink builds the configured sink and returns the directory the index
// should live under, if any.
func newSink(o *options, log *slog.Logger) (core.Sink, string, error) {
	if o.sink != nil {
		return o.sink, "", nil
	}

	switch o.sinkAdapter {
	case SinkNone, "":
		return nil, "", nil
	case SinkFS:
		if o.output == "" {
			return nil, "", nil
		}
		s, err := fs.NewSink(fs.SinkConfig{
			Root:      o.output,
			Format:    o.format,
			ReadOnly:  o.readOnly,
			SystemDir: o.systemDir,
			Logger:    log,
		})
		if err != nil {
			return nil, "", err
		}
		return s, o.output, nil
	case SinkSQLite:
		if o.output == "" {
			return nil, "", errors.New("sqlite sink needs an output database path")
		}
		s, err := sqlite.Open(sqlite.Config{Path: o.output, ReadOnly: o.readOnly, Logger: log})
		if err != nil {
			return nil, "", err
		}
		return s, filepath.Dir(o.output), nil
	default:
		return nil, "", fmt.Errorf("unsupported sink adapter: %s", o.sinkAdapter)
	}
}

func closeSink(s core.Sink) error {
	if s == nil {
		return nil
	}
	return s.Close()
}

// Run scans the folder, writes the evidence to the sink and persists the
// index. The index keeps only the files seen by this run.
func (e *Engine) Run(ctx context.Context) (core.RunReport, error) {
	if e.Sink != nil {
		if err := e.Sink.Initialize(ctx); err != nil {
			return core.RunReport{}, err
		}
	}
	if e.Index != nil {
		if err := e.Index.Load(); err != nil {
			return core.RunReport{}, err
		}
	}

	seen := &seenFolder{Folder: e.Folder, paths: make(map[string]bool)}
	report, err := e.Service.Run(ctx, seen)
	if err != nil {
		return report, err
	}

	if e.Index != nil && !e.readOnly {
		e.Index.Prune(seen.snapshot())
		if err := e.Index.Save(); err != nil {
			return report, fmt.Errorf("save index: %w", err)
		}
	}
	e.log.Info("scan finished", "evidence", report.Total, "by_kind", report.ByKind)
	return report, nil
}

// Scan consolidates the evidence without touching the sink or the index.
func (e *Engine) Scan(ctx context.Context) ([]core.Evidence, error) {
	return e.Service.Scan(ctx, e.Folder)
}

// Close releases the sink.
func (e *Engine) Close() error {
	return e.Service.Close()
}

// seenFolder records the paths yielded by a walk.
type seenFolder struct {
	core.Folder

	mu    sync.Mutex
	paths map[string]bool
}

func (f *seenFolder) Walk(ctx context.Context, fn func(core.File) error) error {
	return f.Folder.Walk(ctx, func(file core.File) error {
		f.mu.Lock()
		f.paths[file.Source.Path] = true
		f.mu.Unlock()
		return fn(file)
	})
}

func (f *seenFolder) snapshot() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.paths))
	for p := range f.paths {
		out[p] = true
	}
	return out
}
