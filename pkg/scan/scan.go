// Package scan walks a folder, tries every known decoder on each file and
// consolidates what they accept into evidence.
//
// Files are grouped by containing folder. Each group is a partition with its
// own correlator and consolidator, so partitions can run in parallel and
// their results are simply concatenated.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/consolidate"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/correlate"
	"github.com/aretw0/strata/pkg/decoder/tag"
)

// Index remembers which format accepted a file, keyed by its source
// identity. Lookup reports hit only when the file is unchanged; an empty
// format on a hit means no decoder accepted it last time.
//
// Verdicts depend on the decoder configuration, so the scanner binds the
// index to a fingerprint of it. An index must forget the entries recorded
// under any other fingerprint. Implementations must be safe for concurrent
// use.
type Index interface {
	Bind(fingerprint string)
	Lookup(src core.Source) (format string, hit bool)
	Record(src core.Source, format string)
}

// Config configures a Scanner.
type Config struct {
	Logger *slog.Logger

	// Tags configures the tag decoder. Its Logger is replaced by Logger.
	Tags tag.Options

	// Parallel bounds the number of partitions decoded at once. Values
	// below 2 scan sequentially.
	Parallel int

	// Index, when set, skips unchanged unparseable files and tries the
	// previously accepted format first.
	Index Index

	// Formats restricts decoding to the named formats. Empty means all.
	Formats []string
}

// Scanner implements core.Scanner.
type Scanner struct {
	config  Config
	log     *slog.Logger
	formats []format
	stats   *stats
}

// New creates a Scanner.
func New(config Config) (*Scanner, error) {
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	config.Tags.Logger = log

	formats, err := selectFormats(config.Formats)
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		config:  config,
		log:     log,
		formats: formats,
		stats:   newStats(),
	}
	if config.Index != nil {
		config.Index.Bind(s.Fingerprint())
	}
	return s, nil
}

// Fingerprint identifies the decoder configuration: the enabled formats,
// the tag policy and the BOOLARRAY mode.
func (s *Scanner) Fingerprint() string {
	names := make([]string, len(s.formats))
	for i, f := range s.formats {
		names[i] = f.name
	}
	sort.Strings(names)
	return fmt.Sprintf("formats=%s;policy=%d;legacy_bool_array=%t",
		strings.Join(names, ","), s.config.Tags.Policy, s.config.Tags.LegacyBoolArray)
}

// Scan implements core.Scanner.
func (s *Scanner) Scan(ctx context.Context, folder core.Folder) ([]core.Evidence, error) {
	s.stats.begin()
	defer s.stats.end()

	groups := make(map[string][]core.File)
	var order []string
	err := folder.Walk(ctx, func(f core.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := f.Source.Dir()
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}

	results := make([][]core.Evidence, len(order))
	run := func(ctx context.Context, i int) error {
		p := s.newPartition(order[i])
		for _, f := range groups[order[i]] {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.process(f)
		}
		results[i] = p.finalize()
		return nil
	}

	if s.config.Parallel < 2 {
		for i := range order {
			if err := run(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Parallel)
		for i := range order {
			g.Go(func() error { return run(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var out []core.Evidence
	for _, r := range results {
		out = append(out, r...)
	}
	s.log.Info("scan finished", "folders", len(order), "evidence", len(out))
	return out, nil
}

// partition owns the accumulation state of one containing folder.
type partition struct {
	s    *Scanner
	dir  string
	log  *slog.Logger
	cons *consolidate.Consolidator
	corr *correlate.Correlator
}

func (s *Scanner) newPartition(dir string) *partition {
	log := s.log.With("folder", dir)
	return &partition{
		s:    s,
		dir:  dir,
		log:  log,
		cons: consolidate.New(log),
		corr: correlate.New(log),
	}
}

func (p *partition) finalize() []core.Evidence {
	p.corr.Flush()
	return p.cons.Finalize()
}

func (p *partition) observe(obs ...consolidate.Observation) {
	for _, o := range obs {
		p.cons.Observe(o)
	}
}

// process decodes one file. Failures are logged and never escape.
func (p *partition) process(f core.File) {
	src := f.Source
	log := p.log.With("path", src.Path)
	p.s.stats.file()

	defer func() {
		if r := recover(); r != nil {
			p.s.stats.failed()
			log.Error("decoder panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	candidates := p.s.formats
	if idx := p.s.config.Index; idx != nil {
		if name, hit := idx.Lookup(src); hit {
			if name == "" {
				p.s.stats.skipped()
				log.Debug("skipping unchanged unparseable file")
				return
			}
			candidates = preferred(candidates, name)
		}
	}

	bs, err := f.Open()
	if err != nil {
		p.s.stats.failed()
		log.Error("open failed", "error", err)
		return
	}
	defer func() { _ = bs.Close() }()
	r := bytesource.New(bs)

	for _, fm := range candidates {
		rec, ok, err := fm.decode(r, p.s.config.Tags, p.log)
		if err != nil {
			p.s.stats.failed()
			log.Error("read failed", "format", fm.name, "error", err)
			return
		}
		if ok {
			fm.emit(p, rec, src)
			p.s.stats.decoded(fm.name)
			log.Debug("decoded", "format", fm.name)
			p.record(src, fm.name)
			return
		}
	}

	p.s.stats.skipped()
	log.Info("skipping unrecognized file")
	p.record(src, "")
}

func (p *partition) record(src core.Source, format string) {
	if idx := p.s.config.Index; idx != nil {
		idx.Record(src, format)
	}
}

// preferred moves the named format to the front, keeping the rest in order.
func preferred(formats []format, name string) []format {
	out := make([]format, 0, len(formats))
	for _, f := range formats {
		if f.name == name {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return formats
	}
	for _, f := range formats {
		if f.name != name {
			out = append(out, f)
		}
	}
	return out
}

// Decode tries the selected formats on r in priority order and returns the
// name and typed record of the first one that accepts it. ok is false when
// none does.
func (s *Scanner) Decode(r *bytesource.Reader) (name string, rec any, ok bool, err error) {
	for _, fm := range s.formats {
		rec, ok, err := fm.decode(r, s.config.Tags, s.log)
		if err != nil {
			return fm.name, nil, false, err
		}
		if ok {
			return fm.name, rec, true, nil
		}
	}
	return "", nil, false, nil
}

var _ core.Scanner = (*Scanner)(nil)

// stats counts scan outcomes for introspection.
type stats struct {
	mu       sync.Mutex
	running  bool
	scans    int
	files    int
	decodes  int
	skips    int
	failures int
	byFormat map[string]int
}

func newStats() *stats { return &stats{byFormat: make(map[string]int)} }

func (s *stats) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.scans++
}

func (s *stats) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *stats) file() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files++
}

func (s *stats) decoded(format string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodes++
	s.byFormat[format]++
}

func (s *stats) skipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skips++
}

func (s *stats) failed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}
