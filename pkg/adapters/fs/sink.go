package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/strata/pkg/core"
)

// SinkConfig holds the configuration for the file sink.
type SinkConfig struct {
	Root string
	// Format is the extension of the written files. Defaults to ".json".
	Format      string
	ReadOnly    bool
	SystemDir   string
	Serializers map[string]Serializer
	Logger      *slog.Logger
}

// Sink writes each evidence record to {Root}/{kind}/{id}{Format}.
type Sink struct {
	config     SinkConfig
	serializer Serializer
	log        *slog.Logger

	mu        sync.RWMutex
	written   int
	lastWrite *time.Time
}

// NewSink creates a file sink. It fails if no serializer handles Format.
func NewSink(config SinkConfig) (*Sink, error) {
	if config.Root == "" {
		return nil, errors.New("sink root cannot be empty")
	}
	if config.Format == "" {
		config.Format = ".json"
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Serializers == nil {
		config.Serializers = DefaultSerializers()
	}
	ser, ok := config.Serializers[config.Format]
	if !ok {
		return nil, fmt.Errorf("no serializer for format %q (have %v)", config.Format, Extensions(config.Serializers))
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Sink{config: config, serializer: ser, log: log}, nil
}

// Root returns the output directory.
func (s *Sink) Root() string { return s.config.Root }

// SystemDir returns the directory under Root reserved for the scan index.
func (s *Sink) SystemDir() string { return s.config.SystemDir }

// Initialize creates the output directory. In read-only mode it only checks
// that the directory exists.
func (s *Sink) Initialize(ctx context.Context) error {
	if s.config.ReadOnly {
		info, err := os.Stat(s.config.Root)
		if err != nil {
			return fmt.Errorf("output path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("output path is not a directory: %s", s.config.Root)
		}
		return nil
	}
	if err := os.MkdirAll(s.config.Root, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// Write implements core.Sink. A record is replaced when its file exists.
func (s *Sink) Write(ctx context.Context, evidence []core.Evidence) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}

	dirs := make(map[core.EvidenceKind]bool)
	for _, e := range evidence {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.ID == "" || e.Kind == "" {
			return fmt.Errorf("evidence without id or kind: %+v", e)
		}

		dir := filepath.Join(s.config.Root, string(e.Kind))
		if !dirs[e.Kind] {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			dirs[e.Kind] = true
		}

		data, err := s.serializer.Serialize(e)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", e.ID, err)
		}
		if err := writeFileAtomic(filepath.Join(dir, e.ID+s.config.Format), data, 0644); err != nil {
			return err
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.written += len(evidence)
	s.lastWrite = &now
	s.mu.Unlock()

	s.log.Info("evidence written", "root", s.config.Root, "count", len(evidence), "format", s.config.Format)
	return nil
}

// Close implements core.Sink.
func (s *Sink) Close() error { return nil }

var _ core.Sink = (*Sink)(nil)
