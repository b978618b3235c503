package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// SinkState exposes internal state for observability.
type SinkState struct {
	Root        string     `json:"root"`
	SystemDir   string     `json:"system_dir"`
	Format      string     `json:"format"`
	ReadOnly    bool       `json:"read_only"`
	Serializers []string   `json:"serializers"`
	Written     int        `json:"written"`
	LastWrite   *time.Time `json:"last_write,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Sink) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SinkState{
		Root:        s.config.Root,
		SystemDir:   s.config.SystemDir,
		Format:      s.config.Format,
		ReadOnly:    s.config.ReadOnly,
		Serializers: Extensions(s.config.Serializers),
		Written:     s.written,
		LastWrite:   s.lastWrite,
	}
}

// ComponentType implements introspection.Component.
func (s *Sink) ComponentType() string {
	return "fs-sink"
}

var _ introspection.Introspectable = (*Sink)(nil)
var _ introspection.Component = (*Sink)(nil)
