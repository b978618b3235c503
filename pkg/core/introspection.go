package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	ScannerType string     `json:"scanner_type"`
	SinkType    string     `json:"sink_type"`
	LastRun     *RunReport `json:"last_run,omitempty"`
	Scanner     any        `json:"scanner,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := ServiceState{
		ScannerType: componentType(s.scanner),
		SinkType:    "none",
		LastRun:     s.lastRun,
	}
	if s.sink != nil {
		state.SinkType = componentType(s.sink)
	}
	if in, ok := s.scanner.(introspection.Introspectable); ok {
		state.Scanner = in.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

func componentType(v any) string {
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return "unknown"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
