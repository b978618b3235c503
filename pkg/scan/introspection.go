package scan

import (
	"github.com/aretw0/introspection"
)

// ScannerState exposes internal state for observability.
type ScannerState struct {
	Running  bool           `json:"running"`
	Scans    int            `json:"scans"`
	Files    int            `json:"files"`
	Decoded  int            `json:"decoded"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	ByFormat map[string]int `json:"by_format"`
	Formats  []string       `json:"formats"`
	Parallel int            `json:"parallel"`
	Indexed  bool           `json:"indexed"`
}

// State implements introspection.Introspectable.
func (s *Scanner) State() any {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	byFormat := make(map[string]int, len(s.stats.byFormat))
	for k, v := range s.stats.byFormat {
		byFormat[k] = v
	}
	names := make([]string, len(s.formats))
	for i, f := range s.formats {
		names[i] = f.name
	}
	return ScannerState{
		Running:  s.stats.running,
		Scans:    s.stats.scans,
		Files:    s.stats.files,
		Decoded:  s.stats.decodes,
		Skipped:  s.stats.skips,
		Failed:   s.stats.failures,
		ByFormat: byFormat,
		Formats:  names,
		Parallel: s.config.Parallel,
		Indexed:  s.config.Index != nil,
	}
}

// ComponentType implements introspection.Component.
func (s *Scanner) ComponentType() string {
	return "scanner"
}

var _ introspection.Introspectable = (*Scanner)(nil)
var _ introspection.Component = (*Scanner)(nil)
