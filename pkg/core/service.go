package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Service wires a Scanner to a Sink.
type Service struct {
	scanner Scanner
	sink    Sink

	mu      sync.RWMutex
	lastRun *RunReport
}

// RunReport summarizes one Run.
type RunReport struct {
	Started  time.Time            `json:"started"`
	Finished time.Time            `json:"finished"`
	Total    int                  `json:"total"`
	ByKind   map[EvidenceKind]int `json:"by_kind"`
}

// NewService creates a new Service. sink may be nil, in which case Run only
// scans.
func NewService(scanner Scanner, sink Sink) *Service {
	return &Service{scanner: scanner, sink: sink}
}

// Scan consolidates the evidence found in folder without persisting it.
func (s *Service) Scan(ctx context.Context, folder Folder) ([]Evidence, error) {
	if folder == nil {
		return nil, errors.New("folder cannot be nil")
	}
	return s.scanner.Scan(ctx, folder)
}

// Run scans folder and writes the result to the sink.
func (s *Service) Run(ctx context.Context, folder Folder) (RunReport, error) {
	report := RunReport{Started: time.Now(), ByKind: make(map[EvidenceKind]int)}

	evidence, err := s.Scan(ctx, folder)
	if err != nil {
		return report, err
	}
	for _, e := range evidence {
		report.ByKind[e.Kind]++
	}
	report.Total = len(evidence)

	if s.sink != nil {
		if err := s.sink.Write(ctx, evidence); err != nil {
			return report, err
		}
	}
	report.Finished = time.Now()

	s.mu.Lock()
	s.lastRun = &report
	s.mu.Unlock()
	return report, nil
}

// Close closes the sink, if any.
func (s *Service) Close() error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Close()
}
