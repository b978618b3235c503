package core

import "context"

// Sink defines the contract for persisting consolidated evidence.
// Adhering to this interface keeps the engine independent of the case store
// (files, SQLite, a forensic suite's own database).
type Sink interface {
	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error

	// Write persists a batch of evidence. Records with an ID already present
	// are replaced.
	Write(ctx context.Context, evidence []Evidence) error

	// Close releases the resources held by the sink.
	Close() error
}

// Scanner turns a folder of artifacts into consolidated evidence.
type Scanner interface {
	Scan(ctx context.Context, folder Folder) ([]Evidence, error)
}
