// Package store owns the single persisted POS document and every operation
// on its collections, state and exchange rates.
package store

import "context"

// Backend persists the serialized document as one unit.
// Implementations: MemoryBackend, FileBackend, SQLiteBackend.
type Backend interface {
	// Read returns the last written document, or ErrNoDocument.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the whole document.
	Write(ctx context.Context, data []byte) error
	Close() error
}
