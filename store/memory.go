package store

import (
	"context"
	"sync"
)

// MemoryBackend is an in-memory implementation of Backend.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   []byte
	writes int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Read(_ context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.data == nil {
		return nil, ErrNoDocument
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (b *MemoryBackend) Write(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = make([]byte, len(data))
	copy(b.data, data)
	b.writes++
	return nil
}

// Writes reports how many times the document has been rewritten.
func (b *MemoryBackend) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

func (b *MemoryBackend) Close() error { return nil }
