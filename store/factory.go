package store

import (
	"fmt"
	"path/filepath"
)

// NewBackend creates a Backend by name.
//
// Supported backends:
//
//	"file"   - JSON document at dataDir/db.json (default, alias "json")
//	"sqlite" - single-row SQLite database at dataDir/db.sqlite
//	"memory" - in-memory (ephemeral, for testing)
func NewBackend(kind, dataDir string) (Backend, error) {
	switch kind {
	case "file", "json", "":
		return NewFileBackend(filepath.Join(dataDir, "db.json"))
	case "sqlite":
		return NewSQLiteBackend(filepath.Join(dataDir, "db.sqlite"))
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: file, sqlite, memory)", kind)
	}
}
