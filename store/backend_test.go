package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// runBackendTests runs a common suite against any Backend implementation.
func runBackendTests(t *testing.T, b Backend) {
	t.Helper()
	c := context.Background()

	t.Run("Read empty", func(t *testing.T) {
		if _, err := b.Read(c); !errors.Is(err, ErrNoDocument) {
			t.Fatalf("err = %v, want ErrNoDocument", err)
		}
	})

	t.Run("Write and Read", func(t *testing.T) {
		if err := b.Write(c, []byte(`{"a":1}`)); err != nil {
			t.Fatal(err)
		}
		got, err := b.Read(c)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != `{"a":1}` {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("Write replaces", func(t *testing.T) {
		if err := b.Write(c, []byte(`{"b":2}`)); err != nil {
			t.Fatal(err)
		}
		got, _ := b.Read(c)
		if string(got) != `{"b":2}` {
			t.Fatalf("got %s", got)
		}
	})
}

func TestMemoryBackend(t *testing.T) {
	runBackendTests(t, NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "nested", "db.json"))
	if err != nil {
		t.Fatal(err)
	}
	runBackendTests(t, b)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer b.Close()
	runBackendTests(t, b)
}

func TestSQLiteBackend_StorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	s, err := Open(ctx(), b, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Companies().Create(ctx(), fields(t, `{"name":"Persist"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := Open(ctx(), b2, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()
	items, err := reloaded.Companies().List(ctx(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Persist" {
		t.Fatalf("items = %+v", items)
	}
}

func TestNewBackend(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{"", "json", "file", "memory"} {
		if _, err := NewBackend(kind, dir); err != nil {
			t.Errorf("NewBackend(%q): %v", kind, err)
		}
	}
	if _, err := NewBackend("postgres", dir); err == nil {
		t.Error("expected error for unknown backend")
	}
	b, _ := NewBackend("", dir)
	if fb, ok := b.(*FileBackend); !ok || fb.Path() != filepath.Join(dir, "db.json") {
		t.Errorf("default backend = %#v, want file at db.json", b)
	}
}
