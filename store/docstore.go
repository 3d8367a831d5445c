package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Store serializes every access to the persisted document. Each operation
// reads the whole document, applies its change and, for mutations, rewrites
// the whole document. Nothing is cached between operations.
//
// Mutations hold the write lock across load, mutate and save, so at most
// one rewrite is in flight and concurrent writers never overwrite each
// other's changes.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	log     *slog.Logger
	now     func() time.Time
	newID   func(prefix string) string
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides NewID.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open wraps backend, writing a defaults-only document if none exists yet.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		log:     slog.Default(),
		now:     time.Now,
		newID:   NewID,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := backend.Read(ctx); err != nil {
		if !errors.Is(err, ErrNoDocument) {
			// Left in place; every load recovers to defaults until a write succeeds.
			s.log.Error("persisted document is unreadable", "error", err)
			return s, nil
		}
		s.log.Info("creating document with defaults")
		if err := s.save(ctx, NewDocument()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close waits for an in-flight mutation to finish, then releases the
// backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// load never fails: an unreadable document is replaced by defaults and the
// loss is logged.
func (s *Store) load(ctx context.Context) *Document {
	data, err := s.backend.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoDocument) {
			s.log.Error("failed to read document, using defaults", "error", err)
		}
		return NewDocument()
	}
	doc, err := decodeDocument(data, s.log)
	if err != nil {
		s.log.Error("failed to decode document, using defaults", "error", err)
		return NewDocument()
	}
	return doc
}

func (s *Store) save(ctx context.Context, doc *Document) error {
	data, err := doc.encode()
	if err != nil {
		return &PersistenceFault{Op: "encode", Err: err}
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return &PersistenceFault{Op: "write", Err: err}
	}
	return nil
}

func (s *Store) view(ctx context.Context, fn func(*Document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.load(ctx))
}

// mutate runs one load-mutate-save cycle. If fn fails nothing is written.
func (s *Store) mutate(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

// State returns the free-form UI state.
func (s *Store) State(ctx context.Context) (map[string]json.RawMessage, error) {
	var state map[string]json.RawMessage
	err := s.view(ctx, func(doc *Document) error {
		state = doc.State
		return nil
	})
	return state, err
}

// MergeState overwrites the top-level keys present in partial and keeps
// every other key. Values are replaced whole, never merged deeply. The full
// resulting state is returned.
func (s *Store) MergeState(ctx context.Context, partial map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	if partial == nil {
		return nil, invalid("state", "must be an object")
	}
	var state map[string]json.RawMessage
	err := s.mutate(ctx, func(doc *Document) error {
		for k, v := range partial {
			doc.State[k] = v
		}
		state = doc.State
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) Rates(ctx context.Context) (Rates, error) {
	var r Rates
	err := s.view(ctx, func(doc *Document) error {
		r = doc.Rates
		return nil
	})
	return r, err
}

// SetRates updates usd and krw independently. Unlike every other numeric
// field, a value that does not parse to a non-zero number is not rejected:
// the field silently keeps its current value.
func (s *Store) SetRates(ctx context.Context, f Fields) (Rates, error) {
	var r Rates
	err := s.mutate(ctx, func(doc *Document) error {
		doc.Rates.USD = rateOrCurrent(f, "usd", doc.Rates.USD)
		doc.Rates.KRW = rateOrCurrent(f, "krw", doc.Rates.KRW)
		r = doc.Rates
		return nil
	})
	if err != nil {
		return Rates{}, err
	}
	return r, nil
}

func rateOrCurrent(f Fields, key string, current float64) float64 {
	v, ok, err := f.Float(key)
	if err != nil || !ok || v == 0 {
		return current
	}
	return v
}
