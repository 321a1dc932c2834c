package server

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// Sentinel errors for catalog store operations.
var (
	ErrCatalogVersionExists   = errors.New("catalog version already exists")
	ErrCatalogVersionNotFound = errors.New("catalog version not found")
)

// CatalogRecord is one fetched catalog document, keyed by content version.
type CatalogRecord struct {
	Version   string          `json:"version"`
	Source    json.RawMessage `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// CatalogStore persists fetched catalog documents by version.
type CatalogStore interface {
	List(ctx context.Context) ([]CatalogRecord, error)
	Get(ctx context.Context, version string) (CatalogRecord, bool, error)
	Latest(ctx context.Context) (CatalogRecord, bool, error)
	Put(ctx context.Context, rec CatalogRecord) error
	Delete(ctx context.Context, version string) error
}

// MemoryStore is an in-memory CatalogStore for tests and ephemeral serving.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]CatalogRecord
}

// NewMemoryStore creates an empty in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]CatalogRecord)}
}

func (s *MemoryStore) List(_ context.Context) ([]CatalogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]CatalogRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].FetchedAt.Before(records[j].FetchedAt)
	})
	return records, nil
}

func (s *MemoryStore) Get(_ context.Context, version string) (CatalogRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[version]
	return rec, ok, nil
}

func (s *MemoryStore) Latest(ctx context.Context) (CatalogRecord, bool, error) {
	records, err := s.List(ctx)
	if err != nil || len(records) == 0 {
		return CatalogRecord{}, false, err
	}
	return records[len(records)-1], true, nil
}

func (s *MemoryStore) Put(_ context.Context, rec CatalogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Version]; exists {
		return ErrCatalogVersionExists
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}
	s.records[rec.Version] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[version]; !exists {
		return ErrCatalogVersionNotFound
	}
	delete(s.records, version)
	return nil
}

var _ CatalogStore = (*MemoryStore)(nil)
