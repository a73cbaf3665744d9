package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medisearch/internal/domain"
)

// Storage is an in-memory vector index using brute-force cosine similarity.
// Vectors are expected to be L2-normalized, so similarity is a dot product.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexEntry
}

// NewStorage creates an empty in-memory index.
func NewStorage() *Storage { return &Storage{} }

// Init sets the vector dimension and drops any stored entries.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.entries = nil
	return nil
}

// Upsert appends entries to the index. All vectors must match the dimension
// set by Init.
func (s *Storage) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

// Search returns the topK entries most similar to the query vector, ordered
// by descending score. Exact score ties break by lower ordinal so rankings
// are deterministic. Asking for more results than entries returns them all.
func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	hits := make([]domain.Hit, len(s.entries))
	for i, e := range s.entries {
		hits[i] = domain.Hit{Ordinal: e.Ordinal, Name: e.Name, Score: dot(e.Vector, vector)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// Clear drops all stored entries.
func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

var _ domain.Storage = (*Storage)(nil)
