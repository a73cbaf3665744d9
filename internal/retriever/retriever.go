// Package retriever orchestrates embedding, index search and record
// resolution for symptom queries.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medisearch/internal/dataset"
	"medisearch/internal/domain"
	"medisearch/internal/embedding"
)

// DefaultMinConfidence is the cosine score under which a match is flagged as
// low-confidence. Nearest-neighbor search always returns something; below
// this threshold the nearest record is too far away to present as a likely
// diagnosis without a warning.
const DefaultMinConfidence = 0.35

// DefaultTopK is the result count used when the caller passes topK <= 0.
const DefaultTopK = 3

// Service wires the embedder, the vector index and the dataset store into
// the diagnose operation. Safe for concurrent queries once the index is
// built; nothing is mutated afterwards.
type Service struct {
	embedder      domain.Embedder
	storage       domain.Storage
	store         *dataset.Store
	logger        *zap.Logger
	minConfidence float32
	topK          int
}

// Option customizes a Service.
type Option func(*Service)

// WithMinConfidence overrides the low-confidence threshold.
func WithMinConfidence(v float32) Option {
	return func(s *Service) { s.minConfidence = v }
}

// WithTopK overrides the default result count.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// NewService creates a retriever service over the given components.
func NewService(embedder domain.Embedder, storage domain.Storage, store *dataset.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		embedder:      embedder,
		storage:       storage,
		store:         store,
		logger:        logger,
		minConfidence: DefaultMinConfidence,
		topK:          DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildIndex embeds every record's symptom text and fills the vector index.
// Fails with domain.ErrDatasetEmpty when there are no records to index.
func (s *Service) BuildIndex(ctx context.Context) error {
	if s.store.Len() == 0 {
		return domain.ErrDatasetEmpty
	}

	records := s.store.Records()
	corpus := make([]string, len(records))
	for i, r := range records {
		corpus[i] = r.Symptoms
	}
	if err := s.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("preparing embedder: %w", err)
	}

	entries := make([]domain.IndexEntry, len(records))
	for i, r := range records {
		vec, err := s.embedder.Embed(ctx, r.Symptoms)
		if err != nil {
			return fmt.Errorf("embedding record %q: %w", r.Name, err)
		}
		embedding.Normalize(vec)
		entries[i] = domain.IndexEntry{Ordinal: i, Name: r.Name, Vector: vec}
	}

	// Remote embedders learn their dimension on first use, so Init comes
	// after the embedding pass.
	if err := s.storage.Init(ctx, len(entries[0].Vector)); err != nil {
		return fmt.Errorf("initializing index: %w", err)
	}
	if err := s.storage.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("indexing records: %w", err)
	}

	s.logger.Info("vector index built",
		zap.Int("records", len(entries)),
		zap.Int("dimension", len(entries[0].Vector)),
		zap.String("embedder", s.embedder.Name()),
	)
	return nil
}

// PrepareQueries readies the embedder for query embedding without rebuilding
// the index. Used when a prebuilt persistent index is reused.
func (s *Service) PrepareQueries() error {
	if s.store.Len() == 0 {
		return domain.ErrDatasetEmpty
	}
	records := s.store.Records()
	corpus := make([]string, len(records))
	for i, r := range records {
		corpus[i] = r.Symptoms
	}
	return s.embedder.Prepare(corpus)
}

// Diagnose embeds the query, searches the index for the topK closest disease
// records and resolves them back to full records with their scores. Matches
// scoring under the configured minimum are flagged low-confidence rather than
// dropped; "no good match" is a valid outcome the caller must handle, not an
// error. Embedding or search failures are wrapped with domain.ErrRetrieval
// and surfaced unmodified.
func (s *Service) Diagnose(ctx context.Context, query string, topK int) (*domain.Diagnosis, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.topK
	}

	vec, err := s.embedder.Embed(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", domain.ErrRetrieval, err)
	}
	embedding.Normalize(vec)

	hits, err := s.storage.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: searching index: %v", domain.ErrRetrieval, err)
	}

	matches := make([]domain.Match, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		record, ok := s.store.ByOrdinal(h.Ordinal)
		if !ok {
			s.logger.Warn("index returned unknown ordinal",
				zap.Int("ordinal", h.Ordinal),
				zap.String("name", h.Name),
			)
			continue
		}
		// The same disease can surface more than once from a stale or
		// hand-edited index; keep the best-scoring occurrence.
		if _, dup := seen[record.Name]; dup {
			continue
		}
		seen[record.Name] = struct{}{}
		matches = append(matches, domain.Match{
			Record:        record,
			Score:         h.Score,
			LowConfidence: h.Score < s.minConfidence,
		})
	}

	s.logger.Debug("diagnosis complete",
		zap.String("query", trimmed),
		zap.Int("matches", len(matches)),
	)
	return &domain.Diagnosis{Query: trimmed, Matches: matches}, nil
}

var _ domain.Retriever = (*Service)(nil)
