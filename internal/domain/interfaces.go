package domain

import "context"

// DiseaseRecord is a single entry of the medical dataset. Records are
// immutable after load; their position in the dataset is their ordinal.
type DiseaseRecord struct {
	Name        string
	Symptoms    string
	Precautions []string
	Medicines   []string
}

// IndexEntry pairs a record's ordinal with its embedding vector.
type IndexEntry struct {
	Ordinal int
	Name    string
	Vector  []float32
}

// Hit is a single index query result, before record resolution.
type Hit struct {
	Ordinal int
	Name    string
	Score   float32
}

// Match pairs a resolved disease record with its similarity score.
// LowConfidence is set when the score falls below the configured minimum,
// so the presentation layer can warn instead of presenting the match as fact.
type Match struct {
	Record        DiseaseRecord
	Score         float32
	LowConfidence bool
}

// Diagnosis is the ranked result of a single query, highest score first.
// Built fresh per query; no state is shared between queries.
type Diagnosis struct {
	Query   string
	Matches []Match
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Storage persists embedding vectors and supports similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, entries []IndexEntry) error
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Clear(ctx context.Context) error
}

// Retriever is the sole entry point the presentation layer depends on.
type Retriever interface {
	Diagnose(ctx context.Context, query string, topK int) (*Diagnosis, error)
}
