package retriever_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"medisearch/internal/dataset"
	"medisearch/internal/domain"
	"medisearch/internal/embedding/tfidf"
	"medisearch/internal/index/memory"
	"medisearch/internal/retriever"
)

func TestRetriever(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Retriever Suite")
}

// mockEmbedder returns canned embeddings and can be told to fail.
type mockEmbedder struct {
	embeddings map[string][]float32
	failOn     string
}

func (m *mockEmbedder) Name() string             { return "mock" }
func (m *mockEmbedder) Prepare(_ []string) error { return nil }
func (m *mockEmbedder) Dimension() int           { return 3 }

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.failOn != "" && text == m.failOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}
	if emb, ok := m.embeddings[text]; ok {
		return emb, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// mockStorage fails on demand and records nothing.
type mockStorage struct {
	failSearch bool
	failUpsert bool
	hits       []domain.Hit
}

func (m *mockStorage) Init(_ context.Context, _ int) error { return nil }
func (m *mockStorage) Upsert(_ context.Context, _ []domain.IndexEntry) error {
	if m.failUpsert {
		return errors.New("mock upsert failure")
	}
	return nil
}
func (m *mockStorage) Search(_ context.Context, _ []float32, _ int) ([]domain.Hit, error) {
	if m.failSearch {
		return nil, errors.New("mock search failure")
	}
	return m.hits, nil
}
func (m *mockStorage) Clear(_ context.Context) error { return nil }

var records = []domain.DiseaseRecord{
	{
		Name:        "flu",
		Symptoms:    "fever cough fatigue",
		Precautions: []string{"rest", "hydrate"},
		Medicines:   []string{"paracetamol"},
	},
	{
		Name:        "migraine",
		Symptoms:    "headache nausea light sensitivity",
		Precautions: []string{"dark room", "rest"},
		Medicines:   []string{"ibuprofen"},
	},
}

var _ = Describe("Service", func() {
	var (
		svc *retriever.Service
		ctx context.Context
	)

	newService := func(store *dataset.Store, opts ...retriever.Option) *retriever.Service {
		return retriever.NewService(tfidf.NewEmbedder(), memory.NewStorage(), store, zap.NewNop(), opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		svc = newService(dataset.NewStore(records))
		Expect(svc.BuildIndex(ctx)).To(Succeed())
	})

	Describe("BuildIndex", func() {
		It("fails with ErrDatasetEmpty for an empty dataset", func() {
			empty := newService(dataset.NewStore(nil))
			err := empty.BuildIndex(ctx)
			Expect(errors.Is(err, domain.ErrDatasetEmpty)).To(BeTrue())
		})
	})

	Describe("Diagnose", func() {
		It("rejects empty and whitespace-only queries", func() {
			for _, q := range []string{"", "   ", "\t\n"} {
				_, err := svc.Diagnose(ctx, q, 1)
				Expect(errors.Is(err, domain.ErrEmptyQuery)).To(BeTrue(), "query %q", q)
			}
		})

		It("returns the flu record for a fever and cough query", func() {
			d, err := svc.Diagnose(ctx, "I have fever and cough", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches).To(HaveLen(1))
			Expect(d.Matches[0].Record.Name).To(Equal("flu"))
			Expect(d.Matches[0].Record.Precautions).To(Equal([]string{"rest", "hydrate"}))
		})

		It("returns min(k, records) matches", func() {
			d, err := svc.Diagnose(ctx, "fever", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches).To(HaveLen(len(records)))
		})

		It("orders matches by descending score", func() {
			d, err := svc.Diagnose(ctx, "headache and nausea", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches[0].Record.Name).To(Equal("migraine"))
			for i := 1; i < len(d.Matches); i++ {
				Expect(d.Matches[i].Score).To(BeNumerically("<=", d.Matches[i-1].Score))
			}
		})

		It("scores an exact symptom text near the metric maximum", func() {
			d, err := svc.Diagnose(ctx, records[0].Symptoms, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches[0].Record.Name).To(Equal("flu"))
			Expect(d.Matches[0].Score).To(BeNumerically("~", 1.0, 1e-5))
			Expect(d.Matches[0].LowConfidence).To(BeFalse())
		})

		It("flags a gibberish query as low-confidence", func() {
			d, err := svc.Diagnose(ctx, "xyzzy plugh qwerty", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches).NotTo(BeEmpty())
			Expect(d.Matches[0].LowConfidence).To(BeTrue())
		})

		It("is idempotent for repeated queries", func() {
			first, err := svc.Diagnose(ctx, "fever and fatigue", 2)
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.Diagnose(ctx, "fever and fatigue", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("defaults topK when non-positive", func() {
			d, err := svc.Diagnose(ctx, "fever", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(d.Matches)).To(BeNumerically(">", 0))
		})

		It("respects a custom confidence threshold", func() {
			strict := newService(dataset.NewStore(records), retriever.WithMinConfidence(0.999))
			Expect(strict.BuildIndex(ctx)).To(Succeed())
			d, err := strict.Diagnose(ctx, "fever and cough only", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches[0].LowConfidence).To(BeTrue())
		})
	})

	Describe("error propagation", func() {
		It("wraps embedding failures with ErrRetrieval", func() {
			emb := &mockEmbedder{failOn: "boom"}
			s := retriever.NewService(emb, memory.NewStorage(), dataset.NewStore(records), zap.NewNop())
			Expect(s.BuildIndex(ctx)).To(Succeed())
			_, err := s.Diagnose(ctx, "boom", 1)
			Expect(errors.Is(err, domain.ErrRetrieval)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("embedding query"))
		})

		It("wraps index search failures with ErrRetrieval", func() {
			s := retriever.NewService(&mockEmbedder{}, &mockStorage{failSearch: true}, dataset.NewStore(records), zap.NewNop())
			_, err := s.Diagnose(ctx, "fever", 1)
			Expect(errors.Is(err, domain.ErrRetrieval)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("searching index"))
		})

		It("skips hits whose ordinal does not resolve", func() {
			storage := &mockStorage{hits: []domain.Hit{
				{Ordinal: 99, Name: "ghost", Score: 0.9},
				{Ordinal: 0, Name: "flu", Score: 0.8},
			}}
			s := retriever.NewService(&mockEmbedder{}, storage, dataset.NewStore(records), zap.NewNop())
			d, err := s.Diagnose(ctx, "fever", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches).To(HaveLen(1))
			Expect(d.Matches[0].Record.Name).To(Equal("flu"))
		})

		It("deduplicates repeated diseases keeping the best score", func() {
			storage := &mockStorage{hits: []domain.Hit{
				{Ordinal: 0, Name: "flu", Score: 0.9},
				{Ordinal: 0, Name: "flu", Score: 0.5},
				{Ordinal: 1, Name: "migraine", Score: 0.4},
			}}
			s := retriever.NewService(&mockEmbedder{}, storage, dataset.NewStore(records), zap.NewNop())
			d, err := s.Diagnose(ctx, "fever", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Matches).To(HaveLen(2))
			Expect(d.Matches[0].Record.Name).To(Equal("flu"))
			Expect(d.Matches[0].Score).To(Equal(float32(0.9)))
		})
	})
})
