package tfidf

import (
	"context"
	"math"
	"testing"
)

var corpus = []string{
	"fever, cough, fatigue",
	"headache, nausea, light sensitivity",
	"chest pain, shortness of breath",
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare(nil); err == nil {
		t.Fatal("expected error for empty corpus")
	}
}

func TestEmbed_NotPrepared(t *testing.T) {
	e := NewEmbedder()
	if _, err := e.Embed(context.Background(), "fever"); err == nil {
		t.Fatal("expected error when embedding before Prepare")
	}
}

func TestEmbed_UnitLength(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	vec, err := e.Embed(context.Background(), "fever and cough")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != e.Dimension() {
		t.Fatalf("vector length %d != dimension %d", len(vec), e.Dimension())
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("expected unit-length vector, got norm %f", math.Sqrt(norm))
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	a, err := e.Embed(context.Background(), "headache and nausea")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), "headache and nausea")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestEmbed_UnknownTokensYieldZeroVector(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	vec, err := e.Embed(context.Background(), "xyzzy plugh")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector, got %f at %d", v, i)
		}
	}
}
