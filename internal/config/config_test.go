package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.Type != "tfidf" {
		t.Errorf("expected tfidf default embedder, got %s", cfg.Embedder.Type)
	}
	if cfg.Index.Type != "memory" {
		t.Errorf("expected memory default index, got %s", cfg.Index.Type)
	}
	if cfg.Retriever.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", cfg.Retriever.TopK)
	}
	if cfg.Retriever.MinConfidence != 0.35 {
		t.Errorf("expected min_confidence 0.35, got %f", cfg.Retriever.MinConfidence)
	}
}

func TestLoad_AppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
embedder:
  type: ollama
  ollama: {}
index:
  type: sqlitevec
  sqlitevec: {}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.Ollama.Model != "nomic-embed-text" {
		t.Errorf("expected default ollama model, got %s", cfg.Embedder.Ollama.Model)
	}
	if cfg.Index.SQLiteVec.DBPath != "medisearch.db" {
		t.Errorf("expected default db path, got %s", cfg.Index.SQLiteVec.DBPath)
	}
	if cfg.Dataset.Path != "data/health.json" {
		t.Errorf("expected default dataset path, got %s", cfg.Dataset.Path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &AppConfig{
		Dataset:   DatasetConfig{Path: "custom.json"},
		Embedder:  EmbedderConfig{Type: "tfidf"},
		Index:     IndexConfig{Type: "memory"},
		Retriever: RetrieverConfig{TopK: 5, MinConfidence: 0.5},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Dataset.Path != "custom.json" || loaded.Retriever.TopK != 5 {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}
