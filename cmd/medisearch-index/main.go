// Command medisearch-index embeds the disease dataset and writes the vectors
// into the configured persistent index, so the chat binary can start without
// repeating the embedding pass.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medisearch/internal/config"
	"medisearch/internal/dataset"
	"medisearch/internal/domain"
	"medisearch/internal/embedding/ollama"
	"medisearch/internal/embedding/openai"
	"medisearch/internal/embedding/tfidf"
	"medisearch/internal/index/qdrant"
	"medisearch/internal/index/sqlitevec"
	"medisearch/internal/logger"
	"medisearch/internal/retriever"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var debug bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	log := logger.New(debug)
	defer log.Sync()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	store, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		log.Fatal("failed to load dataset", zap.Error(err))
	}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		oc := config.OpenAIEmbedderConfig{}
		if cfg.Embedder.OpenAI != nil {
			oc = *cfg.Embedder.OpenAI
		}
		client, err := openai.NewClient(openai.Config{APIKeyEnv: oc.APIKeyEnv, Model: oc.Model})
		if err != nil {
			log.Fatal("openai embedder init failed", zap.Error(err))
		}
		emb = client
	case "ollama":
		oc := config.OllamaEmbedderConfig{}
		if cfg.Embedder.Ollama != nil {
			oc = *cfg.Embedder.Ollama
		}
		emb = ollama.NewEmbedder(ollama.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatal("unknown embedder", zap.String("type", cfg.Embedder.Type))
	}

	var st domain.Storage
	switch cfg.Index.Type {
	case "sqlitevec":
		sc := config.SQLiteVecConfig{DBPath: "medisearch.db"}
		if cfg.Index.SQLiteVec != nil {
			sc = *cfg.Index.SQLiteVec
		}
		storage, err := sqlitevec.NewStorage(sqlitevec.Config{DBPath: sc.DBPath}, log)
		if err != nil {
			log.Fatal("sqlite-vec init failed", zap.Error(err))
		}
		defer storage.Close()
		st = storage
	case "qdrant":
		qc := config.QdrantConfig{}
		if cfg.Index.Qdrant != nil {
			qc = *cfg.Index.Qdrant
		}
		storage, err := qdrant.NewStorage(qdrant.Config{Addr: qc.Addr, Collection: qc.Collection}, log)
		if err != nil {
			log.Fatal("qdrant init failed", zap.Error(err))
		}
		st = storage
	default:
		log.Fatal("index type must be persistent (sqlitevec or qdrant)", zap.String("type", cfg.Index.Type))
	}

	svc := retriever.NewService(emb, st, store, log)
	if err := svc.BuildIndex(context.Background()); err != nil {
		log.Fatal("failed to build index", zap.Error(err))
	}
	log.Info("index build complete",
		zap.String("index", cfg.Index.Type),
		zap.Int("records", store.Len()),
	)
}
