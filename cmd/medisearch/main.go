package main

import (
	"context"
	"flag"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medisearch/internal/config"
	"medisearch/internal/dataset"
	"medisearch/internal/domain"
	"medisearch/internal/embedding/ollama"
	"medisearch/internal/embedding/openai"
	"medisearch/internal/embedding/tfidf"
	"medisearch/internal/index/memory"
	"medisearch/internal/index/qdrant"
	"medisearch/internal/index/sqlitevec"
	"medisearch/internal/logger"
	"medisearch/internal/retriever"
	"medisearch/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var debug, rebuild bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/medisearch/config.yaml if not provided)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&rebuild, "rebuild", false, "Rebuild the vector index even if a persistent one exists")
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
	log.Info("dataset loaded",
		zap.String("path", cfg.Dataset.Path),
		zap.Int("records", store.Len()),
	)

	emb := newEmbedder(cfg, log)
	st, prebuilt := newStorage(cfg, log, rebuild)

	svc := retriever.NewService(emb, st, store, log,
		retriever.WithTopK(cfg.Retriever.TopK),
		retriever.WithMinConfidence(cfg.Retriever.MinConfidence),
	)

	ctx := context.Background()
	if prebuilt {
		if err := svc.PrepareQueries(); err != nil {
			log.Fatal("failed to prepare embedder", zap.Error(err))
		}
		log.Info("reusing prebuilt vector index")
	} else {
		if err := svc.BuildIndex(ctx); err != nil {
			log.Fatal("failed to build index", zap.Error(err))
		}
	}

	m := tui.New(svc, cfg.Retriever.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal("tui exited with error", zap.Error(err))
	}
}

func newEmbedder(cfg *config.AppConfig, log *zap.Logger) domain.Embedder {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder()
	case "openai":
		oc := config.OpenAIEmbedderConfig{}
		if cfg.Embedder.OpenAI != nil {
			oc = *cfg.Embedder.OpenAI
		}
		client, err := openai.NewClient(openai.Config{
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
		})
		if err != nil {
			log.Fatal("openai embedder init failed", zap.Error(err))
		}
		return client
	case "ollama":
		oc := config.OllamaEmbedderConfig{}
		if cfg.Embedder.Ollama != nil {
			oc = *cfg.Embedder.Ollama
		}
		return ollama.NewEmbedder(ollama.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatal("unknown embedder", zap.String("type", cfg.Embedder.Type))
		return nil
	}
}

// newStorage assembles the configured index backend. The second return is
// true when a persistent index already holds data and a rebuild was not
// requested.
func newStorage(cfg *config.AppConfig, log *zap.Logger, rebuild bool) (domain.Storage, bool) {
	switch cfg.Index.Type {
	case "memory", "":
		return memory.NewStorage(), false
	case "sqlitevec":
		sc := config.SQLiteVecConfig{DBPath: "medisearch.db"}
		if cfg.Index.SQLiteVec != nil {
			sc = *cfg.Index.SQLiteVec
		}
		st, err := sqlitevec.NewStorage(sqlitevec.Config{DBPath: sc.DBPath}, log)
		if err != nil {
			log.Fatal("sqlite-vec init failed", zap.Error(err))
		}
		if rebuild {
			return st, false
		}
		n, err := st.Count(context.Background())
		if err != nil {
			log.Fatal("sqlite-vec count failed", zap.Error(err))
		}
		return st, n > 0
	case "qdrant":
		qc := config.QdrantConfig{}
		if cfg.Index.Qdrant != nil {
			qc = *cfg.Index.Qdrant
		}
		st, err := qdrant.NewStorage(qdrant.Config{Addr: qc.Addr, Collection: qc.Collection}, log)
		if err != nil {
			log.Fatal("qdrant init failed", zap.Error(err))
		}
		return st, false
	default:
		log.Fatal("unknown index", zap.String("type", cfg.Index.Type))
		return nil, false
	}
}
