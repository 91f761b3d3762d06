package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"marketrag/internal/chunker"
	"marketrag/internal/config"
	"marketrag/internal/domain"
	"marketrag/internal/embedding"
	"marketrag/internal/engine"
	"marketrag/internal/enrich"
	"marketrag/internal/extract"
	"marketrag/internal/generation"
	"marketrag/internal/index"
	"marketrag/internal/keepalive"
	"marketrag/internal/server"
	"marketrag/internal/vectorstore/memory"
	"marketrag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emb := buildEmbedder(cfg, logger)
	store := buildStore(cfg, logger)

	gen, err := generation.NewOpenAIClient(generation.OpenAIConfig{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		Timeout:     cfg.Generator.Timeout(),
		MaxRetries:  cfg.Generator.MaxRetries,
	})
	if err != nil {
		logger.Fatal("generator init failed", "err", err)
	}

	ix := buildIndex(ctx, cfg, emb, store, logger)

	eng := engine.New(ix, emb, gen, cfg.Retrieval.TopK, logger)

	var enrichers []enrich.Enricher
	if cfg.Enrich.Sentiment {
		enrichers = append(enrichers, enrich.NewSentiment())
	}
	if cfg.Enrich.Topics {
		enrichers = append(enrichers, enrich.NewTopics(cfg.Enrich.NumTopics, cfg.Enrich.KeywordsPerTopic))
	}

	if cfg.Keepalive.Enabled && cfg.Keepalive.URL != "" {
		pinger := keepalive.New(cfg.Keepalive.URL, cfg.Keepalive.Interval(), logger)
		pinger.Start(ctx)
		defer pinger.Stop()
	}

	srv := server.New(eng, enrichers, server.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}

func buildEmbedder(cfg *config.AppConfig, logger *log.Logger) domain.Embedder {
	switch cfg.Embedder.Type {
	case "tfidf":
		return embedding.NewTFIDFEmbedder()
	case "openai", "":
		if cfg.Embedder.OpenAI == nil {
			logger.Fatal("openai embedder config missing")
		}
		client, err := embedding.NewOpenAIClient(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			Timeout:    cfg.Embedder.OpenAI.Timeout(),
			BatchSize:  cfg.Embedder.OpenAI.BatchSize,
			MaxRetries: cfg.Embedder.OpenAI.MaxRetries,
		})
		if err != nil {
			logger.Fatal("openai embedder init failed", "err", err)
		}
		return client
	default:
		logger.Fatal("unknown embedder", "type", cfg.Embedder.Type)
		return nil
	}
}

func buildStore(cfg *config.AppConfig, logger *log.Logger) domain.VectorStore {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStore()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			logger.Fatal("qdrant config missing")
		}
		store, err := qdrant.NewStore(qdrant.Config{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
		})
		if err != nil {
			logger.Fatal("qdrant init failed", "err", err)
		}
		return store
	default:
		logger.Fatal("unknown vector store", "type", cfg.VectorStore.Type)
		return nil
	}
}

// buildIndex restores the corpus index from a snapshot when one exists,
// otherwise builds it from the corpus directory and snapshots the result.
func buildIndex(ctx context.Context, cfg *config.AppConfig, emb domain.Embedder, store domain.VectorStore, logger *log.Logger) *index.Index {
	if cfg.Snapshot.Path != "" && cfg.VectorStore.Type != "qdrant" {
		if ix, err := index.Load(ctx, cfg.Snapshot.Path); err == nil {
			if ix.Model() == emb.Model() {
				logger.Info("restored index snapshot",
					"path", cfg.Snapshot.Path, "documents", ix.Documents(), "chunks", ix.Chunks())
				return ix
			}
			logger.Warn("snapshot embedding model differs, rebuilding",
				"snapshot", ix.Model(), "configured", emb.Model())
		} else if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("snapshot load failed, rebuilding", "err", err)
		}
	}

	ch, err := chunker.NewWindowChunker(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	if err != nil {
		logger.Fatal("invalid chunker config", "err", err)
	}

	builder := index.NewBuilder(extract.NewLoader(logger), ch, emb, store, logger)
	ix, err := builder.Build(ctx, cfg.Corpus.Dir)
	if err != nil {
		logger.Fatal("index build failed", "err", err)
	}
	logger.Info("index built", "documents", ix.Documents(), "chunks", ix.Chunks())

	if cfg.Snapshot.Path != "" {
		if err := ix.Save(cfg.Snapshot.Path); err != nil {
			logger.Warn("snapshot save failed", "err", err)
		}
	}
	return ix
}
