package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"marketrag/internal/chunker"
	"marketrag/internal/config"
	"marketrag/internal/domain"
	"marketrag/internal/embedding"
	"marketrag/internal/engine"
	"marketrag/internal/extract"
	"marketrag/internal/generation"
	"marketrag/internal/index"
	"marketrag/internal/tui"
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
	if dir := flag.Arg(0); dir != "" {
		cfg.Corpus.Dir = dir
	}

	// Keep stderr quiet while the TUI owns the terminal.
	logger := log.NewWithOptions(os.Stderr, log.Options{})
	logger.SetLevel(log.ErrorLevel)

	ctx := context.Background()

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf":
		emb = embedding.NewTFIDFEmbedder()
	case "openai", "":
		if cfg.Embedder.OpenAI == nil {
			log.Fatal("openai embedder config missing")
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
			log.Fatal("openai embedder init failed", "err", err)
		}
		emb = client
	default:
		log.Fatal("unknown embedder", "type", cfg.Embedder.Type)
	}

	var store domain.VectorStore
	switch cfg.VectorStore.Type {
	case "memory", "":
		store = memory.NewStore()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			log.Fatal("qdrant config missing")
		}
		qs, err := qdrant.NewStore(qdrant.Config{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
		})
		if err != nil {
			log.Fatal("qdrant init failed", "err", err)
		}
		store = qs
	default:
		log.Fatal("unknown vector store", "type", cfg.VectorStore.Type)
	}

	gen, err := generation.NewOpenAIClient(generation.OpenAIConfig{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		Timeout:     cfg.Generator.Timeout(),
		MaxRetries:  cfg.Generator.MaxRetries,
	})
	if err != nil {
		log.Fatal("generator init failed", "err", err)
	}

	ch, err := chunker.NewWindowChunker(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	if err != nil {
		log.Fatal("invalid chunker config", "err", err)
	}

	builder := index.NewBuilder(extract.NewLoader(logger), ch, emb, store, logger)
	ix, err := builder.Build(ctx, cfg.Corpus.Dir)
	if err != nil {
		log.Fatal("index build failed", "err", err)
	}

	eng := engine.New(ix, emb, gen, cfg.Retrieval.TopK, logger)

	summary := fmt.Sprintf("%d documents, %d chunks, model %s",
		ix.Documents(), ix.Chunks(), ix.Model())
	m := tui.New(eng, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal("tui failed", "err", err)
	}
}
