package index

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"marketrag/internal/domain"
	"marketrag/internal/vectorstore/memory"
)

// Index is one fully built, immutable view of the corpus: every chunk of
// every document, embedded and searchable. A rebuild produces a new Index
// value; readers of the old one are never exposed to a half-built state.
type Index struct {
	store     domain.VectorStore
	model     string
	documents int
	chunks    int
}

// Store returns the searchable vector store behind the index.
func (ix *Index) Store() domain.VectorStore { return ix.store }

// Model returns the embedding model identity recorded at build time.
func (ix *Index) Model() string { return ix.model }

// Documents returns how many corpus documents were ingested.
func (ix *Index) Documents() int { return ix.documents }

// Chunks returns how many chunks the index holds.
func (ix *Index) Chunks() int { return ix.chunks }

// CorpusLoader yields (identifier, extracted text) documents from a
// corpus directory. The index does not care how text extraction from a
// specific file format works.
type CorpusLoader interface {
	LoadCorpus(dir string) ([]domain.Document, error)
}

// Builder turns a corpus directory into an Index.
type Builder struct {
	loader   CorpusLoader
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	log      *log.Logger
}

// NewBuilder wires the ingestion collaborators together.
func NewBuilder(loader CorpusLoader, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		log:      logger,
	}
}

// Build ingests the corpus directory: extract, chunk, one batched embed
// call, upsert. The returned Index is complete; any failure aborts the
// build with no partial result published. An empty corpus builds an empty
// index, which is valid.
func (b *Builder) Build(ctx context.Context, dir string) (*Index, error) {
	docs, err := b.loader.LoadCorpus(dir)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := b.chunker.Chunk(doc)
		if err != nil {
			return nil, fmt.Errorf("index: chunk document %s: %w", doc.Name, err)
		}
		chunks = append(chunks, cs...)
	}
	b.log.Info("corpus chunked", "documents", len(docs), "chunks", len(chunks))

	if len(chunks) == 0 {
		return &Index{store: b.store, model: b.embedder.Model(), documents: len(docs)}, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		// No partial index is usable without embeddings for all chunks.
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, domain.NewBackendError(domain.OpEmbed,
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	if err := b.store.Init(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("index: init store: %w", err)
	}
	if err := b.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("index: clear store: %w", err)
	}
	if err := b.store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("index: upsert: %w", err)
	}
	b.log.Info("index built", "chunks", len(chunks), "model", b.embedder.Model())
	return &Index{
		store:     b.store,
		model:     b.embedder.Model(),
		documents: len(docs),
		chunks:    len(chunks),
	}, nil
}

// Save persists the index to path when the backing store supports
// snapshots (the in-memory store does).
func (ix *Index) Save(path string) error {
	s, ok := ix.store.(*memory.Store)
	if !ok {
		return fmt.Errorf("index: store %T does not support snapshots", ix.store)
	}
	return s.Save(path, ix.model)
}

// Load restores a snapshot saved by Save. The embedding model identity
// recorded at build time comes back with it.
func Load(ctx context.Context, path string) (*Index, error) {
	store, model, err := memory.Load(path)
	if err != nil {
		return nil, err
	}
	n, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Index{store: store, model: model, documents: store.Documents(), chunks: n}, nil
}
