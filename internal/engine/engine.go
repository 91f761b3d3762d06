package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"marketrag/internal/domain"
	"marketrag/internal/index"
)

// DefaultTopK is the number of supporting chunks retrieved per question.
const DefaultTopK = 3

// Engine answers questions against a built index. It is stateless across
// calls except for its reference to the current index, which it holds
// behind an atomic pointer: Swap publishes a fresh index while in-flight
// queries finish against the old one.
type Engine struct {
	embedder  domain.Embedder
	generator domain.Generator
	topK      int
	log       *log.Logger
	idx       atomic.Pointer[index.Index]
}

// New constructs an engine over an already built index.
func New(ix *index.Index, embedder domain.Embedder, generator domain.Generator, topK int, logger *log.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		log:       logger,
	}
	e.idx.Store(ix)
	if ix.Model() != "" && ix.Model() != embedder.Model() {
		logger.Warn("index was built with a different embedding model; retrieval quality will degrade",
			"index_model", ix.Model(), "query_model", embedder.Model())
	}
	return e
}

// Index returns the index currently serving queries.
func (e *Engine) Index() *index.Index { return e.idx.Load() }

// Swap atomically replaces the serving index. Copy-and-swap rebuild
// discipline: callers build the new index fully off to the side first.
func (e *Engine) Swap(ix *index.Index) {
	e.idx.Store(ix)
	e.log.Info("index swapped", "documents", ix.Documents(), "chunks", ix.Chunks())
}

// Retrieve embeds the question and returns the k nearest chunks, most
// relevant first, each scored with cosine similarity clamped to [0, 1].
// Fewer than k results come back when the index holds fewer chunks.
func (e *Engine) Retrieve(ctx context.Context, query string, k int, filters domain.Filters) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = e.topK
	}
	ix := e.idx.Load()
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, domain.NewBackendError(domain.OpEmbed, errMissingQueryVector)
	}
	results, err := ix.Store().Search(ctx, vectors[0], k, filters)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Score = clamp01(results[i].Score)
	}
	return results, nil
}

// Answer retrieves the top-k chunks for the question, assembles the
// grounded prompt and runs one blocking generation call. Zero retrieved
// chunks still reach the generator with empty context so it can state that
// no information is available; the response shape stays consistent.
func (e *Engine) Answer(ctx context.Context, query string, filters domain.Filters) (*domain.AnswerResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	retrieved, err := e.Retrieve(ctx, query, e.topK, filters)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(retrieved))
	sources := make([]domain.Source, len(retrieved))
	confidence := 0.0
	for i, r := range retrieved {
		contexts[i] = r.Chunk.Text
		sources[i] = domain.Source{
			Text:       r.Chunk.Text,
			Document:   r.Chunk.Document,
			Confidence: r.Score,
		}
		if r.Score > confidence {
			confidence = r.Score
		}
	}

	prompt := buildPrompt(strings.Join(contexts, "\n\n"), query)
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	e.log.Debug("question answered", "sources", len(sources), "confidence", confidence)
	return &domain.AnswerResult{
		Answer:     answer,
		Sources:    sources,
		Confidence: confidence,
	}, nil
}

var errMissingQueryVector = errors.New("embedding backend returned no query vector")

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
