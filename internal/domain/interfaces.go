package domain

import "context"

// Document is a single source file loaded from the corpus directory.
// Immutable once ingested; re-running ingestion with a changed corpus is
// the only way to add or remove documents.
type Document struct {
	ID   string
	Path string
	Name string
	Text string
}

// Chunk is a bounded contiguous span of one document, the atomic unit of
// retrieval.
type Chunk struct {
	ChunkID    string
	DocumentID string
	Document   string
	Text       string
	Index      int
}

// RetrievedChunk is a chunk annotated with a confidence score relative to
// one query. Confidence is cosine similarity clamped to [0, 1].
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}

// Filters narrows the candidate chunk set before nearest-neighbor search.
type Filters struct {
	Documents []string
}

// Empty reports whether no filter criteria are set.
func (f Filters) Empty() bool { return len(f.Documents) == 0 }

// AllowsDocument reports whether a chunk from the named document passes
// the filter.
func (f Filters) AllowsDocument(name string) bool {
	if len(f.Documents) == 0 {
		return true
	}
	for _, d := range f.Documents {
		if d == name {
			return true
		}
	}
	return false
}

// Source is the projection of a retrieved chunk returned to callers.
type Source struct {
	Text       string   `json:"text"`
	Document   string   `json:"document"`
	Confidence float64  `json:"confidence"`
	Sentiment  *float64 `json:"sentiment,omitempty"`
}

// Topic is an optional enrichment extracted from the retrieved sources.
type Topic struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Weight   float64  `json:"weight"`
}

// AnswerResult bundles a generated answer with its supporting sources.
type AnswerResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Topics     []Topic  `json:"topics,omitempty"`
	Sentiment  *float64 `json:"sentiment,omitempty"`
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts text into fixed-dimension numeric vectors. Embed is
// batched: one call per corpus (or per query) rather than one per chunk.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a single-turn completion for an assembled prompt.
type Generator interface {
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists (chunk, vector) pairs and supports similarity
// search. Filters apply before the k-selection so excluded chunks never
// take up result slots.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int, filters Filters) ([]RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Engine defines the query operations exposed by the application core.
type Engine interface {
	Retrieve(ctx context.Context, query string, k int, filters Filters) ([]RetrievedChunk, error)
	Answer(ctx context.Context, query string, filters Filters) (*AnswerResult, error)
}
