package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"marketrag/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine similarity.
// Vectors are L2-normalized on upsert so similarity reduces to a dot
// product. Ties are broken by insertion order, which keeps retrieval
// rankings stable under truncation.
type Store struct {
	mu        sync.RWMutex
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float32
}

func NewStore() *Store { return &Store{} }

// Init resets the store for the given vector dimension.
func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("memory: invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.chunks = nil
	s.vectors = nil
	return nil
}

// Upsert appends (chunk, vector) pairs. Vector dimensions must match the
// dimension the store was initialized with.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("memory: chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("memory: vector dimension %d does not match store dimension %d", len(v), s.dimension)
		}
	}
	for i := range vectors {
		s.chunks = append(s.chunks, chunks[i])
		s.vectors = append(s.vectors, normalize(vectors[i]))
	}
	return nil
}

// Search returns the topK chunks closest to the query vector, filtered by
// document before the k-selection. Results come back in non-increasing
// score order; fewer than topK when the store holds fewer chunks.
func (s *Store) Search(_ context.Context, vector []float32, topK int, filters domain.Filters) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 3
	}
	query := normalize(vector)
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, len(s.chunks))
	for i := range s.chunks {
		if !filters.AllowsDocument(s.chunks[i].Document) {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: dot(s.vectors[i], query)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]domain.RetrievedChunk, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, domain.RetrievedChunk{Chunk: s.chunks[c.idx], Score: c.score})
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Documents returns the number of distinct documents whose chunks are
// stored.
func (s *Store) Documents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, ch := range s.chunks {
		seen[ch.DocumentID] = struct{}{}
	}
	return len(seen)
}

// Clear drops all stored chunks and vectors.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.vectors = nil
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return append([]float32(nil), v...)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
