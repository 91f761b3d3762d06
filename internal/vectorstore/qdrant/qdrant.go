package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"marketrag/internal/domain"
)

// Store is a Qdrant-backed vector store using the official gRPC client.
// The collection uses cosine distance; chunk text and provenance travel in
// the point payload so search results need no second lookup.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
}

// NewStore connects to Qdrant. The collection is created on Init if it
// does not exist yet.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection name is required")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// Init ensures the collection exists with the given vector dimension.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("qdrant: invalid dimension")
	}
	s.dimension = dimension
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: check collection: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}
	return nil
}

// Upsert writes (chunk, vector) pairs as points.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("qdrant: chunks and vectors length mismatch")
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(ch.ChunkID)).String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    ch.ChunkID,
				"document_id": ch.DocumentID,
				"document":    ch.Document,
				"text":        ch.Text,
				"index":       int64(ch.Index),
			}),
		}
	}
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	return nil
}

// Search runs similarity search. Document filters become payload match
// conditions so excluded chunks never take up result slots.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filters domain.Filters) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 3
	}
	limit := uint64(topK)
	var filter *qdrant.Filter
	if len(filters.Documents) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filters.Documents))
		for _, doc := range filters.Documents {
			conditions = append(conditions, qdrant.NewMatch("document", doc))
		}
		filter = &qdrant.Filter{Should: conditions}
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, domain.NewBackendError(domain.OpSearch, err)
	}
	results := make([]domain.RetrievedChunk, 0, len(points))
	for _, p := range points {
		results = append(results, domain.RetrievedChunk{
			Chunk: chunkFromPayload(p.Payload),
			Score: float64(p.Score),
		})
	}
	return results, nil
}

// Count returns the number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.collection})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(n), nil
}

// Clear drops the collection so a rebuild starts from scratch.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("qdrant: delete collection: %w", err)
	}
	if s.dimension > 0 {
		return s.Init(ctx, s.dimension)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func chunkFromPayload(payload map[string]*qdrant.Value) domain.Chunk {
	ch := domain.Chunk{}
	if v, ok := payload["chunk_id"]; ok {
		ch.ChunkID = v.GetStringValue()
	}
	if v, ok := payload["document_id"]; ok {
		ch.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["document"]; ok {
		ch.Document = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		ch.Text = v.GetStringValue()
	}
	if v, ok := payload["index"]; ok {
		ch.Index = int(v.GetIntegerValue())
	}
	return ch
}
