package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketrag/internal/chunker"
	"marketrag/internal/domain"
	"marketrag/internal/embedding"
	"marketrag/internal/vectorstore/memory"
)

type staticLoader struct {
	docs []domain.Document
	err  error
}

func (l staticLoader) LoadCorpus(string) ([]domain.Document, error) { return l.docs, l.err }

type failingEmbedder struct{}

func (failingEmbedder) Model() string { return "failing" }
func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, domain.NewBackendError(domain.OpEmbed, errors.New("backend down"))
}

func newChunker(t *testing.T) domain.Chunker {
	t.Helper()
	c, err := chunker.NewWindowChunker(40, 10)
	require.NoError(t, err)
	return c
}

func TestBuild_IndexesCorpus(t *testing.T) {
	docs := []domain.Document{
		{ID: "d1", Name: "q3.pdf", Text: "Revenue grew 12% in Q3 driven by APAC expansion."},
		{ID: "d2", Name: "q4.pdf", Text: "Margins compressed in Q4 due to logistics costs across all regions."},
	}
	b := NewBuilder(staticLoader{docs: docs}, newChunker(t), embedding.NewTFIDFEmbedder(), memory.NewStore(), nil)
	ix, err := b.Build(context.Background(), "unused")
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Documents())
	assert.Greater(t, ix.Chunks(), 1)
	assert.Equal(t, "tfidf", ix.Model())

	n, err := ix.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ix.Chunks(), n)
}

func TestBuild_EmptyCorpusYieldsEmptyIndex(t *testing.T) {
	b := NewBuilder(staticLoader{}, newChunker(t), embedding.NewTFIDFEmbedder(), memory.NewStore(), nil)
	ix, err := b.Build(context.Background(), "unused")
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Documents())
	assert.Equal(t, 0, ix.Chunks())
}

func TestBuild_CorpusUnreadableFailsBuild(t *testing.T) {
	b := NewBuilder(staticLoader{err: domain.ErrCorpusUnreadable},
		newChunker(t), embedding.NewTFIDFEmbedder(), memory.NewStore(), nil)
	_, err := b.Build(context.Background(), "unused")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorpusUnreadable))
}

func TestBuild_EmbeddingFailureIsFatal(t *testing.T) {
	docs := []domain.Document{{ID: "d1", Name: "a.pdf", Text: "some text to embed"}}
	store := memory.NewStore()
	b := NewBuilder(staticLoader{docs: docs}, newChunker(t), failingEmbedder{}, store, nil)
	_, err := b.Build(context.Background(), "unused")
	require.Error(t, err)
	be, ok := domain.AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, domain.OpEmbed, be.Op)
}

func TestBuild_SourceFidelity(t *testing.T) {
	docs := []domain.Document{
		{ID: "d1", Name: "alpha.pdf", Text: "alpha body text about revenue and growth in asia"},
		{ID: "d2", Name: "beta.pdf", Text: "beta body text about churn and costs in europe"},
	}
	b := NewBuilder(staticLoader{docs: docs}, newChunker(t), embedding.NewTFIDFEmbedder(), memory.NewStore(), nil)
	ix, err := b.Build(context.Background(), "unused")
	require.NoError(t, err)

	// Every chunk returned under an alpha.pdf filter must carry alpha.pdf
	// provenance, regardless of the query vector.
	res, err := ix.Store().Search(context.Background(), make([]float32, 8), 10,
		domain.Filters{Documents: []string{"alpha.pdf"}})
	require.NoError(t, err)
	for _, r := range res {
		assert.Equal(t, "alpha.pdf", r.Chunk.Document)
		assert.Equal(t, "d1", r.Chunk.DocumentID)
	}
}

func TestSnapshot_SaveAndLoad(t *testing.T) {
	docs := []domain.Document{{ID: "d1", Name: "a.pdf", Text: "revenue grew strongly in the apac region"}}
	b := NewBuilder(staticLoader{docs: docs}, newChunker(t), embedding.NewTFIDFEmbedder(), memory.NewStore(), nil)
	ix, err := b.Build(context.Background(), "unused")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, ix.Save(path))

	loaded, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ix.Model(), loaded.Model())
	assert.Equal(t, ix.Chunks(), loaded.Chunks())
}
