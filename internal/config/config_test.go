package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Corpus.ChunkSize)
	assert.Equal(t, 200, cfg.Corpus.ChunkOverlap)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.Model)
	assert.InDelta(t, 0.7, cfg.Generator.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Keepalive.Enabled)
	assert.Equal(t, 840, cfg.Keepalive.IntervalSecs)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus:\n  dir: reports\nretrieval:\n  top_k: 5\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.Corpus.Dir)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1000, cfg.Corpus.ChunkSize)
}

func TestLoad_RejectsDegenerateChunking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus:\n  chunk_size: 100\n  chunk_overlap: 100\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_store:\n  type: faiss\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_QdrantRequiresSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_store:\n  type: qdrant\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	cfg.Corpus.Dir = "my-reports"
	cfg.Keepalive.Enabled = true
	require.NoError(t, Save(path, cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-reports", reloaded.Corpus.Dir)
	assert.True(t, reloaded.Keepalive.Enabled)
}
