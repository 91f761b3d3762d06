package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"marketrag/internal/domain"
)

// snapshot is the on-disk form of the store. Chunk text, provenance and
// vectors travel together so a reload never separates a chunk from its
// embedding.
type snapshot struct {
	Model     string         `json:"model"`
	Dimension int            `json:"dimension"`
	Chunks    []domain.Chunk `json:"chunks"`
	Vectors   [][]float32    `json:"vectors"`
}

// Save writes the store contents plus the embedding model identity to
// path. The write goes through a temp file and rename so a crashed save
// never leaves a truncated snapshot behind.
func (s *Store) Save(path, model string) error {
	s.mu.RLock()
	snap := snapshot{
		Model:     model,
		Dimension: s.dimension,
		Chunks:    s.chunks,
		Vectors:   s.vectors,
	}
	data, err := json.Marshal(&snap)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("memory: encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("memory: ensure snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memory: write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot from path and returns the restored store together
// with the embedding model identity recorded at save time.
func Load(path string) (*Store, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("memory: read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, "", fmt.Errorf("memory: decode snapshot: %w", err)
	}
	if len(snap.Chunks) != len(snap.Vectors) {
		return nil, "", fmt.Errorf("memory: snapshot has %d chunks but %d vectors", len(snap.Chunks), len(snap.Vectors))
	}
	store := &Store{
		dimension: snap.Dimension,
		chunks:    snap.Chunks,
		vectors:   snap.Vectors,
	}
	return store, snap.Model, nil
}
