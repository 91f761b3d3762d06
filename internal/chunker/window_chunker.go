package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"marketrag/internal/domain"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultOverlap is the number of runes shared by consecutive chunks.
	DefaultOverlap = 200
)

// WindowChunker splits text into fixed-size chunks with overlap, walking
// the document in steps of chunkSize-overlap. Information spanning a naive
// cut point lands inside the shared overlap of the adjacent chunks.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindowChunker validates the chunking parameters. Overlap must be
// strictly smaller than the chunk size, otherwise the walk never advances.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunker: overlap cannot be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits one document deterministically. Every chunk holds at most
// chunkSize runes, consecutive chunks from the same document share exactly
// overlap runes, and the final chunk may be shorter.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Text) == "" {
		return nil, nil
	}
	runes := []rune(document.Text)
	step := c.chunkSize - c.overlap
	var chunks []domain.Chunk
	idx := 0
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			DocumentID: document.ID,
			Document:   document.Name,
			Text:       string(runes[start:end]),
			Index:      idx,
		})
		if end == len(runes) {
			break
		}
		idx++
	}
	return chunks, nil
}
