package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketrag/internal/domain"
)

func doc(text string) domain.Document {
	return domain.Document{ID: "d1", Name: "report.pdf", Text: text}
}

func TestNewWindowChunker_RejectsBadParameters(t *testing.T) {
	_, err := NewWindowChunker(0, 0)
	assert.Error(t, err)
	_, err = NewWindowChunker(100, -1)
	assert.Error(t, err)
	_, err = NewWindowChunker(100, 100)
	assert.Error(t, err)
	_, err = NewWindowChunker(100, 150)
	assert.Error(t, err)
	_, err = NewWindowChunker(100, 99)
	assert.NoError(t, err)
}

func TestChunk_EmptyDocument(t *testing.T) {
	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)
	chunks, err := c.Chunk(doc("   \n\t"))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_SingleChunkWhenTextFits(t *testing.T) {
	c, err := NewWindowChunker(100, 20)
	require.NoError(t, err)
	text := "Revenue grew 12% in Q3 driven by APAC expansion."
	chunks, err := c.Chunk(doc(text))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, "d1", chunks[0].DocumentID)
	assert.Equal(t, "report.pdf", chunks[0].Document)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "d1:0", chunks[0].ChunkID)
}

func TestChunk_BoundariesAndOverlap(t *testing.T) {
	size, overlap := 10, 3
	c, err := NewWindowChunker(size, overlap)
	require.NoError(t, err)
	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	chunks, err := c.Chunk(doc(text))
	require.NoError(t, err)
	require.True(t, len(chunks) > 1)

	step := size - overlap
	for i, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), size)
		assert.Equal(t, i, ch.Index)
		if i > 0 {
			prev := []rune(chunks[i-1].Text)
			cur := []rune(ch.Text)
			shared := overlap
			if len(cur) < overlap {
				shared = len(cur)
			}
			assert.Equal(t, string(prev[len(prev)-shared:][:shared]), string(cur[:shared]),
				"consecutive chunks must share the overlap")
		}
	}
	// Overlap-deduplicated concatenation reconstructs the original text.
	var rebuilt strings.Builder
	for i, ch := range chunks {
		r := []rune(ch.Text)
		if i == 0 {
			rebuilt.WriteString(ch.Text)
			continue
		}
		if len(r) > overlap {
			rebuilt.WriteString(string(r[overlap:]))
		}
	}
	assert.Equal(t, text, rebuilt.String())
	// Every boundary advances by exactly the step.
	for i := 1; i < len(chunks); i++ {
		r := []rune(chunks[i].Text)
		n := step
		if len(r) < n {
			n = len(r)
		}
		assert.Equal(t, step*i, strings.Index(text, string(r[:n])))
	}
}

func TestChunk_RuneSafety(t *testing.T) {
	c, err := NewWindowChunker(4, 1)
	require.NoError(t, err)
	text := "日本語のテキストを分割する"
	chunks, err := c.Chunk(doc(text))
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 4)
	}
	var rebuilt strings.Builder
	for i, ch := range chunks {
		r := []rune(ch.Text)
		if i == 0 {
			rebuilt.WriteString(ch.Text)
		} else if len(r) > 1 {
			rebuilt.WriteString(string(r[1:]))
		}
	}
	assert.Equal(t, text, rebuilt.String())
}
