package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketrag/internal/domain"
)

func TestLoadCorpus_MissingDirectory(t *testing.T) {
	l := NewLoader(nil)
	_, err := l.LoadCorpus(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorpusUnreadable))
}

func TestLoadCorpus_EmptyDirectory(t *testing.T) {
	l := NewLoader(nil)
	docs, err := l.LoadCorpus(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadCorpus_ReadsTextDocumentsInStableOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-report.txt"), []byte("second report"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-report.md"), []byte("first report"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.bin"), []byte{0x01}, 0o644))

	l := NewLoader(nil)
	docs, err := l.LoadCorpus(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a-report.md", docs[0].Name)
	assert.Equal(t, "first report", docs[0].Text)
	assert.Equal(t, "b-report.txt", docs[1].Name)
	assert.NotEmpty(t, docs[0].ID)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestLoadCorpus_SkipsCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("still loads"), 0o644))

	l := NewLoader(nil)
	docs, err := l.LoadCorpus(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok.txt", docs[0].Name)
}
