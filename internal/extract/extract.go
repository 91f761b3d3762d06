package extract

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"

	"marketrag/internal/domain"
)

// Loader extracts plain text from the files of a corpus directory. PDF
// reports are the primary format; .txt and .md files are read as-is.
type Loader struct {
	log *log.Logger
}

func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{log: logger}
}

// LoadCorpus reads every supported document under dir, in stable name
// order. A document that cannot be parsed is skipped with a warning; an
// unreadable directory fails with ErrCorpusUnreadable. Zero eligible
// documents is a valid, empty corpus.
func (l *Loader) LoadCorpus(dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorpusUnreadable, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var docs []domain.Document
	for _, name := range names {
		path := filepath.Join(dir, name)
		text, err := extractFile(path)
		if err != nil {
			if _, ok := err.(*domain.ParseError); ok {
				l.log.Warn("skipping unparseable document", "path", path, "error", err)
				continue
			}
			// Unsupported extension.
			continue
		}
		docs = append(docs, domain.Document{
			ID:   hashString(path),
			Path: path,
			Name: name,
			Text: text,
		})
	}
	l.log.Info("corpus loaded", "dir", dir, "documents", len(docs))
	return docs, nil
}

var errUnsupported = fmt.Errorf("unsupported file type")

func extractFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &domain.ParseError{Path: path, Err: err}
		}
		return string(data), nil
	default:
		return "", errUnsupported
	}
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &domain.ParseError{Path: path, Err: err}
	}
	defer f.Close()
	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", &domain.ParseError{Path: path, Err: err}
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", &domain.ParseError{Path: path, Err: err}
	}
	return buf.String(), nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
