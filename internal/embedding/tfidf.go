package embedding

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// TFIDFEmbedder is a local TF-IDF vectorizer implementing the Embedder
// port. It needs no network backend, which makes it useful for offline
// corpora and deterministic tests. The vocabulary is fitted on the first
// Embed call (the indexer embeds the whole corpus in one batch), so query
// vectors share the vocabulary of the indexed chunks.
type TFIDFEmbedder struct {
	mu           sync.RWMutex
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewTFIDFEmbedder() *TFIDFEmbedder {
	return &TFIDFEmbedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Model identifies this embedder. A TF-IDF index can only be queried with
// the embedder instance that produced it.
func (e *TFIDFEmbedder) Model() string { return "tfidf" }

// Embed vectorizes a batch of texts. The first call fits the vocabulary
// and IDF weights on its inputs; later calls reuse them.
func (e *TFIDFEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.mu.Lock()
	if !e.prepared {
		if err := e.fitLocked(texts); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}
	e.mu.Unlock()

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vectorizeLocked(text)
	}
	return out, nil
}

func (e *TFIDFEmbedder) fitLocked(corpus []string) error {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("embedding: no tokens found in corpus")
	}
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		// Smoothed IDF
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.dimension = len(terms)
	e.prepared = true
	return nil
}

func (e *TFIDFEmbedder) vectorizeLocked(text string) []float32 {
	vec := make([]float32, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	norm := 0.0
	raw := make(map[int]float64, len(tf))
	for idx, count := range tf {
		v := float64(count) / float64(total) * e.idf[idx]
		raw[idx] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for idx, v := range raw {
		vec[idx] = float32(v / norm)
	}
	return vec
}

func (e *TFIDFEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
