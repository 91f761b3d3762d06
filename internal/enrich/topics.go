package enrich

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"marketrag/internal/domain"
)

// Topics extracts keyword groups from the retrieved source texts by
// ranking tokens on stopword-filtered frequency, then slicing the ranked
// list into numTopics groups. Weight is the group's share of the total
// matched-token mass, so weights across topics are comparable.
type Topics struct {
	numTopics       int
	keywordsPerTop  int
	tokenPattern    *regexp.Regexp
	stopwords       map[string]struct{}
	minTokenLetters int
}

func NewTopics(numTopics, keywordsPerTopic int) *Topics {
	if numTopics <= 0 {
		numTopics = 3
	}
	if keywordsPerTopic <= 0 {
		keywordsPerTopic = 5
	}
	return &Topics{
		numTopics:       numTopics,
		keywordsPerTop:  keywordsPerTopic,
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:       topicStopwords(),
		minTokenLetters: 3,
	}
}

func (t *Topics) Name() string { return "topics" }

// Enrich sets result.Topics from the source texts. No sources means no
// topics, not an error.
func (t *Topics) Enrich(_ context.Context, result *domain.AnswerResult) error {
	if len(result.Sources) == 0 {
		return nil
	}
	freq := make(map[string]float64)
	for _, src := range result.Sources {
		for _, tok := range t.tokenize(src.Text) {
			freq[tok]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	type ranked struct {
		term  string
		count float64
	}
	terms := make([]ranked, 0, len(freq))
	total := 0.0
	for term, count := range freq {
		terms = append(terms, ranked{term, count})
		total += count
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count == terms[j].count {
			return terms[i].term < terms[j].term
		}
		return terms[i].count > terms[j].count
	})

	groups := t.numTopics
	if needed := groups * t.keywordsPerTop; len(terms) < needed {
		groups = int(math.Ceil(float64(len(terms)) / float64(t.keywordsPerTop)))
	}
	topics := make([]domain.Topic, 0, groups)
	for g := 0; g < groups; g++ {
		start := g * t.keywordsPerTop
		end := start + t.keywordsPerTop
		if start >= len(terms) {
			break
		}
		if end > len(terms) {
			end = len(terms)
		}
		keywords := make([]string, 0, end-start)
		weight := 0.0
		for _, r := range terms[start:end] {
			keywords = append(keywords, r.term)
			weight += r.count
		}
		topics = append(topics, domain.Topic{
			Name:     "Topic " + strconv.Itoa(g+1),
			Keywords: keywords,
			Weight:   weight / total,
		})
	}
	result.Topics = topics
	return nil
}

func (t *Topics) tokenize(text string) []string {
	raw := t.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if len([]rune(tok)) < t.minTokenLetters {
			continue
		}
		if _, isStop := t.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func topicStopwords() map[string]struct{} {
	words := []string{
		"the", "and", "for", "are", "was", "were", "been", "being", "this",
		"that", "these", "those", "from", "with", "over", "under", "than",
		"such", "into", "about", "between", "through", "during", "before",
		"after", "above", "below", "out", "off", "own", "same", "too", "very",
		"can", "will", "just", "should", "now", "has", "have", "had", "but",
		"not", "all", "its", "their", "our", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
