package enrich

import (
	"context"
	"regexp"
	"strings"

	"marketrag/internal/domain"
)

// Sentiment scores the answer and each source with a lexicon-based
// polarity in [-1, 1]: (positive - negative) / (positive + negative) over
// the matched opinion words, 0 when none match.
type Sentiment struct {
	tokenPattern *regexp.Regexp
	positive     map[string]struct{}
	negative     map[string]struct{}
}

func NewSentiment() *Sentiment {
	return &Sentiment{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		positive:     wordSet(positiveWords),
		negative:     wordSet(negativeWords),
	}
}

func (s *Sentiment) Name() string { return "sentiment" }

// Enrich sets the overall and per-source sentiment fields.
func (s *Sentiment) Enrich(_ context.Context, result *domain.AnswerResult) error {
	polarity := s.polarity(result.Answer)
	result.Sentiment = &polarity
	for i := range result.Sources {
		p := s.polarity(result.Sources[i].Text)
		result.Sources[i].Sentiment = &p
	}
	return nil
}

func (s *Sentiment) polarity(text string) float64 {
	tokens := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	pos, neg := 0, 0
	for _, tok := range tokens {
		if _, ok := s.positive[tok]; ok {
			pos++
		} else if _, ok := s.negative[tok]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

func wordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Opinion lexicon slanted toward market/financial reporting language.
var positiveWords = []string{
	"grew", "growth", "growing", "gain", "gains", "gained", "strong", "stronger",
	"strongest", "improve", "improved", "improving", "improvement", "increase",
	"increased", "increasing", "expansion", "expanded", "expanding", "record",
	"outperform", "outperformed", "positive", "profit", "profitable", "success",
	"successful", "upside", "surge", "surged", "robust", "healthy", "momentum",
	"opportunity", "opportunities", "leading", "exceeded", "beat", "favorable",
	"resilient", "accelerate", "accelerated", "accelerating", "good", "great",
	"best", "win", "winning", "rebound", "recovery", "recovered",
}

var negativeWords = []string{
	"decline", "declined", "declining", "loss", "losses", "lost", "weak",
	"weaker", "weakest", "drop", "dropped", "dropping", "fell", "fall",
	"falling", "decrease", "decreased", "decreasing", "contraction",
	"contracted", "churn", "risk", "risks", "risky", "negative", "concern",
	"concerns", "concerning", "pressure", "pressured", "headwind", "headwinds",
	"slowdown", "slowed", "slowing", "miss", "missed", "unfavorable",
	"deteriorate", "deteriorated", "deteriorating", "bad", "worst", "worse",
	"shortfall", "downturn", "disruption", "disruptions", "compressed",
}
