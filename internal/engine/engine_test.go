package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketrag/internal/chunker"
	"marketrag/internal/domain"
	"marketrag/internal/embedding"
	"marketrag/internal/index"
	"marketrag/internal/vectorstore/memory"
)

type staticLoader struct{ docs []domain.Document }

func (l staticLoader) LoadCorpus(string) ([]domain.Document, error) { return l.docs, nil }

// echoGenerator returns the prompt it was given, so tests can inspect the
// assembled context.
type echoGenerator struct{}

func (echoGenerator) Model() string { return "echo" }
func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

type failingGenerator struct{}

func (failingGenerator) Model() string { return "failing" }
func (failingGenerator) Generate(context.Context, string) (string, error) {
	return "", domain.NewBackendError(domain.OpGenerate, errors.New("model unavailable"))
}

func buildEngine(t *testing.T, docs []domain.Document, gen domain.Generator) (*Engine, domain.Embedder) {
	t.Helper()
	c, err := chunker.NewWindowChunker(200, 40)
	require.NoError(t, err)
	emb := embedding.NewTFIDFEmbedder()
	b := index.NewBuilder(staticLoader{docs: docs}, c, emb, memory.NewStore(), nil)
	ix, err := b.Build(context.Background(), "unused")
	require.NoError(t, err)
	return New(ix, emb, gen, DefaultTopK, nil), emb
}

func corpus() []domain.Document {
	return []domain.Document{
		{ID: "d1", Name: "q3-report.pdf", Text: "Revenue grew 12% in Q3 driven by APAC expansion."},
		{ID: "d2", Name: "q4-report.pdf", Text: "Churn increased in Q4 among enterprise accounts in EMEA."},
		{ID: "d3", Name: "costs.pdf", Text: "Logistics costs rose due to freight rates and warehouse capacity."},
	}
}

func TestRetrieve_EmptyQueryRejected(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	_, err := e.Retrieve(context.Background(), "   ", 3, domain.Filters{})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	_, err = e.Answer(context.Background(), "", domain.Filters{})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestRetrieve_RanksRelevantChunkFirst(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	res, err := e.Retrieve(context.Background(), "What drove revenue growth?", 3, domain.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "q3-report.pdf", res[0].Chunk.Document)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
	for _, r := range res {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestRetrieve_TruncationMonotonicity(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	ctx := context.Background()
	top5, err := e.Retrieve(ctx, "what happened with costs", 5, domain.Filters{})
	require.NoError(t, err)
	top2, err := e.Retrieve(ctx, "what happened with costs", 2, domain.Filters{})
	require.NoError(t, err)
	require.Len(t, top2, 2)
	assert.Equal(t, top5[:2], top2)
}

func TestRetrieve_KBoundRespected(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	res, err := e.Retrieve(context.Background(), "revenue", 100, domain.Filters{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res), 3)
}

func TestAnswer_GroundsPromptInRetrievedContext(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	res, err := e.Answer(context.Background(), "What drove revenue growth?", domain.Filters{})
	require.NoError(t, err)
	// The echo generator returns the prompt: it must contain the top chunk
	// and the question, and the grounded answer keywords.
	assert.Contains(t, res.Answer, "12%")
	assert.Contains(t, res.Answer, "APAC")
	assert.Contains(t, res.Answer, "What drove revenue growth?")
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "q3-report.pdf", res.Sources[0].Document)
	assert.Equal(t, res.Sources[0].Confidence, res.Confidence)
}

func TestAnswer_EmptyIndexStillGenerates(t *testing.T) {
	e, _ := buildEngine(t, nil, echoGenerator{})
	res, err := e.Answer(context.Background(), "anything at all?", domain.Filters{})
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
	assert.Zero(t, res.Confidence)
	// The generator still runs, with empty context.
	assert.Contains(t, res.Answer, "anything at all?")
}

func TestAnswer_FiltersRestrictSources(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	res, err := e.Answer(context.Background(), "what increased?",
		domain.Filters{Documents: []string{"q4-report.pdf"}})
	require.NoError(t, err)
	require.NotEmpty(t, res.Sources)
	for _, s := range res.Sources {
		assert.Equal(t, "q4-report.pdf", s.Document)
	}
}

func TestAnswer_GenerationFailurePropagates(t *testing.T) {
	e, _ := buildEngine(t, corpus(), failingGenerator{})
	_, err := e.Answer(context.Background(), "What drove revenue growth?", domain.Filters{})
	require.Error(t, err)
	be, ok := domain.AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, domain.OpGenerate, be.Op)
}

func TestAnswer_ConcurrentCallsDoNotCrossTalk(t *testing.T) {
	e, _ := buildEngine(t, corpus(), echoGenerator{})
	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]*domain.AnswerResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("question number %d about revenue", i)
			results[i], errs[i] = e.Answer(context.Background(), q, domain.Filters{})
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		// Each echoed prompt must contain its own question and no other.
		assert.Contains(t, results[i].Answer, fmt.Sprintf("question number %d", i))
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			assert.NotContains(t, results[i].Answer, fmt.Sprintf("question number %d about", j))
		}
	}
}

func TestSwap_ServesNewIndex(t *testing.T) {
	e, emb := buildEngine(t, corpus(), echoGenerator{})
	before := e.Index()

	c, err := chunker.NewWindowChunker(200, 40)
	require.NoError(t, err)
	b := index.NewBuilder(staticLoader{docs: []domain.Document{
		{ID: "d9", Name: "fresh.pdf", Text: "A brand new report about battery supply chains."},
	}}, c, emb, memory.NewStore(), nil)
	after, err := b.Build(context.Background(), "unused")
	require.NoError(t, err)

	e.Swap(after)
	assert.NotSame(t, before, e.Index())
	assert.Equal(t, 1, e.Index().Documents())
}

func TestBuildPrompt_InterpolatesBothFields(t *testing.T) {
	p := buildPrompt("the context body", "the question?")
	assert.Contains(t, p, "the context body")
	assert.Contains(t, p, "the question?")
	assert.False(t, strings.Contains(p, "{context}"))
	assert.False(t, strings.Contains(p, "{question}"))
}
