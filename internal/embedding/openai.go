package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sethvargo/go-retry"

	"marketrag/internal/domain"
)

// OpenAIClient is an OpenAI-compatible embeddings client. One request
// embeds a whole batch of texts; large corpora are split into batches of
// batchSize inputs per request.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries uint64
	client     *http.Client
}

// OpenAIConfig configures the embeddings client.
type OpenAIConfig struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	MaxRetries int
}

// NewOpenAIClient creates an embeddings client using the provided
// configuration. The API key is read from the configured environment
// variable.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("embedding: missing API key in env %s", keyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &OpenAIClient{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: uint64(cfg.MaxRetries),
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the embedding model identity. The index records it so a
// mismatched query-time model can be detected.
func (c *OpenAIClient) Model() string { return c.model }

// Embed returns one vector per input text, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, domain.NewBackendError(domain.OpEmbed, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}
	var vectors [][]float32
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("embeddings request failed: %s", resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("embeddings request failed: %s", resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		var decoded struct {
			Data []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return err
		}
		if len(decoded.Data) != len(texts) {
			return fmt.Errorf("embeddings response has %d vectors for %d inputs", len(decoded.Data), len(texts))
		}
		vectors = make([][]float32, len(texts))
		for _, d := range decoded.Data {
			if d.Index < 0 || d.Index >= len(texts) {
				return fmt.Errorf("embeddings response index %d out of range", d.Index)
			}
			vectors[d.Index] = d.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
