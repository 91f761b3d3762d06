package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sethvargo/go-retry"

	"marketrag/internal/domain"
)

// OpenAIClient is an OpenAI-compatible chat completions client used as the
// single-turn generation backend. One Generate call issues one blocking
// completion request; there is no conversation memory.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  uint64
	client      *http.Client
}

// OpenAIConfig configures the generation client.
type OpenAIConfig struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// NewOpenAIClient creates a generation client using the provided
// configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("generation: missing API key in env %s", keyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		// Generative backends may have cold-start latency.
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &OpenAIClient{
		baseURL:     cfg.BaseURL,
		apiKey:      key,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  uint64(cfg.MaxRetries),
		client:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the generation model identity.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends the assembled prompt and returns the completion text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", domain.NewBackendError(domain.OpGenerate, err)
	}
	var answer string
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
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
			return retry.RetryableError(fmt.Errorf("completion request failed: %s", resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("completion request failed: %s", resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		var decoded struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return err
		}
		if len(decoded.Choices) == 0 {
			return errors.New("completion response has no choices")
		}
		answer = decoded.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", domain.NewBackendError(domain.OpGenerate, err)
	}
	return answer, nil
}
