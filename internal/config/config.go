package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the document corpus and sets chunking parameters.
type CorpusConfig struct {
	Dir          string `yaml:"dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embedding backend.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig configures the OpenAI-compatible generation backend.
type GeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// EnrichConfig toggles the optional response enrichers.
type EnrichConfig struct {
	Sentiment        bool `yaml:"sentiment"`
	Topics           bool `yaml:"topics"`
	NumTopics        int  `yaml:"num_topics"`
	KeywordsPerTopic int  `yaml:"keywords_per_topic"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// KeepaliveConfig configures the optional self-ping task.
type KeepaliveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	IntervalSecs int    `yaml:"interval_secs"`
}

// SnapshotConfig controls optional index persistence between restarts.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      CorpusConfig      `yaml:"corpus"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Enrich      EnrichConfig      `yaml:"enrich"`
	Server      ServerConfig      `yaml:"server"`
	Keepalive   KeepaliveConfig   `yaml:"keepalive"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	LogLevel    string            `yaml:"log_level"`
}

// Timeout returns the configured embedder timeout as a duration.
func (c *OpenAIEmbedderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the configured generator timeout as a duration.
func (c *GeneratorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Interval returns the keepalive interval as a duration.
func (c *KeepaliveConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

// Load reads a config from the given path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as
// needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *AppConfig) error {
	if cfg.Corpus.ChunkOverlap < 0 {
		return errors.New("config: chunk_overlap cannot be negative")
	}
	if cfg.Corpus.ChunkOverlap >= cfg.Corpus.ChunkSize {
		return fmt.Errorf("config: chunk_overlap %d must be smaller than chunk_size %d",
			cfg.Corpus.ChunkOverlap, cfg.Corpus.ChunkSize)
	}
	switch cfg.Embedder.Type {
	case "openai", "tfidf":
	default:
		return fmt.Errorf("config: unknown embedder type %q", cfg.Embedder.Type)
	}
	switch cfg.VectorStore.Type {
	case "memory":
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return errors.New("config: qdrant store selected but qdrant section missing")
		}
	default:
		return fmt.Errorf("config: unknown vector store type %q", cfg.VectorStore.Type)
	}
	return nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "docs"
	}
	if cfg.Corpus.ChunkSize == 0 {
		cfg.Corpus.ChunkSize = 1000
	}
	if cfg.Corpus.ChunkOverlap == 0 {
		cfg.Corpus.ChunkOverlap = 200
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 64
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
	}
	g := &cfg.Generator
	if g.BaseURL == "" {
		g.BaseURL = "https://api.openai.com/v1"
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "OPENAI_API_KEY"
	}
	if g.Model == "" {
		g.Model = "gpt-4o-mini"
	}
	if g.Temperature == 0 {
		g.Temperature = 0.7
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = 3
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Enrich.NumTopics == 0 {
		cfg.Enrich.NumTopics = 3
	}
	if cfg.Enrich.KeywordsPerTopic == 0 {
		cfg.Enrich.KeywordsPerTopic = 5
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Keepalive.IntervalSecs == 0 {
		cfg.Keepalive.IntervalSecs = 840
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
