package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"document-search/internal/models"
)

type Config struct {
	Server   ServerConfig `yaml:"server"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	RAG      RAGConfig    `yaml:"rag"`
	Log      LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowed_origin"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
}

// LLMConfig selects the embedding provider.
// Provider is one of "openai", "openrouter", "ollama", "openai-compat".
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	Key         string `yaml:"key"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type RAGConfig struct {
	EmbeddingDim       int    `yaml:"embedding_dim"`
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap"`
	TopK               int    `yaml:"top_k"`
	EmbedConcurrency   int    `yaml:"embed_concurrency"`
	UploadDir          string `yaml:"upload_dir"`
	ExtractTimeoutSecs int    `yaml:"extract_timeout_secs"` // per upload
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

const (
	defaultAddr             = ":5001"
	defaultAllowedOrigin    = "http://localhost:3000"
	defaultMaxUploadMB      = 32
	defaultProvider         = "openai"
	defaultModel            = "text-embedding-3-small"
	defaultTimeoutSecs      = 30
	defaultEmbedConcurrency = 8
	defaultUploadDir        = "./uploads"
	defaultExtractTimeout   = 60
	defaultLogLevel         = "info"
)

// env vars consulted when embed_llm.key is empty, in order
var apiKeyEnvs = []string{"EMBED_API_KEY", "OPENAI_API_KEY"}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	cfg := &Config{
		Log: LogConfig{Console: true},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = defaultAllowedOrigin
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = defaultMaxUploadMB
	}

	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = defaultProvider
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = defaultModel
	}
	if cfg.EmbedLLM.TimeoutSecs == 0 {
		cfg.EmbedLLM.TimeoutSecs = defaultTimeoutSecs
	}
	if cfg.EmbedLLM.Key == "" {
		for _, env := range apiKeyEnvs {
			if v := os.Getenv(env); v != "" {
				cfg.EmbedLLM.Key = v
				break
			}
		}
	}

	if cfg.RAG.EmbeddingDim == 0 {
		cfg.RAG.EmbeddingDim = models.DefaultEmbeddingDim
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = models.DefaultChunkSize
		if cfg.RAG.ChunkOverlap == 0 {
			cfg.RAG.ChunkOverlap = models.DefaultChunkOverlap
		}
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = models.DefaultTopK
	}
	if cfg.RAG.EmbedConcurrency == 0 {
		cfg.RAG.EmbedConcurrency = defaultEmbedConcurrency
	}
	if cfg.RAG.UploadDir == "" {
		cfg.RAG.UploadDir = defaultUploadDir
	}
	if cfg.RAG.ExtractTimeoutSecs == 0 {
		cfg.RAG.ExtractTimeoutSecs = defaultExtractTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.RAG.Validate(); err != nil {
		return err
	}
	if c.EmbedLLM.TimeoutSecs < 0 {
		return fmt.Errorf("embed_llm.timeout_secs must not be negative, got %d", c.EmbedLLM.TimeoutSecs)
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

func (r *RAGConfig) Validate() error {
	switch {
	case r.EmbeddingDim <= 0:
		return fmt.Errorf("rag.embedding_dim must be positive, got %d", r.EmbeddingDim)
	case r.ChunkSize <= 0:
		return fmt.Errorf("rag.chunk_size must be positive, got %d", r.ChunkSize)
	case r.ChunkOverlap < 0:
		return fmt.Errorf("rag.chunk_overlap must not be negative, got %d", r.ChunkOverlap)
	case r.ChunkOverlap >= r.ChunkSize:
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)", r.ChunkOverlap, r.ChunkSize)
	case r.TopK <= 0:
		return fmt.Errorf("rag.top_k must be positive, got %d", r.TopK)
	case r.EmbedConcurrency <= 0:
		return fmt.Errorf("rag.embed_concurrency must be positive, got %d", r.EmbedConcurrency)
	case r.ExtractTimeoutSecs < 0:
		return fmt.Errorf("rag.extract_timeout_secs must not be negative, got %d", r.ExtractTimeoutSecs)
	}
	return nil
}
