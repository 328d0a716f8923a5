package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"document-search/internal/config"
)

const (
	ProviderOpenAI       = "openai"
	ProviderOpenRouter   = "openrouter"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"
)

// Embedder maps one text to one vector. Implementations make exactly one
// upstream call per Embed and never substitute a vector on failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a plain function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// NewEmbedder builds the configured provider wrapped in a Guard that enforces
// dim and the per-call timeout.
func NewEmbedder(cfg *config.LLMConfig, dim int) (Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	var (
		base Embedder
		err  error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		base, err = newOpenAIEmbedder(cfg, dim)
	case ProviderOpenRouter:
		base, err = newOpenRouterEmbedder(cfg)
	case ProviderOllama:
		base, err = newOllamaEmbedder(cfg)
	case ProviderOpenAICompat:
		base, err = newCompatEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s embedder: %w", cfg.Provider, err)
	}

	return NewGuard(base, dim, time.Duration(cfg.TimeoutSecs)*time.Second), nil
}
