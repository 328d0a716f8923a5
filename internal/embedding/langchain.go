package embedding

import (
	"errors"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-search/internal/config"
)

// OpenAI-compatible endpoint (OpenRouter and friends) through langchaingo.
func newOpenRouterEmbedder(cfg *config.LLMConfig) (Embedder, error) {
	if cfg.Key == "" {
		return nil, errors.New("missing API key")
	}
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return EmbedderFunc(embedder.EmbedQuery), nil
}

// new ollama embedder
func newOllamaEmbedder(cfg *config.LLMConfig) (Embedder, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return EmbedderFunc(embedder.EmbedQuery), nil
}
