package embedding

import (
	"github.com/philippgille/chromem-go"

	"document-search/internal/config"
)

// newCompatEmbedder targets self-hosted OpenAI-compatible servers
// (LocalAI, LM Studio, vLLM) through chromem-go's embedding funcs.
// chromem returns unit vectors, on which squared L2 ranks the same as cosine.
func newCompatEmbedder(cfg *config.LLMConfig) (Embedder, error) {
	return EmbedderFunc(chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.Key, cfg.Model, nil)), nil
}
