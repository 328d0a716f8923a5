package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"document-search/internal/config"
	"document-search/internal/corpus"
	"document-search/internal/embedding"
	"document-search/internal/models"
	"document-search/internal/parser"
	"document-search/internal/vectordb"
)

// Splitter cuts document text into ordered segments.
type Splitter interface {
	Split(text string) []string
}

// SearchState is the index and the corpus (with its document ranges) as one unit.
// Queries share mu and the commit of an ingest holds it exclusively, so the
// index and corpus always have equal length to readers.
type SearchState struct {
	mu     sync.RWMutex
	index  *vectordb.FlatIndex
	corpus *corpus.Corpus
}

func NewSearchState(dim int) (*SearchState, error) {
	index, err := vectordb.NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	return &SearchState{index: index, corpus: corpus.New()}, nil
}

// Reset empties the state.
func (s *SearchState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *SearchState) reset() {
	s.index.Reset()
	s.corpus.Clear()
}

// replace swaps in a new document. vectors must already match the index dimension.
func (s *SearchState) replace(doc string, chunks []string, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for i, content := range chunks {
		if err := s.index.Append(vectors[i]); err != nil {
			// unreachable after validation; leave an empty but consistent state
			s.reset()
			return err
		}
		s.corpus.Append(models.Chunk{Document: doc, Content: content})
	}
	s.corpus.RecordRange(doc, models.Range{Start: 0, End: len(chunks)})
	return nil
}

type RAG struct {
	// one-slot semaphore serialising file ingests so the upload directory
	// follows the last commit
	ingestSem chan struct{}
	state     *SearchState
	embedder  embedding.Embedder
	splitter  Splitter
	extract   parser.Extractor
	cfg       *config.RAGConfig
}

func NewRAG(embedder embedding.Embedder, splitter Splitter, cfg *config.RAGConfig) (*RAG, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	state, err := NewSearchState(cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}
	return &RAG{
		ingestSem: make(chan struct{}, 1),
		state:     state,
		embedder:  embedder,
		splitter:  splitter,
		extract:   parser.ExtractText,
		cfg:       cfg,
	}, nil
}

// Ingest replaces the searchable corpus with the chunks of rawText.
// All chunks are embedded before the state is touched, so a failed ingest
// leaves the previous document searchable.
func (r *RAG) Ingest(ctx context.Context, docName, rawText string) (*models.IngestResult, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyDocument, docName)
	}

	chunks := r.splitter.Split(rawText)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", models.ErrEmptyDocument, docName)
	}

	start := time.Now()
	vectors, err := embedding.EmbedAll(ctx, r.embedder, chunks, r.cfg.EmbedConcurrency)
	if err != nil {
		log.Error().Err(err).Str("document", docName).Int("chunks", len(chunks)).Msg("Embedding failed, keeping previous corpus")
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailed, err)
	}
	for i, v := range vectors {
		if len(v) != r.cfg.EmbeddingDim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, want %d", models.ErrEmbeddingFailed, i, len(v), r.cfg.EmbeddingDim)
		}
	}

	if err := r.state.replace(docName, chunks, vectors); err != nil {
		return nil, err
	}

	log.Info().Str("document", docName).Int("chunks", len(chunks)).Dur("took", time.Since(start)).Msg("Stored document")
	return models.NewIngestResult(docName, len(chunks)), nil
}

// Query returns the stored chunks nearest to text, most similar first.
func (r *RAG) Query(ctx context.Context, text string) (*models.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrEmptyQuery
	}

	v, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailed, err)
	}

	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	hits, err := r.state.index.Search(v, r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailed, err)
	}

	result := &models.SearchResult{
		Query:   text,
		Results: make([]string, 0, len(hits)),
		Matches: make([]models.Match, 0, len(hits)),
	}
	for _, hit := range hits {
		chunk, ok := r.state.corpus.Get(hit.Position)
		if !ok {
			log.Warn().Int("position", hit.Position).Msg("Dropping index hit with no stored chunk")
			continue
		}
		result.Results = append(result.Results, chunk.Content)
		result.Matches = append(result.Matches, models.Match{
			Position: hit.Position,
			Distance: hit.Distance,
			Content:  chunk.Content,
		})
	}
	log.Debug().Str("query", text).Int("results", len(result.Results)).Msg("Query served")
	return result, nil
}

// RangeFor reports the positions the named document contributed.
func (r *RAG) RangeFor(docName string) (models.Range, bool) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	return r.state.corpus.RangeFor(docName)
}

func (r *RAG) Stats() models.Stats {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	var document string
	if docs := r.state.corpus.Documents(); len(docs) > 0 {
		document = docs[0]
	}
	return models.Stats{
		Document:  document,
		Chunks:    r.state.corpus.Size(),
		Dimension: r.state.index.Dimension(),
	}
}
