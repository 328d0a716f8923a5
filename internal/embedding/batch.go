package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// EmbedAll embeds texts with at most concurrency calls in flight and returns
// the vectors in input order. Identical texts are embedded once. The first
// failure cancels the remaining calls and is returned; no partial result is.
func EmbedAll(ctx context.Context, e Embedder, texts []string, concurrency int) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	first := make(map[string]int, len(texts))
	unique := make([]int, 0, len(texts))
	for i, text := range texts {
		if _, ok := first[text]; !ok {
			first[text] = i
			unique = append(unique, i)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, i := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := e.Embed(gctx, texts[i])
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, text := range texts {
		if vectors[i] == nil {
			vectors[i] = vectors[first[text]]
		}
	}
	log.Debug().Int("texts", len(texts)).Int("calls", len(unique)).Msg("Embedded batch")
	return vectors, nil
}
