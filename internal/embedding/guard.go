package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidInput      = errors.New("empty or invalid text")
	ErrTimeout           = errors.New("embedding request timed out")
	ErrRateLimited       = errors.New("embedding provider rate limited the request")
	ErrMalformedResponse = errors.New("malformed embedding response")
	ErrUpstream          = errors.New("embedding provider error")
)

// Guard validates input and output around another Embedder and turns its
// failures into one of the errors above.
type Guard struct {
	next    Embedder
	dim     int
	timeout time.Duration
}

// NewGuard wraps next. A zero timeout disables the per-call deadline.
func NewGuard(next Embedder, dim int, timeout time.Duration) *Guard {
	return &Guard{next: next, dim: dim, timeout: timeout}
}

func (g *Guard) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	v, err := g.next.Embed(ctx, text)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if err := g.check(v); err != nil {
		return nil, err
	}
	return v, nil
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrMalformedResponse):
		return err
	case isRateLimited(err):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}

func (g *Guard) check(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrMalformedResponse)
	}
	if g.dim > 0 && len(v) != g.dim {
		return fmt.Errorf("%w: got dimension %d, want %d", ErrMalformedResponse, len(v), g.dim)
	}
	zero := true
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: non-finite component", ErrMalformedResponse)
		}
		if x != 0 {
			zero = false
		}
	}
	if zero {
		return fmt.Errorf("%w: zero vector", ErrMalformedResponse)
	}
	return nil
}
