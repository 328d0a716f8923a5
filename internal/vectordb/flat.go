package vectordb

import (
	"fmt"
	"sort"
)

// Hit is one k-NN result: a position in the index and its squared
// Euclidean distance to the query.
type Hit struct {
	Position int
	Distance float64
}

// FlatIndex is an exact nearest-neighbour index over fixed-dimension vectors.
// Every query is compared against every stored vector.
//
// FlatIndex is not safe for concurrent use; callers hold their own lock.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &FlatIndex{dim: dim}, nil
}

func (f *FlatIndex) Dimension() int { return f.dim }

func (f *FlatIndex) Size() int { return len(f.vectors) }

// Append stores a copy of v at position Size().
func (f *FlatIndex) Append(v []float32) error {
	if len(v) != f.dim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), f.dim)
	}
	f.vectors = append(f.vectors, append([]float32(nil), v...))
	return nil
}

// Reset drops every entry and keeps the dimension.
func (f *FlatIndex) Reset() {
	f.vectors = nil
}

// Search returns the min(k, Size()) nearest vectors to query, nearest first.
// Equal distances are ordered by position.
func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(query), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: i, Distance: squaredL2(v, query)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})

	return hits[:min(k, len(hits))], nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
