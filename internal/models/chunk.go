package models

import "fmt"

// Chunk is a stored text segment. Its identity is its position in the corpus.
type Chunk struct {
	Document string `json:"document"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

// Range is the half-open interval [Start, End) of corpus positions
// contributed by one document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Positions expands the range into its individual positions.
func (r Range) Positions() []int {
	positions := make([]int, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		positions = append(positions, i)
	}
	return positions
}

type IngestResult struct {
	Message    string `json:"message"`
	Document   string `json:"document"`
	ChunkCount int    `json:"chunk_count"`
}

func NewIngestResult(document string, chunkCount int) *IngestResult {
	return &IngestResult{
		Message:    fmt.Sprintf("Stored %d chunks from %s", chunkCount, document),
		Document:   document,
		ChunkCount: chunkCount,
	}
}

// Match is a single ranked hit, kept for display.
type Match struct {
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
	Content  string  `json:"content"`
}

type SearchResult struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
	Matches []Match  `json:"-"`
}

// Stats describes the live search state.
type Stats struct {
	Document  string `json:"document,omitempty"`
	Chunks    int    `json:"chunks"`
	Dimension int    `json:"dimension"`
}
