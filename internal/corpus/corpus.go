package corpus

import (
	"slices"

	"document-search/internal/models"
)

// Corpus is the ordered chunk store, co-indexed with the vector index,
// plus the document -> position range bookkeeping.
//
// Corpus is not safe for concurrent use; callers hold their own lock.
type Corpus struct {
	chunks []models.Chunk
	ranges map[string]models.Range
}

func New() *Corpus {
	return &Corpus{ranges: make(map[string]models.Range)}
}

func (c *Corpus) Size() int { return len(c.chunks) }

// Append stores chunk at position Size() and returns that position.
func (c *Corpus) Append(chunk models.Chunk) int {
	pos := len(c.chunks)
	chunk.Position = pos
	c.chunks = append(c.chunks, chunk)
	return pos
}

// Get returns the chunk at pos, or false when pos is out of range.
func (c *Corpus) Get(pos int) (models.Chunk, bool) {
	if pos < 0 || pos >= len(c.chunks) {
		return models.Chunk{}, false
	}
	return c.chunks[pos], true
}

// Clear drops all chunks and all recorded ranges.
func (c *Corpus) Clear() {
	c.chunks = nil
	clear(c.ranges)
}

func (c *Corpus) RecordRange(doc string, r models.Range) {
	c.ranges[doc] = r
}

func (c *Corpus) RangeFor(doc string) (models.Range, bool) {
	r, ok := c.ranges[doc]
	return r, ok
}

// Documents lists the names with a recorded range, sorted.
func (c *Corpus) Documents() []string {
	docs := make([]string, 0, len(c.ranges))
	for doc := range c.ranges {
		docs = append(docs, doc)
	}
	slices.Sort(docs)
	return docs
}
