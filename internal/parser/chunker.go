package parser

import "fmt"

// Chunker splits text into overlapping segments of at most size characters.
// Segments are exact substrings of the input: every segment after the first
// starts overlap characters before the end of the previous one.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window once so Split never has to.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the ordered segments of text. Empty text yields no segments.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		end := min(start+c.size, n)
		if end < n {
			end = c.breakPoint(runes, start, end)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// breakPoint moves a cut back to the nearest paragraph, line, sentence or
// word boundary in the second half of the window. The result is always
// greater than start+overlap so the next window makes progress.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	floor := start + max(c.overlap+1, c.size/2)
	if floor >= end {
		return end
	}

	// paragraph
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// line
	for i := end - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// sentence
	for i := end - 2; i >= floor; i-- {
		if isSentenceEnd(runes[i]) && isSpace(runes[i+1]) {
			return i + 1
		}
	}
	// word
	for i := end - 1; i >= floor; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
