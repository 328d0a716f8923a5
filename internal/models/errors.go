package models

import "errors"

var (
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrEmptyDocument    = errors.New("document has no text")
	ErrExtractionFailed = errors.New("failed to extract text from document")
	ErrEmbeddingFailed  = errors.New("failed to generate embeddings")
	ErrEmptyQuery       = errors.New("no query provided")
)
