package models

const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"

	DefaultEmbeddingDim = 1536
	DefaultChunkSize    = 550
	DefaultChunkOverlap = 100
	DefaultTopK         = 3
)

// SupportedExtensions is the upload allow-list, checked before extraction.
var SupportedExtensions = []string{ExtPDF, ExtDOCX}
