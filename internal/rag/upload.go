package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"document-search/internal/helper"
	"document-search/internal/models"
	"document-search/internal/parser"
)

const fallbackDocName = "document"

// IngestFile saves an uploaded document, extracts its text and ingests it.
// ext is the declared extension; when empty the one on docName is used.
// Unsupported types are rejected before anything is written.
//
// The upload is staged under a temporary name and only takes docName's place
// in the upload directory once the new document is live.
func (r *RAG) IngestFile(ctx context.Context, docName string, data []byte, ext string) (*models.IngestResult, error) {
	if ext == "" {
		ext = filepath.Ext(docName)
	}
	ext = strings.ToLower(ext)
	if !parser.IsSupported(ext) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedType, ext)
	}

	select {
	case r.ingestSem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for previous upload: %w", ctx.Err())
	}
	defer func() { <-r.ingestSem }()

	name := uploadName(docName, ext)
	if err := helper.CreateFolder(r.cfg.UploadDir); err != nil {
		return nil, err
	}
	staged, err := stageUpload(r.cfg.UploadDir, data, ext)
	if err != nil {
		return nil, err
	}

	result, err := r.ingestSaved(ctx, name, staged)
	if err != nil {
		removeUpload(staged)
		return nil, err
	}

	if err := os.Rename(staged, filepath.Join(r.cfg.UploadDir, name)); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Failed to store upload")
		removeUpload(staged)
		return result, nil
	}
	if err := helper.PruneFolder(r.cfg.UploadDir, name); err != nil {
		log.Warn().Err(err).Str("dir", r.cfg.UploadDir).Msg("Failed to prune previous uploads")
	}
	return result, nil
}

// IngestPath ingests a local document where it lies, leaving the upload directory alone.
func (r *RAG) IngestPath(ctx context.Context, path string) (*models.IngestResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !parser.IsSupported(ext) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedType, ext)
	}
	return r.ingestSaved(ctx, filepath.Base(path), path)
}

func (r *RAG) ingestSaved(ctx context.Context, name, path string) (*models.IngestResult, error) {
	text, err := r.extractWithDeadline(ctx, path)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedType) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrExtractionFailed, err)
	}
	return r.Ingest(ctx, name, text)
}

// extractWithDeadline gives up on extraction once ctx or the configured
// timeout expires. The abandoned extractor is left to finish on its own.
func (r *RAG) extractWithDeadline(ctx context.Context, path string) (string, error) {
	if r.cfg.ExtractTimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.ExtractTimeoutSecs)*time.Second)
		defer cancel()
	}

	type extracted struct {
		text string
		err  error
	}
	done := make(chan extracted, 1)
	extract := r.extract
	go func() {
		text, err := extract(path)
		done <- extracted{text, err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		log.Warn().Str("file", path).Msg("Abandoning text extraction")
		return "", fmt.Errorf("extraction abandoned: %w", ctx.Err())
	}
}

func stageUpload(dir string, data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(dir, ".upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		removeUpload(f.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		removeUpload(f.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return f.Name(), nil
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", path).Msg("Failed to remove rejected upload")
	}
}

// uploadName reduces docName to a bare file name that ends in ext.
func uploadName(docName, ext string) string {
	name := filepath.Base(strings.ReplaceAll(docName, `\`, "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSuffix(name, filepath.Ext(name)) == "" {
		name = fallbackDocName
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	return name
}
