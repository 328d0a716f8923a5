package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-search/internal/config"
	"document-search/internal/helper"
	"document-search/internal/models"
)

const (
	shutdownTimeout = 10 * time.Second
	maxSearchBytes  = 1 << 20
)

// Searcher is the part of the pipeline the HTTP layer talks to.
type Searcher interface {
	IngestFile(ctx context.Context, docName string, data []byte, ext string) (*models.IngestResult, error)
	Query(ctx context.Context, text string) (*models.SearchResult, error)
	Stats() models.Stats
}

type Server struct {
	searcher Searcher
	cfg      *config.ServerConfig
	mux      *http.ServeMux
}

func New(searcher Searcher, cfg *config.ServerConfig) *Server {
	s := &Server{searcher: searcher, cfg: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return withRequestLog(withCORS(s.cfg.AllowedOrigin, s.mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read upload")
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	result, err := s.searcher.IngestFile(r.Context(), header.Filename, data, filepath.Ext(header.Filename))
	if err != nil {
		logger.Error().Err(err).Str("file", header.Filename).Msg("Upload failed")
		writeError(w, statusFor(err), messageFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSearchBytes)
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := s.searcher.Query(r.Context(), req.Query)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Search failed")
		writeError(w, statusFor(err), messageFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.searcher.Stats())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnsupportedType), errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmptyDocument), errors.Is(err, models.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEmbeddingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides internal detail behind the taxonomy's own message.
func messageFor(err error) string {
	for _, known := range []error{
		models.ErrUnsupportedType,
		models.ErrEmptyQuery,
		models.ErrEmptyDocument,
		models.ErrExtractionFailed,
		models.ErrEmbeddingFailed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal server error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withCORS(allowedOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowedOrigin == "*" || origin == allowedOrigin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog attaches a request-scoped logger carrying a request id.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id, err := helper.GenerateUUID()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to generate request id")
		}
		logger := log.With().Str("request_id", id).Logger()
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("Request handled")
	})
}
