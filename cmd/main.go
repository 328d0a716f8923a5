package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-search/internal/config"
	"document-search/internal/embedding"
	"document-search/internal/helper"
	"document-search/internal/parser"
	"document-search/internal/rag"
	"document-search/internal/server"
	"document-search/internal/tui"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath, "Path to the YAML config file")
	serve := flag.Bool("serve", false, "Run the HTTP server")
	filePath := flag.String("file", "", "Path to a PDF or DOCX document to ingest")
	query := flag.String("query", "", "Query to run against -file")
	dryRun := flag.Bool("dry-run", false, "Print the chunks of -file without embedding them")
	interactive := flag.Bool("tui", false, "Open an interactive query screen after ingesting -file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(&cfg.Log)
	log.Debug().Interface("rag", cfg.RAG).Interface("server", cfg.Server).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		runServer(ctx, cfg)
	case *filePath != "" && *dryRun:
		printChunks(*filePath, cfg)
	case *filePath != "":
		runFile(ctx, cfg, *filePath, *query, *interactive)
	default:
		fmt.Fprintln(os.Stderr, "Please provide -serve, or a document with -file (plus -query, -tui or -dry-run)")
		flag.PrintDefaults()
		os.Exit(1)
	}
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func newPipeline(cfg *config.Config) *rag.RAG {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.RAG.EmbeddingDim)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	chunker, err := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chunker")
	}
	pipeline, err := rag.NewRAG(embedder, chunker, &cfg.RAG)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}
	return pipeline
}

func runServer(ctx context.Context, cfg *config.Config) {
	srv := server.New(newPipeline(cfg), &cfg.Server)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func runFile(ctx context.Context, cfg *config.Config, filePath, query string, interactive bool) {
	pipeline := newPipeline(cfg)
	res, err := pipeline.IngestPath(ctx, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	log.Info().Msg(res.Message)

	if interactive {
		if _, err := tea.NewProgram(tui.New(pipeline, res.Document)).Run(); err != nil {
			log.Fatal().Err(err).Msg("Error running tui")
		}
		return
	}
	if query == "" {
		return
	}

	result, err := pipeline.Query(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	heading := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	heading.Println("Query:")
	fmt.Printf("%s\n\n", result.Query)
	for i, m := range result.Matches {
		heading.Printf("Result %d ", i+1)
		dim.Printf("(chunk %d, distance %.4f)\n", m.Position, m.Distance)
		fmt.Printf("%s\n\n", m.Content)
	}
}

// printChunks shows how -file would be split, without calling the embedder.
func printChunks(filePath string, cfg *config.Config) {
	text, err := parser.ExtractText(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	chunker, err := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chunker")
	}
	chunks := chunker.Split(text)
	log.Info().
		Int("chunks", len(chunks)).
		Int("chunk_size", chunker.Size()).
		Int("chunk_overlap", chunker.Overlap()).
		Msg("Parsed content")
	helper.PrettyPrint(chunks)
}
