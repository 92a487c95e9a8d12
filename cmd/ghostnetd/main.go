package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nebusoku/ghostnet-daemon/internal/chunker"
	"github.com/nebusoku/ghostnet-daemon/internal/config"
	"github.com/nebusoku/ghostnet-daemon/internal/domain"
	embedollama "github.com/nebusoku/ghostnet-daemon/internal/embedding/ollama"
	llmollama "github.com/nebusoku/ghostnet-daemon/internal/llm/ollama"
	"github.com/nebusoku/ghostnet-daemon/internal/server"
	"github.com/nebusoku/ghostnet-daemon/internal/service"
	"github.com/nebusoku/ghostnet-daemon/internal/vectorstore/memory"
	"github.com/nebusoku/ghostnet-daemon/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	embedder := embedollama.NewClient(embedollama.Config{
		BaseURL: cfg.Ollama.URL,
		Model:   cfg.Ollama.EmbedModel,
		Timeout: time.Duration(cfg.Ollama.EmbedTimeoutSecs) * time.Second,
	})

	llm := llmollama.NewClient(llmollama.Config{
		BaseURL: cfg.Ollama.URL,
		Model:   cfg.Ollama.ChatModel,
		Timeout: time.Duration(cfg.Ollama.ChatTimeoutSecs) * time.Second,
		Options: llmollama.Options{
			NumCtx:        cfg.Generation.NumCtx,
			NumPredict:    cfg.Generation.NumPredict,
			Temperature:   cfg.Generation.Temperature,
			RepeatPenalty: cfg.Generation.RepeatPenalty,
			NumThread:     cfg.Generation.NumThread,
		},
	})

	var store domain.VectorStore
	switch cfg.VectorStore.Type {
	case "memory":
		store = memory.NewStore()
	case "qdrant", "":
		store = qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		logger.Fatal().Str("type", cfg.VectorStore.Type).Msg("unknown vector store")
	}

	svc := service.NewRAGService(
		chunker.NewOverlapChunker(cfg.Chunker.Size, cfg.Chunker.Overlap),
		embedder,
		store,
		llm,
		service.Config{
			TopK:            cfg.Retrieval.TopK,
			MinScore:        cfg.Retrieval.MinScore,
			MaxContextChars: cfg.Retrieval.MaxContextChars,
		},
		logger.With().Str("component", "rag").Logger(),
	)

	srv := server.New(svc, cfg.Server.Addr, cfg.Server.APIKey, logger.With().Str("component", "http").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
